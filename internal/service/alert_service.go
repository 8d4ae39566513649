package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"iceberg_go/internal/domain"
	"iceberg_go/internal/infra"
	"iceberg_go/internal/infra/storage"
)

// AlertService is the presentation-side consumer of completion records. It
// drains the detectors' output channel asynchronously, so detection latency
// never depends on logging or persistence.
type AlertService struct {
	mu     sync.RWMutex
	in     <-chan domain.Detection
	store  *storage.Storage // nil disables persistence
	recent []domain.Detection
	keep   int
}

// NewAlertService creates a service reading from in. store may be nil when
// persistence is disabled.
func NewAlertService(in <-chan domain.Detection, store *storage.Storage) *AlertService {
	return &AlertService{
		in:    in,
		store: store,
		keep:  100,
	}
}

// Run consumes completion records until the context ends. Run it in its own
// goroutine.
func (s *AlertService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-s.in:
			s.handle(rec)
		}
	}
}

func (s *AlertService) handle(rec domain.Detection) {
	infra.GlobalMetrics.RecordIceberg()

	slog.Info("ICEBERG_DETECTED",
		slog.String("detector", rec.Detector),
		slog.String("symbol", rec.Symbol),
		slog.String("side", rec.Side()),
		slog.String("price", rec.Price.String()),
		slog.Float64("total_filled", rec.TotalFilled),
		slog.Float64("max_visible", rec.MaxVisibleSize),
		slog.Float64("exec_ratio", rec.ExecutionRatio),
		slog.Int("refills", rec.RefillCount),
		slog.Float64("score", rec.Score))

	s.mu.Lock()
	s.recent = append(s.recent, rec)
	if len(s.recent) > s.keep {
		s.recent = s.recent[len(s.recent)-s.keep:]
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveAlert(rec.ToAlert()); err != nil {
			infra.GlobalMetrics.RecordError()
			slog.Error("Failed to persist alert", slog.Any("error", err))
		}
	}
}

// Recent returns the most recent detections, newest first.
func (s *AlertService) Recent(limit int) []domain.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.Detection, n)
	for i := 0; i < n; i++ {
		result[i] = s.recent[len(s.recent)-1-i]
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	return result
}
