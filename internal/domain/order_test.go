package domain

import (
	"math"
	"testing"
)

func TestTrackedOrder_InitialState(t *testing.T) {
	o := NewTrackedOrder("o1", 1000, 50, true, 1_000)

	if o.CurrentSize != 50 || o.InitialSize != 50 || o.MaxVisibleSize != 50 || o.MinSizeSeen != 50 {
		t.Errorf("All sizes should seed from the initial size, got cur=%v init=%v max=%v min=%v",
			o.CurrentSize, o.InitialSize, o.MaxVisibleSize, o.MinSizeSeen)
	}
	if len(o.PriceHistory) != 1 || o.PriceHistory[0] != 1000 {
		t.Errorf("Price history should hold the entry price, got %v", o.PriceHistory)
	}
	if o.ExecutionRatio() != 0 {
		t.Errorf("Fresh order should have zero execution ratio, got %v", o.ExecutionRatio())
	}
}

func TestTrackedOrder_ApplyReplace(t *testing.T) {
	t.Run("shrink counts as fill when enabled", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.ApplyReplace(30, 2_000, nil, true)

		if o.TotalFilled != 20 {
			t.Errorf("Expected totalFilled 20 from shrink, got %v", o.TotalFilled)
		}
		if o.SizeDecreaseCount != 1 {
			t.Errorf("Expected one size decrease, got %d", o.SizeDecreaseCount)
		}
		if o.MinSizeSeen != 30 {
			t.Errorf("Expected minSizeSeen 30, got %v", o.MinSizeSeen)
		}
	})

	t.Run("shrink without fill attribution", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.ApplyReplace(30, 2_000, nil, false)

		if o.TotalFilled != 0 {
			t.Errorf("Shrink must not feed totalFilled, got %v", o.TotalFilled)
		}
		if o.SizeDecreaseCount != 1 {
			t.Errorf("Decrease counter should still move, got %d", o.SizeDecreaseCount)
		}
	})

	t.Run("refill below original display", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.ApplyReplace(20, 2_000, nil, true)
		o.ApplyReplace(45, 3_000, nil, true)

		if o.RefillCount != 1 || o.ConsecutiveRefills != 1 {
			t.Errorf("Expected refill counted once, got refills=%d consecutive=%d",
				o.RefillCount, o.ConsecutiveRefills)
		}

		// a plain shrink breaks the consecutive streak
		o.ApplyReplace(40, 4_000, nil, true)
		if o.ConsecutiveRefills != 0 {
			t.Errorf("Consecutive streak should reset on non-refill, got %d", o.ConsecutiveRefills)
		}
		if o.RefillCount != 1 {
			t.Errorf("Cumulative refill count should persist, got %d", o.RefillCount)
		}
	})

	t.Run("growth above original is not a refill", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.ApplyReplace(80, 2_000, nil, true)

		if o.RefillCount != 0 {
			t.Errorf("Growing past the original display is not a refill, got %d", o.RefillCount)
		}
		if o.MaxVisibleSize != 80 {
			t.Errorf("Expected high-water mark 80, got %v", o.MaxVisibleSize)
		}
	})

	t.Run("price move appends history once", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		p := 1005
		o.ApplyReplace(50, 2_000, &p, true)
		o.ApplyReplace(50, 3_000, &p, true) // same price again

		if o.CurrentPrice != 1005 {
			t.Errorf("Expected current price 1005, got %d", o.CurrentPrice)
		}
		if last := o.PriceHistory[len(o.PriceHistory)-1]; last != 1005 {
			t.Errorf("Current price must be the last history element, got %d", last)
		}
		if len(o.PriceHistory) != 2 {
			t.Errorf("Repeated price must not duplicate history, got %v", o.PriceHistory)
		}
		if o.PriceChanges != 1 {
			t.Errorf("Expected one price change, got %d", o.PriceChanges)
		}
	})
}

func TestTrackedOrder_Execution(t *testing.T) {
	t.Run("totalFilled is monotone", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		prev := 0.0
		for i := 0; i < 10; i++ {
			o.ApplyExecution(7, int64(2_000+i))
			if o.TotalFilled < prev {
				t.Fatalf("totalFilled decreased: %v -> %v", prev, o.TotalFilled)
			}
			prev = o.TotalFilled
		}
	})

	t.Run("execution ratio", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.ApplyExecution(125, 2_000)

		if got := o.ExecutionRatio(); math.Abs(got-2.5) > 1e-9 {
			t.Errorf("Expected ratio 2.5, got %v", got)
		}
	})

	t.Run("zero max visible yields zero ratio", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 0, true, 1_000)
		o.TotalFilled = 10
		if got := o.ExecutionRatio(); got != 0 {
			t.Errorf("Expected defined zero, got %v", got)
		}
	})

	t.Run("sided split", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, false, 1_000)
		o.ApplySidedExecution(30, 2_000, false)
		o.ApplySidedExecution(10, 3_000, true)

		if o.PassiveFilled != 30 || o.ActiveFilled != 10 {
			t.Errorf("Expected passive=30 active=10, got passive=%v active=%v",
				o.PassiveFilled, o.ActiveFilled)
		}
		if o.TotalFilled != 40 {
			t.Errorf("Split fills must still feed totalFilled, got %v", o.TotalFilled)
		}
	})

	t.Run("execution percentage uses estimated total", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.ApplyExecution(50, 2_000)

		// estimated total = totalFilled + currentSize = 100
		if got := o.ExecutionPercentage; math.Abs(got-0.5) > 1e-9 {
			t.Errorf("Expected execution percentage 0.5, got %v", got)
		}
	})
}

func TestTrackedOrder_IcebergScore(t *testing.T) {
	t.Run("fresh order scores low", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		if got := o.IcebergScore(); got != 0.3 {
			// consistent size only (min/max = 1.0)
			t.Errorf("Expected 0.3, got %v", got)
		}
	})

	t.Run("refills and execution volume add up", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		for i := 0; i < 3; i++ {
			o.ApplyReplace(40, int64(2_000+2*i), nil, true)
			o.ApplyReplace(50, int64(2_001+2*i), nil, true)
		}
		o.ApplyExecution(170, 10_000)

		// 0.3 consistency + 0.3 refills + 0.3 capped execution
		if got := o.IcebergScore(); math.Abs(got-0.9) > 1e-9 {
			t.Errorf("Expected 0.9, got %v", got)
		}
	})

	t.Run("score is capped at 1", func(t *testing.T) {
		o := NewTrackedOrder("o1", 1000, 50, true, 1_000)
		o.RefillCount = 10
		o.TotalFilled = 1000
		if got := o.IcebergScore(); got > 1.0 {
			t.Errorf("Score must not exceed 1, got %v", got)
		}
	})
}
