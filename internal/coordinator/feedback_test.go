package coordinator

import (
	"strings"
	"testing"
)

func defaultTargets() map[string]float64 {
	return map[string]float64{
		DimAccuracy:    80,
		DimEfficiency:  75,
		DimQuality:     80,
		DimConsistency: 70,
	}
}

func TestObserveProposesAdjustmentsBelowTarget(t *testing.T) {
	a := NewAdjuster(0.5, defaultTargets())

	// Accuracy (content 60) and consistency (improvement 65) are below target;
	// efficiency and quality are at or above.
	adjustments := a.Observe(1, Breakdown{
		Content:      60,
		Completeness: 85,
		Efficiency:   75,
		Improvement:  65,
	})

	if len(adjustments) != 2 {
		t.Fatalf("expected 2 adjustments, got %d: %+v", len(adjustments), adjustments)
	}

	// Sorted dimension order: accuracy before consistency.
	acc := adjustments[0]
	if acc.Parameter != DimAccuracy {
		t.Errorf("first adjustment = %s, want accuracy", acc.Parameter)
	}
	// First observation seeds the parameter from the measured value:
	// 60 + 0.5*15 = 67.5.
	if acc.OldValue != 60 || acc.NewValue != 67.5 {
		t.Errorf("accuracy adjustment %f -> %f, want 60 -> 67.5", acc.OldValue, acc.NewValue)
	}
	if !strings.Contains(acc.Reason, "below target") {
		t.Errorf("reason %q should mention the target gap", acc.Reason)
	}

	con := adjustments[1]
	if con.Parameter != DimConsistency {
		t.Errorf("second adjustment = %s, want consistency", con.Parameter)
	}
	// 65 + 0.5*10 = 70.
	if con.OldValue != 65 || con.NewValue != 70 {
		t.Errorf("consistency adjustment %f -> %f, want 65 -> 70", con.OldValue, con.NewValue)
	}
}

func TestObserveNoAdjustmentsAtTarget(t *testing.T) {
	a := NewAdjuster(0.5, defaultTargets())

	adjustments := a.Observe(1, Breakdown{
		Content:      90,
		Completeness: 85,
		Efficiency:   80,
		Improvement:  75,
	})
	if len(adjustments) != 0 {
		t.Errorf("expected no adjustments, got %+v", adjustments)
	}
}

func TestObserveAccumulatesAcrossIterations(t *testing.T) {
	a := NewAdjuster(1.0, defaultTargets())

	low := Breakdown{Content: 50, Completeness: 90, Efficiency: 90, Improvement: 90}

	first := a.Observe(1, low)
	if len(first) != 1 || first[0].NewValue != 65 {
		t.Fatalf("first observation = %+v, want accuracy 50 -> 65", first)
	}

	// The second observation starts from the stored parameter, not the
	// newly measured value.
	second := a.Observe(2, low)
	if len(second) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(second))
	}
	if second[0].OldValue != 65 || second[0].NewValue != 80 {
		t.Errorf("second adjustment %f -> %f, want 65 -> 80", second[0].OldValue, second[0].NewValue)
	}
}

func TestObserveCapsAtHundred(t *testing.T) {
	a := NewAdjuster(10, defaultTargets())

	adjustments := a.Observe(1, Breakdown{Content: 79, Completeness: 90, Efficiency: 90, Improvement: 90})
	if len(adjustments) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(adjustments))
	}
	if adjustments[0].NewValue != 100 {
		t.Errorf("new value = %f, want capped at 100", adjustments[0].NewValue)
	}
}

func TestObserveIgnoresUntargetedDimensions(t *testing.T) {
	a := NewAdjuster(0.5, map[string]float64{DimEfficiency: 90})

	adjustments := a.Observe(1, Breakdown{Content: 10, Completeness: 10, Efficiency: 50, Improvement: 10})
	if len(adjustments) != 1 {
		t.Fatalf("expected only the efficiency adjustment, got %+v", adjustments)
	}
	if adjustments[0].Parameter != DimEfficiency {
		t.Errorf("parameter = %s, want efficiency", adjustments[0].Parameter)
	}
}

func TestParamsReturnsCopy(t *testing.T) {
	a := NewAdjuster(0.5, defaultTargets())
	a.Observe(1, Breakdown{Content: 50, Completeness: 90, Efficiency: 90, Improvement: 90})

	params := a.Params()
	params[DimAccuracy] = -1

	if a.Params()[DimAccuracy] == -1 {
		t.Error("Params must return a copy, not the internal map")
	}
}
