package beta

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name       string
		alpha,beta float64
		want       float64
	}{
		{"uniform prior", 1, 1, 0.5},
		{"mostly active", 9, 1, 0.9},
		{"mostly inactive", 1, 9, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.alpha, tt.beta).Mean()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Mean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdate_NeverMutatesReceiverAndIsExact(t *testing.T) {
	p := New(3, 5)
	active := p.Update(1)
	inactive := p.Update(0)

	if p.Alpha != 3 || p.Beta != 5 {
		t.Fatalf("Update mutated receiver: got %+v", p)
	}
	if active.Alpha != 4 || active.Beta != 5 {
		t.Errorf("Update(1) = %+v, want {4 5}", active)
	}
	if inactive.Alpha != 3 || inactive.Beta != 6 {
		t.Errorf("Update(0) = %+v, want {3 6}", inactive)
	}
}

func TestNLL_AlwaysNonNegative(t *testing.T) {
	cases := []Posterior{New(1, 1), New(100, 1), New(1, 100), New(0.001, 0.001)}
	for _, p := range cases {
		if n := p.NLL(0); n < 0 {
			t.Errorf("NLL(0) = %v for %+v, want >= 0", n, p)
		}
		if n := p.NLL(1); n < 0 {
			t.Errorf("NLL(1) = %v for %+v, want >= 0", n, p)
		}
	}
}

func TestNLL_PenalizesSurprise(t *testing.T) {
	// A model that strongly expects "active" should be surprised by "inactive".
	p := New(99, 1)
	surprised := p.NLL(0)
	expected := p.NLL(1)
	if surprised <= expected {
		t.Errorf("NLL(0) = %v, NLL(1) = %v; expected surprise to cost more", surprised, expected)
	}
}

func TestCIWidth_DecreasesAsEvidenceAccumulates(t *testing.T) {
	// Same mean (0.5), increasing alpha+beta -> strictly narrower interval.
	widths := []float64{
		New(1, 1).CIWidth(),
		New(5, 5).CIWidth(),
		New(20, 20).CIWidth(),
		New(100, 100).CIWidth(),
	}
	for i := 1; i < len(widths); i++ {
		if widths[i] >= widths[i-1] {
			t.Errorf("CIWidth not strictly decreasing: widths=%v", widths)
		}
	}
}

func TestCredibleInterval_BoundedToUnitInterval(t *testing.T) {
	p := New(999, 1)
	lo, hi := p.CredibleInterval(0.99)
	if lo < 0 || hi > 1 {
		t.Errorf("CredibleInterval = [%v, %v], want within [0, 1]", lo, hi)
	}
}

func TestAlphaBetaSum_IncreasesByOnePerUpdate(t *testing.T) {
	p := New(1, 1)
	for day := 0; day < 20; day++ {
		before := p.Alpha + p.Beta
		p = p.Update(day % 2)
		after := p.Alpha + p.Beta
		if after != before+1 {
			t.Fatalf("day %d: alpha+beta went from %v to %v, want +1", day, before, after)
		}
	}
}
