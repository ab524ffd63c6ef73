package nmf

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-bss/bss/floor"
)

func TestDistributionValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Distribution
		ok   bool
	}{
		{"zero", Distribution{}, false},
		{"gauss", Gauss(), true},
		{"t", T(1), true},
		{"t zero dof", T(0), false},
		{"t negative dof", T(-2), false},
		{"t nan dof", T(math.NaN()), false},
		{"t inf dof", T(math.Inf(1)), false},
		{"ggd", GGD(1), true},
		{"ggd zero", GGD(0), false},
		{"ggd two", GGD(2), false},
		{"unknown kind", Distribution{Kind: Kind(42)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate()=%v want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidDistribution) {
				t.Fatalf("Validate()=%v want ErrInvalidDistribution", err)
			}
		})
	}
}

func TestExponent(t *testing.T) {
	if got := Gauss().Exponent(2); got != 0.5 {
		t.Fatalf("gauss exponent=%v want=0.5", got)
	}
	if got := T(3).Exponent(1); math.Abs(got-1.0/3) > 1e-15 {
		t.Fatalf("t exponent=%v want=1/3", got)
	}
	if got := GGD(1).Exponent(2); math.Abs(got-2.0/3) > 1e-15 {
		t.Fatalf("ggd exponent=%v want=2/3", got)
	}
}

func TestStudentTApproachesGaussian(t *testing.T) {
	g, st := Gauss(), T(1e9)
	for _, p := range []float64{1, 1.5, 2} {
		a, b := g.Aux(0.7, 1.3, p), st.Aux(0.7, 1.3, p)
		if math.Abs(a-b) > 1e-6 {
			t.Fatalf("p=%v aux gauss=%v t=%v", p, a, b)
		}
		wa, wb := g.Weight(0.7, 1.3, p, floor.Default()), st.Weight(0.7, 1.3, p, floor.Default())
		if math.Abs(wa-wb) > 1e-6 {
			t.Fatalf("p=%v weight gauss=%v t=%v", p, wa, wb)
		}
	}
}

func TestGGDAtTwoMatchesGaussianForm(t *testing.T) {
	// beta -> 2 recovers the Gaussian quantities.
	d := Distribution{Kind: GeneralizedGaussian, Beta: 2}
	g := Gauss()
	if a, b := d.Aux(0.4, 2, 2), g.Aux(0.4, 2, 2); math.Abs(a-b) > 1e-12 {
		t.Fatalf("aux ggd=%v gauss=%v", a, b)
	}
	if a, b := d.Weight(0.4, 2, 2, floor.Default()), g.Weight(0.4, 2, 2, floor.Default()); math.Abs(a-b) > 1e-12 {
		t.Fatalf("weight ggd=%v gauss=%v", a, b)
	}
	if a, b := d.NegLogLikelihood(0.4, 2, 2), g.NegLogLikelihood(0.4, 2, 2); math.Abs(a-b) > 1e-12 {
		t.Fatalf("nll ggd=%v gauss=%v", a, b)
	}
}

func TestGGDWeightFloorsMagnitude(t *testing.T) {
	d := GGD(1)
	w := d.Weight(0, 1, 2, floor.Max{Eps: 1e-3})
	if math.Abs(w-0.5/1e-3) > 1e-9 {
		t.Fatalf("weight=%v want=%v", w, 0.5/1e-3)
	}
}

func TestNegLogLikelihoodGaussian(t *testing.T) {
	got := Gauss().NegLogLikelihood(2, 4, 2)
	want := 4.0/4 + math.Log(4)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("nll=%v want=%v", got, want)
	}
}
