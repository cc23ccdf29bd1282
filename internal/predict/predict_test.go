package predict

import (
	"math"
	"testing"
)

func TestTreesParse(t *testing.T) {
	for _, tree := range []*Tree{ThirdPress, ReleaseAfterSecondPress, ReleaseAfterSecondRelease} {
		if tree == nil || tree.root == nil {
			t.Fatalf("tree %v did not load", tree)
		}
	}
}

func TestParseTreeRejectsUnknownColumn(t *testing.T) {
	_, err := ParseTree("bad", []byte(`{"feature":"nope","threshold":1,"le":{"value":0.1},"gt":{"value":0.2}}`))
	if err == nil {
		t.Fatal("ParseTree should reject an unknown feature column")
	}
}

// Leaf-level pins: each vector walks a known path of the artifact.
func TestThirdPressLeaves(t *testing.T) {
	tests := []struct {
		name string
		f    Features
		want float64
	}{
		{
			// Fast flowing streak: everything quick, third follows fast.
			name: "quick roll leaf",
			f: Features{
				PrevPressToPTHPressDur:     100,
				PressToSecondPressDur:      80,
				SecondPressToThirdPressDur: 50,
				PressToSecondReleaseDur:    -1,
				SecondDur:                  -1,
			},
			want: 0.040555656,
		},
		{
			// Slow deliberate chord: long gaps, second held well past
			// its release threshold, third following late.
			name: "deliberate hold leaf",
			f: Features{
				PrevPressToPTHPressDur:     900,
				PressToPressWAvg:           500,
				PressToSecondReleaseDur:    150,
				SecondDur:                  120,
				SecondPressToThirdPressDur: 200,
				PressToSecondPressDur:      200,
			},
			want: 0.97471267,
		},
	}

	for _, tt := range tests {
		if got := ThirdPress.Predict(tt.f); got != tt.want {
			t.Errorf("%s: Predict() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReleaseAfterSecondPressLeaves(t *testing.T) {
	// A very fast roll released quickly reaches the low-probability leaf.
	f := Features{
		PrevPressToPTHPressDur: 150,
		PressToSecondPressDur:  100,
	}
	if got := ReleaseAfterSecondPress.Predict(f); got != 0.021824066 {
		t.Errorf("Predict() = %v, want 0.021824066", got)
	}
}

func TestReleaseAfterSecondReleaseLeaves(t *testing.T) {
	// Short second duration, fresh typing: the tap leaf.
	f := Features{
		PressToSecondReleaseDur: 100,
		SecondDur:               60,
		PrevPressToPTHPressDur:  300,
	}
	if got := ReleaseAfterSecondRelease.Predict(f); got != 0.09534535 {
		t.Errorf("Predict() = %v, want 0.09534535", got)
	}
}

func TestSafeDiv(t *testing.T) {
	if got := safeDiv(10, 0); got != 10 {
		t.Errorf("safeDiv(10, 0) = %v, want the numerator", got)
	}
	if got := safeDiv(10, 4); got != 2.5 {
		t.Errorf("safeDiv(10, 4) = %v, want 2.5", got)
	}
}

func TestOverlapForHoldMatchesExpression(t *testing.T) {
	f := Features{
		PressToSecondPressDur:  120,
		PrevPressToPTHPressDur: 180,
		PrevPrevOverlapDur:     20,
	}

	p2s := 120.0
	a := p2s * safeDiv(20145.72453837935, 20145.72453837935-(180.0-20.0)*p2s)
	b := safeDiv(20141.63979839019-((180.0-2.0*20.0)-20.0)*10.24699665838974, p2s) - 32.559018051648636
	want := uint16(math.Abs(math.Max(a, b)))

	if got := OverlapForHold(f); got != want {
		t.Errorf("OverlapForHold() = %d, want %d", got, want)
	}
}

func TestFastStreakEstimators(t *testing.T) {
	f := Features{
		PrevPrevOverlapDur:     0,
		PrevPressToPTHPressDur: 90,
		OverlapWAvg:            5,
	}

	wantDefault := math.Abs(safeDiv(0-90, 4.280551301886473-90))
	if got := FastStreakTap(f); got != wantDefault {
		t.Errorf("FastStreakTap() = %v, want %v", got, wantDefault)
	}

	s := 0.0 - 90
	wantConservative := math.Abs(safeDiv(s, s+5.3131340976019885*5))
	if got := FastStreakTapConservative(f); got != wantConservative {
		t.Errorf("FastStreakTapConservative() = %v, want %v", got, wantConservative)
	}
}
