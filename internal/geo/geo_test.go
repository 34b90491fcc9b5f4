package geo

import (
	"math"
	"testing"
)

func TestDistanceMi(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Point
		wantMi float64
		tolMi  float64
	}{
		{
			name:   "same point",
			a:      Point{26.0, -80.0},
			b:      Point{26.0, -80.0},
			wantMi: 0,
			tolMi:  1e-9,
		},
		{
			name:   "one degree of latitude",
			a:      Point{26.0, -80.0},
			b:      Point{27.0, -80.0},
			wantMi: 69.09,
			tolMi:  0.2,
		},
		{
			name:   "boca to miami",
			a:      Point{26.3683, -80.1289},
			b:      Point{25.7959, -80.2870},
			wantMi: 41.0,
			tolMi:  1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMi(tt.a, tt.b)
			if math.Abs(got-tt.wantMi) > tt.tolMi {
				t.Errorf("DistanceMi = %.3f, want %.3f ± %.2f", got, tt.wantMi, tt.tolMi)
			}
		})
	}
}

func TestDistanceMiSymmetric(t *testing.T) {
	a := Point{26.442873, -80.32687}
	b := Point{26.0, -80.0}
	if d1, d2 := DistanceMi(a, b), DistanceMi(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %.9f vs %.9f", d1, d2)
	}
}

func TestBearingDeg(t *testing.T) {
	site := Point{26.0, -80.0}

	tests := []struct {
		name  string
		to    Point
		want  float64
		tol   float64
	}{
		{"due north", Point{27.0, -80.0}, 0, 0.01},
		{"due south", Point{25.0, -80.0}, 180, 0.01},
		{"roughly east", Point{26.0, -79.0}, 90, 0.5},
		{"roughly west", Point{26.0, -81.0}, 270, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDeg(site, tt.to)
			if got < 0 || got >= 360 {
				t.Fatalf("bearing %.3f outside [0,360)", got)
			}
			diff := math.Abs(got - tt.want)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > tt.tol {
				t.Errorf("BearingDeg = %.3f, want %.3f ± %.2f", got, tt.want, tt.tol)
			}
		})
	}
}
