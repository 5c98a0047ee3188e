package geo

import (
	"math"
	"sync"
	"testing"
)

const tolerance = 1e-6

func TestHaversine_ClosedForm(t *testing.T) {
	a := MustCoordinate(0, 0)
	b := MustCoordinate(0, 90)
	c := MustCoordinate(45, 45)

	tests := []struct {
		name string
		p, q Coordinate
		want float64
	}{
		{"A-B quarter meridian", a, b, DefaultEarthRadiusKm * math.Pi / 2},
		{"A-C sixty degrees", a, c, DefaultEarthRadiusKm * math.Pi / 3},
		{"B-C sixty degrees", b, c, DefaultEarthRadiusKm * math.Pi / 3},
		{"same point", c, c, 0},
		{"antipodes", MustCoordinate(0, 0), MustCoordinate(0, 180), DefaultEarthRadiusKm * math.Pi},
	}

	calc := Calculator{Formula: Haversine}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Distance(tt.p, tt.q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("expected %.9f, got %.9f", tt.want, got)
			}
		})
	}
}

func TestHaversine_NearAntipodes(t *testing.T) {
	halfCircumference := DefaultEarthRadiusKm * math.Pi

	tests := []struct {
		name string
		p, q Coordinate
	}{
		{"mid latitudes", MustCoordinate(45, 0), MustCoordinate(-45, 180)},
		{"near the poles", MustCoordinate(-88.5, -179.5), MustCoordinate(88.5, 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.p, tt.q, DefaultEarthRadiusKm)
			if math.Abs(got-halfCircumference) > 1e-3 {
				t.Errorf("expected %f, got %f", halfCircumference, got)
			}
		})
	}

	for lat := -90.0; lat <= 90; lat += 0.5 {
		for lon := -180.0; lon <= 0; lon += 0.5 {
			got := HaversineKm(MustCoordinate(lat, lon), MustCoordinate(-lat, lon+180), DefaultEarthRadiusKm)
			if math.IsNaN(got) || got < 0 || got > halfCircumference+tolerance {
				t.Fatalf("(%v,%v) to its antipode: got %v", lat, lon, got)
			}
		}
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	p := MustCoordinate(33.4484, -112.074)
	q := MustCoordinate(-33.8688, 151.2093)

	d1 := HaversineKm(p, q, DefaultEarthRadiusKm)
	d2 := HaversineKm(q, p, DefaultEarthRadiusKm)
	if math.Abs(d1-d2) > tolerance {
		t.Errorf("expected symmetric distances, got %f and %f", d1, d2)
	}
}

func TestEquirectangular(t *testing.T) {
	t.Run("along the equator matches the arc", func(t *testing.T) {
		got := EquirectangularKm(MustCoordinate(0, 0), MustCoordinate(0, 90), DefaultEarthRadiusKm)
		want := DefaultEarthRadiusKm * math.Pi / 2
		if math.Abs(got-want) > tolerance {
			t.Errorf("expected %f, got %f", want, got)
		}
	})

	t.Run("close points agree with haversine", func(t *testing.T) {
		p := MustCoordinate(51.5007, -0.1246)
		q := MustCoordinate(51.5033, -0.1196)
		hv := HaversineKm(p, q, DefaultEarthRadiusKm)
		eq := EquirectangularKm(p, q, DefaultEarthRadiusKm)
		if math.Abs(hv-eq) > 1e-3 {
			t.Errorf("expected approximation within 1m, haversine=%f equirectangular=%f", hv, eq)
		}
	})
}

func TestCalculator_Radius(t *testing.T) {
	if r := (Calculator{}).Radius(); r != DefaultEarthRadiusKm {
		t.Errorf("expected default radius, got %f", r)
	}

	unit := Calculator{Formula: Haversine, RadiusKm: 1}
	d, err := unit.Distance(MustCoordinate(0, 0), MustCoordinate(0, 180))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d-math.Pi) > tolerance {
		t.Errorf("expected pi on the unit sphere, got %f", d)
	}
}

func TestCalculator_UnknownFormula(t *testing.T) {
	_, err := Calculator{Formula: Formula(42)}.Distance(MustCoordinate(0, 0), MustCoordinate(1, 1))
	if err == nil {
		t.Fatal("expected error for unknown formula")
	}
}

func TestParseFormula(t *testing.T) {
	for _, f := range Formulas() {
		got, err := ParseFormula(f.String())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", f, err)
		}
		if got != f {
			t.Errorf("expected %s, got %s", f, got)
		}
	}

	if got, err := ParseFormula("  HaverSine "); err != nil || got != Haversine {
		t.Errorf("expected case-insensitive match, got %v, %v", got, err)
	}

	if _, err := ParseFormula("manhattan"); err == nil {
		t.Error("expected error for unknown formula name")
	}
}

func TestDistanceFunc_ConcurrentUse(t *testing.T) {
	calc := Calculator{Formula: Haversine}
	a := MustCoordinate(10, 10)
	b := MustCoordinate(-20, 40)
	want := HaversineKm(a, b, DefaultEarthRadiusKm)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _ := calc.Distance(a, b)
			if got != want {
				t.Errorf("expected %f, got %f", want, got)
			}
		}()
	}
	wg.Wait()
}
