package tour

import "testing"

func TestNewAccumulator(t *testing.T) {
	if _, ok := NewAccumulator(0).(GreatCircle); !ok {
		t.Fatalf("expected unfiltered accumulator by default")
	}
	if m, ok := NewAccumulator(5).(MinDisplacement); !ok || m.Meters != 5 {
		t.Fatalf("expected min displacement accumulator")
	}
}

func TestGreatCircleCountsJitter(t *testing.T) {
	d, advance := GreatCircle{}.Delta(Position{Lat: 40, Lng: 45}, Position{Lat: 40.00001, Lng: 45})
	if d <= 0 || !advance {
		t.Fatalf("expected jitter to accrue distance")
	}
}

func TestMinDisplacementBelowThreshold(t *testing.T) {
	d, advance := MinDisplacement{Meters: 10}.Delta(Position{Lat: 40, Lng: 45}, Position{Lat: 40.00001, Lng: 45})
	if d != 0 || advance {
		t.Fatalf("expected move below threshold to be ignored")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusError} {
		if !s.Terminal() {
			t.Fatalf("expected %s terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusStarting, StatusActive, StatusPaused} {
		if s.Terminal() {
			t.Fatalf("expected %s not terminal", s)
		}
	}
}
