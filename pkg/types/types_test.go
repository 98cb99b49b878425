package types

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		in   PredictionInput
		want PredictionInput
	}{
		{
			name: "in range is unchanged",
			in:   PredictionInput{Price: 20, DLCCount: 3, ReleaseYear: 2026, MetacriticScore: 75},
			want: PredictionInput{Price: 20, DLCCount: 3, ReleaseYear: 2026, MetacriticScore: 75},
		},
		{
			name: "below range raised to minimum",
			in:   PredictionInput{Price: -5, DLCCount: -1, ReleaseYear: 1999, MetacriticScore: 0},
			want: PredictionInput{Price: 0, DLCCount: 0, ReleaseYear: 2010, MetacriticScore: 10},
		},
		{
			name: "above range lowered to maximum",
			in:   PredictionInput{Price: 999, DLCCount: 1000, ReleaseYear: 2100, MetacriticScore: 101},
			want: PredictionInput{Price: 150, DLCCount: 250, ReleaseYear: 2030, MetacriticScore: 100},
		},
		{
			name: "NaN price becomes free",
			in:   PredictionInput{Price: math.NaN(), DLCCount: 1, ReleaseYear: 2020, MetacriticScore: 50},
			want: PredictionInput{Price: 0, DLCCount: 1, ReleaseYear: 2020, MetacriticScore: 50},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Clamp(); got != tc.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestLifecycleState_Terminal(t *testing.T) {
	for s, want := range map[LifecycleState]bool{
		StateIdle:      false,
		StatePending:   false,
		StateSucceeded: true,
		StateFailed:    true,
	} {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}
