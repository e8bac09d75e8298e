package vcolor

import (
	"errors"
	"math"
	"testing"
)

func TestAverage(t *testing.T) {
	got, err := Average([]Color{{R: 1}, {G: 1}, {B: 1}, {R: 1, G: 1, B: 1}})
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	for name, v := range map[string]float64{"r": got.R, "g": got.G, "b": got.B} {
		if math.Abs(v-0.5) > 1e-9 {
			t.Errorf("%s = %v, want 0.5", name, v)
		}
	}
}

func TestAverage_Empty(t *testing.T) {
	if _, err := Average(nil); !errors.Is(err, ErrNoColors) {
		t.Errorf("err = %v, want ErrNoColors", err)
	}
}

func TestHex(t *testing.T) {
	cases := []struct {
		in   Color
		want string
	}{
		{Color{1, 1, 1}, "#FFFFFF"},
		{Color{0, 0, 0}, "#000000"},
		{Color{0.5, 0.5, 0.5}, "#7F7F7F"},
		{Color{2, -1, 0.1}, "#FF0019"},
	}
	for _, c := range cases {
		if got := Hex(c.in); got != c.want {
			t.Errorf("Hex(%+v) = %q, want %q", c.in, got, c.want)
		}
	}
}
