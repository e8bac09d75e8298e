package placement

import (
	"errors"
	"testing"
)

func TestFormatPosition(t *testing.T) {
	got := FormatPosition(Vec3{X: 1, Y: -2.5, Z: 0.1234567})
	if want := "1.000000, -2.500000, 0.123457"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatRotation_ReordersWLast(t *testing.T) {
	got := FormatRotation(Quat{W: 0.5, X: 0.1, Y: 0.2, Z: 0.3})
	if want := "0.100000, 0.200000, 0.300000, 0.500000"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := FormatRotation(Identity); got != "0.000000, 0.000000, 0.000000, 1.000000" {
		t.Errorf("identity = %q", got)
	}
}

func TestFormatXML(t *testing.T) {
	got := FormatXML(Placement{
		Position: Vec3{X: 10, Y: 20, Z: 30},
		Rotation: Quat{W: 1},
	})
	want := "  <position x=\"10.000000\" y=\"20.000000\" z=\"30.000000\" />\n" +
		"  <rotation x=\"0.000000\" y=\"0.000000\" z=\"0.000000\" w=\"1.000000\" />"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestPortal(t *testing.T) {
	p := &Portal{}
	if _, err := p.FormatAll(); !errors.Is(err, ErrPortalIncomplete) {
		t.Errorf("empty FormatAll err = %v", err)
	}
	for i := 0; i < PortalSize; i++ {
		if err := p.Add(Vec3{X: float64(i)}); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if err := p.Add(Vec3{}); !errors.Is(err, ErrPortalFull) {
		t.Errorf("fifth Add err = %v, want ErrPortalFull", err)
	}

	line, err := p.Format(2)
	if err != nil || line != "2.000000, 0.000000, 0.000000" {
		t.Errorf("Format(2) = %q, %v", line, err)
	}
	if _, err := p.Format(4); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Format(4) err = %v", err)
	}
	if _, err := p.Format(-1); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Format(-1) err = %v", err)
	}

	all, err := p.FormatAll()
	if err != nil {
		t.Fatalf("FormatAll: %v", err)
	}
	want := "0.000000, 0.000000, 0.000000\n1.000000, 0.000000, 0.000000\n" +
		"2.000000, 0.000000, 0.000000\n3.000000, 0.000000, 0.000000"
	if all != want {
		t.Errorf("FormatAll = %q", all)
	}

	p.Reset()
	if p.Len() != 0 {
		t.Errorf("Len after Reset = %d", p.Len())
	}
}

func TestNewPortal_TooMany(t *testing.T) {
	if _, err := NewPortal(Vec3{}, Vec3{}, Vec3{}, Vec3{}, Vec3{}); !errors.Is(err, ErrPortalFull) {
		t.Errorf("err = %v, want ErrPortalFull", err)
	}
}
