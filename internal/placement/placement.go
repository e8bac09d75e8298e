// Package placement formats object placements and portal vertices as text
// for map-definition files.
package placement

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPortalFull       = errors.New("portal already has 4 vertices")
	ErrPortalIncomplete = errors.New("portal needs exactly 4 vertices")
	ErrIndexRange       = errors.New("vertex index out of range")
)

// PortalSize is the number of vertices a portal needs.
const PortalSize = 4

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat is a rotation in the editor's component order (w first).
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Identity is the zero rotation.
var Identity = Quat{W: 1}

// Placement is an object's world position and rotation.
type Placement struct {
	Position Vec3 `json:"position"`
	Rotation Quat `json:"rotation"`
}

// FormatPosition renders "x, y, z" with six decimals.
func FormatPosition(v Vec3) string {
	return fmt.Sprintf("%.6f, %.6f, %.6f", v.X, v.Y, v.Z)
}

// FormatRotation renders the quaternion in map order "x, y, z, w".
func FormatRotation(q Quat) string {
	return fmt.Sprintf("%.6f, %.6f, %.6f, %.6f", q.X, q.Y, q.Z, q.W)
}

// FormatXML renders the position and rotation elements of a map entity.
func FormatXML(p Placement) string {
	pos, rot := p.Position, p.Rotation
	return fmt.Sprintf("  <position x=\"%.6f\" y=\"%.6f\" z=\"%.6f\" />\n"+
		"  <rotation x=\"%.6f\" y=\"%.6f\" z=\"%.6f\" w=\"%.6f\" />",
		pos.X, pos.Y, pos.Z, rot.X, rot.Y, rot.Z, rot.W)
}

// Portal collects the world-space corners of a portal, one at a time.
type Portal struct {
	verts []Vec3
}

// NewPortal returns a portal pre-filled with verts. More than PortalSize
// vertices is an error.
func NewPortal(verts ...Vec3) (*Portal, error) {
	p := &Portal{}
	for _, v := range verts {
		if err := p.Add(v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends a vertex.
func (p *Portal) Add(v Vec3) error {
	if len(p.verts) >= PortalSize {
		return ErrPortalFull
	}
	p.verts = append(p.verts, v)
	return nil
}

// Reset clears stored vertices.
func (p *Portal) Reset() {
	p.verts = p.verts[:0]
}

// Len returns the number of stored vertices.
func (p *Portal) Len() int {
	return len(p.verts)
}

// Format renders vertex i.
func (p *Portal) Format(i int) (string, error) {
	if i < 0 || i >= len(p.verts) {
		return "", ErrIndexRange
	}
	return FormatPosition(p.verts[i]), nil
}

// FormatAll renders all four vertices, one per line.
func (p *Portal) FormatAll() (string, error) {
	if len(p.verts) != PortalSize {
		return "", ErrPortalIncomplete
	}
	lines := make([]string, len(p.verts))
	for i, v := range p.verts {
		lines[i] = FormatPosition(v)
	}
	return strings.Join(lines, "\n"), nil
}
