// Package vcolor averages vertex colours and renders them as hex.
package vcolor

import (
	"errors"
	"fmt"
)

// ErrNoColors is returned when there is nothing to average.
var ErrNoColors = errors.New("no colors to average")

// Color is a linear RGB colour with channels in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Average returns the per-channel mean of colors.
func Average(colors []Color) (Color, error) {
	if len(colors) == 0 {
		return Color{}, ErrNoColors
	}
	var sum Color
	for _, c := range colors {
		sum.R += c.R
		sum.G += c.G
		sum.B += c.B
	}
	n := float64(len(colors))
	return Color{R: sum.R / n, G: sum.G / n, B: sum.B / n}, nil
}

// Hex renders c as "#RRGGBB". Channels are clamped and truncated, not rounded.
func Hex(c Color) string {
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return int(v * 255)
}
