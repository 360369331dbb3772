package game

import "fmt"

// Color identifies one of the two sides of a match.
type Color uint8

const (
	Black Color = iota
	Red
)

// Colors lists both sides in index order.
var Colors = [2]Color{Black, Red}

func (c Color) Valid() bool {
	return c == Black || c == Red
}

func (c Color) Other() Color {
	return 1 - c
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

func ParseColor(s string) (Color, error) {
	switch s {
	case "black":
		return Black, nil
	case "red":
		return Red, nil
	}
	return 0, fmt.Errorf("unknown color %q", s)
}
