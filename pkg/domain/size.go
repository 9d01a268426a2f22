package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DimensionKind selects how a Dimension resolves against its parent.
type DimensionKind uint8

const (
	DimensionAuto DimensionKind = iota
	DimensionPoints
	DimensionPercent
)

// Dimension is a length that is either unconstrained, absolute, or relative to
// the parent. The zero value is Auto.
type Dimension struct {
	Kind  DimensionKind
	Value float64
}

// Points returns an absolute dimension.
func Points(v float64) Dimension { return Dimension{Kind: DimensionPoints, Value: v} }

// Percent returns a dimension relative to the parent, where 50 means half.
func Percent(v float64) Dimension { return Dimension{Kind: DimensionPercent, Value: v} }

// Auto returns an unconstrained dimension.
func Auto() Dimension { return Dimension{} }

// IsAuto reports whether the dimension leaves the length unconstrained.
func (d Dimension) IsAuto() bool { return d.Kind == DimensionAuto }

// Resolve returns the length for a parent of the given size, or autoValue when
// the dimension is Auto. Percentages of an unbounded parent resolve to autoValue.
func (d Dimension) Resolve(autoValue, parent float64) float64 {
	switch d.Kind {
	case DimensionPoints:
		return d.Value
	case DimensionPercent:
		if math.IsNaN(parent) || math.IsInf(parent, 0) {
			return autoValue
		}
		return d.Value * parent / 100
	default:
		return autoValue
	}
}

func (d Dimension) String() string {
	switch d.Kind {
	case DimensionPoints:
		return strconv.FormatFloat(d.Value, 'f', -1, 64)
	case DimensionPercent:
		return strconv.FormatFloat(d.Value, 'f', -1, 64) + "%"
	default:
		return "auto"
	}
}

// ParseDimension accepts "auto", "" (auto), "120" (points) and "50%" (percent).
func ParseDimension(s string) (Dimension, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return Auto(), nil
	}
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return Dimension{}, fmt.Errorf("invalid percent dimension %q: %w", s, err)
		}
		return Percent(v), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Dimension{}, fmt.Errorf("invalid dimension %q: %w", s, err)
	}
	return Points(v), nil
}

// MarshalText implements encoding.TextMarshaler (used by JSON and YAML).
func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by JSON and YAML).
func (d *Dimension) UnmarshalText(text []byte) error {
	parsed, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SizeConstraint is the size data model a component declares. Only the data
// model lives here; layout belongs to the rendering backend.
type SizeConstraint struct {
	Width     Dimension `json:"width" yaml:"width"`
	Height    Dimension `json:"height" yaml:"height"`
	MinWidth  Dimension `json:"min_width" yaml:"min_width"`
	MaxWidth  Dimension `json:"max_width" yaml:"max_width"`
	MinHeight Dimension `json:"min_height" yaml:"min_height"`
	MaxHeight Dimension `json:"max_height" yaml:"max_height"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SizeRange bounds the sizes a component may take.
type SizeRange struct {
	Min Size `json:"min"`
	Max Size `json:"max"`
}

// Resolve turns the constraint into a concrete range for a parent of the given
// size. An exact width or height pins both ends of that axis; otherwise the
// min/max dimensions apply, and a max below its min is raised to the min.
func (c SizeConstraint) Resolve(parent Size) SizeRange {
	inf := math.Inf(1)

	minW := c.MinWidth.Resolve(0, parent.Width)
	maxW := c.MaxWidth.Resolve(inf, parent.Width)
	minH := c.MinHeight.Resolve(0, parent.Height)
	maxH := c.MaxHeight.Resolve(inf, parent.Height)

	if !c.Width.IsAuto() {
		w := clamp(c.Width.Resolve(0, parent.Width), minW, maxW)
		minW, maxW = w, w
	}
	if !c.Height.IsAuto() {
		h := clamp(c.Height.Resolve(0, parent.Height), minH, maxH)
		minH, maxH = h, h
	}
	if maxW < minW {
		maxW = minW
	}
	if maxH < minH {
		maxH = minH
	}

	return SizeRange{
		Min: Size{Width: minW, Height: minH},
		Max: Size{Width: maxW, Height: maxH},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
