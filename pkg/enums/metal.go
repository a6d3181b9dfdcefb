package enums

import "fmt"

// MetalFineness is the hallmark purity of a ring's metal.
type MetalFineness int

const (
	MetalFineness585 MetalFineness = 585
	MetalFineness750 MetalFineness = 750
	MetalFineness925 MetalFineness = 925
)

var validMetalFineness = []MetalFineness{
	MetalFineness585,
	MetalFineness750,
	MetalFineness925,
}

// IsValid reports whether the fineness is one the workshop casts.
func (f MetalFineness) IsValid() bool {
	for _, candidate := range validMetalFineness {
		if candidate == f {
			return true
		}
	}
	return false
}

// MetalColor is the alloy color of a ring.
type MetalColor string

const (
	MetalColorYellowGold MetalColor = "yellow_gold"
	MetalColorWhiteGold  MetalColor = "white_gold"
	MetalColorSilver     MetalColor = "silver"
)

var validMetalColors = []MetalColor{
	MetalColorYellowGold,
	MetalColorWhiteGold,
	MetalColorSilver,
}

// IsValid reports whether the value matches the canonical metal color enum.
func (c MetalColor) IsValid() bool {
	for _, candidate := range validMetalColors {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseMetalColor converts the raw string to MetalColor.
func ParseMetalColor(value string) (MetalColor, error) {
	for _, candidate := range validMetalColors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid metal color %q", value)
}
