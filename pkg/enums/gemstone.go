package enums

import "fmt"

// GemstoneType enumerates the stones a design may carry.
type GemstoneType string

const (
	GemstoneDiamond  GemstoneType = "diamond"
	GemstoneSapphire GemstoneType = "sapphire"
	GemstoneRuby     GemstoneType = "ruby"
)

var validGemstoneTypes = []GemstoneType{
	GemstoneDiamond,
	GemstoneSapphire,
	GemstoneRuby,
}

func (g GemstoneType) IsValid() bool {
	for _, candidate := range validGemstoneTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGemstoneType converts the raw string to GemstoneType.
func ParseGemstoneType(value string) (GemstoneType, error) {
	for _, candidate := range validGemstoneTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gemstone type %q", value)
}

// GemstoneSize enumerates stone sizes.
type GemstoneSize string

const (
	GemstoneSizeSmall  GemstoneSize = "small"
	GemstoneSizeMedium GemstoneSize = "medium"
	GemstoneSizeLarge  GemstoneSize = "large"
)

var validGemstoneSizes = []GemstoneSize{
	GemstoneSizeSmall,
	GemstoneSizeMedium,
	GemstoneSizeLarge,
}

func (s GemstoneSize) IsValid() bool {
	for _, candidate := range validGemstoneSizes {
		if candidate == s {
			return true
		}
	}
	return false
}
