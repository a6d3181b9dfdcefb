package cart

import (
	"encoding/json"

	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Key identifies a cart line. Two keys are equal only when the product id
// matches and size and color are both absent or both the same string.
type Key struct {
	ProductID string
	Size      types.OptionalString
	Color     types.OptionalString
}

// NewKey builds a key for productID with the given variant selection.
func NewKey(productID string, size, color types.OptionalString) Key {
	return Key{ProductID: productID, Size: size, Color: color}
}

// ProductKey is the key of a product added without size or color.
func ProductKey(productID string) Key {
	return Key{ProductID: productID}
}

// Product is the catalog entry a line is created from.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Images      []string
	MaxQuantity *int
}

// Line is one entry in the cart. Lines are stored as a JSON array under the
// cart key.
type Line struct {
	ProductID     string               `json:"productId"`
	Name          string               `json:"name"`
	UnitPrice     decimal.Decimal      `json:"unitPrice"`
	Quantity      int                  `json:"quantity"`
	SelectedSize  types.OptionalString `json:"selectedSize,omitzero"`
	SelectedColor types.OptionalString `json:"selectedColor,omitzero"`
	ImageRef      types.OptionalString `json:"imageRef,omitzero"`
	MaxQuantity   *int                 `json:"maxQuantity,omitempty"`
}

// MarshalJSON writes unitPrice as a JSON number. Restore accepts both numbers
// and quoted strings.
func (l Line) MarshalJSON() ([]byte, error) {
	type plain Line
	return json.Marshal(struct {
		plain
		UnitPrice json.Number `json:"unitPrice"`
	}{plain: plain(l), UnitPrice: json.Number(l.UnitPrice.String())})
}

func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, Size: l.SelectedSize, Color: l.SelectedColor}
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) exceeds(quantity int) bool {
	return l.MaxQuantity != nil && quantity > *l.MaxQuantity
}

func newLine(p Product, quantity int, size, color types.OptionalString) Line {
	line := Line{
		ProductID:     p.ID,
		Name:          p.Name,
		UnitPrice:     p.Price,
		Quantity:      quantity,
		SelectedSize:  size,
		SelectedColor: color,
	}
	if len(p.Images) > 0 {
		line.ImageRef = types.Some(p.Images[0])
	}
	line.MaxQuantity = positiveLimit(p.MaxQuantity)
	return line
}

// positiveLimit copies limit, treating a missing or non-positive value as no
// limit.
func positiveLimit(limit *int) *int {
	if limit == nil || *limit < 1 {
		return nil
	}
	v := *limit
	return &v
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, line := range lines {
		if line.MaxQuantity != nil {
			limit := *line.MaxQuantity
			line.MaxQuantity = &limit
		}
		out[i] = line
	}
	return out
}

// normalizeLines drops lines that could not have been produced by the engine
// and merges duplicate keys into the first occurrence.
func normalizeLines(lines []Line) (kept []Line, dropped int) {
	index := make(map[Key]int, len(lines))
	kept = make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity < 1 || line.UnitPrice.IsNegative() {
			dropped++
			continue
		}
		line.MaxQuantity = positiveLimit(line.MaxQuantity)
		if i, ok := index[line.Key()]; ok {
			kept[i].Quantity += line.Quantity
			dropped++
			continue
		}
		index[line.Key()] = len(kept)
		kept = append(kept, line)
	}
	return kept, dropped
}
