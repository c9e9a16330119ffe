package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"catalog/pkg/apperrors"
)

// Product represents a single catalog record.
//
// The ID is assigned by the store on create and is immutable afterwards; it
// is never read back from a request payload. Price is kept as a decimal so
// cent-level values survive the serialize/deserialize round-trip exactly.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"type:varchar(63);not null" validate:"required,max=63"`
	Description string          `json:"description" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	Available   bool            `json:"available"`
}

// CanonicalPrice normalizes a decimal to exactly two places so equality
// comparisons agree regardless of how the value was written ("5.4" vs "5.40").
func CanonicalPrice(d decimal.Decimal) decimal.Decimal {
	c, _ := decimal.NewFromString(d.Round(2).StringFixed(2))
	return c
}

// ParsePrice coerces a wire primitive (JSON number, numeric string, or
// float) into a canonical non-negative price.
func ParsePrice(value interface{}) (decimal.Decimal, error) {
	var d decimal.Decimal
	var err error

	switch v := value.(type) {
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return decimal.Decimal{}, apperrors.Validationf("invalid type for price: %T", value)
	}
	if err != nil {
		return decimal.Decimal{}, apperrors.Validationf("invalid value for price: %v", value)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, apperrors.Validation("price must be a non-negative number")
	}
	return CanonicalPrice(d), nil
}

// Deserialize populates the Product from a wire payload (field name to
// primitive value). Types are checked eagerly: a malformed boolean or
// numeric value is a rejection, never a silent default. Unknown keys,
// including "id", are ignored. On failure the receiver is left untouched.
func (p *Product) Deserialize(payload map[string]interface{}) error {
	var next Product

	name, ok := payload["name"]
	if !ok {
		return apperrors.Validation("invalid product: missing name")
	}
	nameStr, ok := name.(string)
	if !ok || nameStr == "" {
		return apperrors.Validation("invalid product: missing name")
	}
	next.Name = nameStr

	if desc, ok := payload["description"]; ok {
		descStr, ok := desc.(string)
		if !ok {
			return apperrors.Validationf("invalid type for description: %T", desc)
		}
		next.Description = descStr
	}

	if avail, ok := payload["available"]; ok {
		availBool, ok := avail.(bool)
		if !ok {
			return apperrors.Validationf("invalid type for boolean [available]: %T", avail)
		}
		next.Available = availBool
	}

	price, ok := payload["price"]
	if !ok {
		return apperrors.Validation("invalid product: missing price")
	}
	parsed, err := ParsePrice(price)
	if err != nil {
		return err
	}
	next.Price = parsed

	// All fields validated; apply the payload as a whole.
	p.Name = next.Name
	p.Description = next.Description
	p.Available = next.Available
	p.Price = next.Price
	return nil
}

// Serialize converts the Product into its wire mapping. Price is rendered
// as a two-decimal JSON number and available as a native boolean.
func (p *Product) Serialize() map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       json.Number(p.Price.StringFixed(2)),
		"available":   p.Available,
	}
}
