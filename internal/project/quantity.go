package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// QuantityKind tells how a quantity arrived from the source document.
type QuantityKind uint8

const (
	QuantityNumeric QuantityKind = iota
	QuantityText
)

var ErrInvalidQuantity = errors.New("invalid quantity")

// Quantity is either a number or the raw text read from a price schedule,
// e.g. "1 250,5". Use Normalize to get a value suitable for computation.
type Quantity struct {
	Kind   QuantityKind
	Number float64
	Text   string
}

func NumericQuantity(v float64) Quantity {
	return Quantity{Kind: QuantityNumeric, Number: v}
}

func TextQuantity(s string) Quantity {
	return Quantity{Kind: QuantityText, Text: s}
}

// QuantityFrom builds a quantity from a loosely typed value such as a decoded JSON field.
func QuantityFrom(v any) (Quantity, error) {
	switch val := v.(type) {
	case nil:
		return Quantity{}, fmt.Errorf("%w: missing value", ErrInvalidQuantity)
	case Quantity:
		return val, nil
	case float64:
		return NumericQuantity(val), nil
	case float32:
		return NumericQuantity(float64(val)), nil
	case int:
		return NumericQuantity(float64(val)), nil
	case int64:
		return NumericQuantity(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return TextQuantity(val.String()), nil
		}
		return NumericQuantity(f), nil
	case string:
		return TextQuantity(val), nil
	default:
		return Quantity{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidQuantity, v)
	}
}

// Normalize returns the canonical numeric value. Text accepts either ',' or '.'
// as decimal separator and ignores spaces used as thousands separators.
func (q Quantity) Normalize() (float64, error) {
	if q.Kind == QuantityNumeric {
		if math.IsNaN(q.Number) || math.IsInf(q.Number, 0) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, q.Number)
		}
		return q.Number, nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, q.Text)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty text", ErrInvalidQuantity)
	}

	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	// "1.250.5" cannot be disambiguated reliably
	if strings.Count(cleaned, ".") > 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, q.Text)
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, q.Text)
	}
	return f, nil
}

func (q Quantity) String() string {
	if q.Kind == QuantityText {
		return q.Text
	}
	return strconv.FormatFloat(q.Number, 'f', -1, 64)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.Kind == QuantityText {
		return json.Marshal(q.Text)
	}
	return json.Marshal(q.Number)
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = Quantity{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = TextQuantity(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, data)
	}
	*q = NumericQuantity(f)
	return nil
}
