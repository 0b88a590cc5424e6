// Package money provides the fixed-point amount and percentage types used for
// invoice totals. Amounts are serialized with exactly two fraction digits.
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

const Scale = 2

var (
	ErrInvalidAmount  = errors.New("invalid monetary amount")
	ErrInvalidPercent = errors.New("invalid percentage")

	hundred = decimal.NewFromInt(100)
)

type Amount struct {
	d decimal.Decimal
}

var Zero = Amount{}

func New(d decimal.Decimal) Amount {
	return Amount{d: d}
}

func FromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

func FromFloat(v float64) Amount {
	return Amount{d: decimal.NewFromFloat(v).Round(Scale)}
}

// Parse accepts plain decimal strings such as "120000" or "120000.50". Extra
// fraction digits are rounded half away from zero so a parsed amount equals
// its stored form.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{d: d.Round(Scale)}, nil
}

func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Round rounds half away from zero to two places.
func (a Amount) Round() Amount { return Amount{d: a.d.Round(Scale)} }

func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) IsNegative() bool { return a.d.IsNegative() }

func (a Amount) IsPositive() bool { return a.d.IsPositive() }

func (a Amount) String() string { return a.d.StringFixed(Scale) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a JSON number, a numeric string or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Zero
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(a.String())
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	d, err := decodeBSONDecimal(t, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	*a = Amount{d: d.Round(Scale)}
	return nil
}

// Sum adds every amount without intermediate rounding.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return Amount{d: total}
}

// Percent is a tax rate in the range [0, 100].
type Percent struct {
	d decimal.Decimal
}

func PercentFromInt(v int64) Percent {
	return Percent{d: decimal.NewFromInt(v)}
}

// ParsePercent accepts "10", "10.5", "10%" and the empty string (zero).
func ParsePercent(s string) (Percent, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return Percent{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percent{}, fmt.Errorf("%w: %q", ErrInvalidPercent, s)
	}
	p := Percent{d: d}
	if err := p.Validate(); err != nil {
		return Percent{}, err
	}
	return p, nil
}

func (p Percent) Validate() error {
	if p.d.IsNegative() || p.d.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidPercent, p.d.String())
	}
	return nil
}

// Of returns p percent of a, unrounded.
func (p Percent) Of(a Amount) Amount {
	return Amount{d: a.d.Mul(p.d).Div(hundred)}
}

func (p Percent) IsZero() bool { return p.d.IsZero() }

func (p Percent) String() string { return p.d.String() }

func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Percent{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPercent, err)
		}
	}
	parsed, err := ParsePercent(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Percent) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(p.String())
}

func (p *Percent) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	d, err := decodeBSONDecimal(t, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPercent, err)
	}
	*p = Percent{d: d}
	return nil
}

func decodeBSONDecimal(t bsontype.Type, data []byte) (decimal.Decimal, error) {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		s := strings.TrimSuffix(strings.TrimSpace(rv.StringValue()), "%")
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	case bsontype.Double:
		return decimal.NewFromFloat(rv.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt(int64(rv.Int32())), nil
	case bsontype.Int64:
		return decimal.NewFromInt(rv.Int64()), nil
	case bsontype.Decimal128:
		return decimal.NewFromString(rv.Decimal128().String())
	case bsontype.Null, bsontype.Undefined:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported bson type %s", t)
	}
}
