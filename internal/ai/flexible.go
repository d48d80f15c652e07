package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Models do not always respect the numeric types in a schema hint. These
// types accept numbers, numeric strings and pt-BR formatted amounts.

// FlexibleFloat decodes 12.5, "12.5", "12,5" and "R$ 1.234,56". Anything else
// is a decode error, so a required score the model wrote as "alto" fails the
// invocation.
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if d, ok := parseLooseNumber(s); ok {
			*f = FlexibleFloat(d.InexactFloat64())
			return nil
		}
	}

	return fmt.Errorf("not a number: %s", data)
}

func (f FlexibleFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// FlexibleInt is FlexibleFloat rounded to the nearest integer.
type FlexibleInt int

func (fi *FlexibleInt) UnmarshalJSON(data []byte) error {
	var f FlexibleFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*fi = FlexibleInt(math.Round(float64(f)))
	return nil
}

func (fi FlexibleInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(fi))
}

// LooseFloat is FlexibleFloat for optional fields: an unreadable value
// decodes as zero instead of failing the whole payload.
type LooseFloat float64

func (l *LooseFloat) UnmarshalJSON(data []byte) error {
	var f FlexibleFloat
	if err := f.UnmarshalJSON(data); err != nil {
		*l = 0
		return nil
	}
	*l = LooseFloat(f)
	return nil
}

func (l LooseFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(l))
}

// LooseInt is the integer form of LooseFloat.
type LooseInt int

func (l *LooseInt) UnmarshalJSON(data []byte) error {
	var fi FlexibleInt
	if err := fi.UnmarshalJSON(data); err != nil {
		*l = 0
		return nil
	}
	*l = LooseInt(fi)
	return nil
}

func (l LooseInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(l))
}

// FlexibleBool handles both string and bool JSON values.
type FlexibleBool bool

func (fb *FlexibleBool) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ToLower(strings.TrimSpace(s))
		*fb = FlexibleBool(s == "true" || s == "1" || s == "sim" || s == "yes")
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*fb = FlexibleBool(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*fb = FlexibleBool(n != 0)
		return nil
	}

	*fb = false
	return nil
}

func (fb FlexibleBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(fb))
}

// parseLooseNumber reads a number written either as 1234.56 or 1.234,56.
func parseLooseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	if strings.Contains(s, ",") {
		// pt-BR: dots group thousands, comma is the decimal mark.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
