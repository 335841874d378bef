package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a measurement that is either a finite number or empty. Empty is
// how the feed reports an unavailable statistic ("NaN", "-", blank) and is
// never coerced to zero.
type Value struct {
	v  float64
	ok bool
}

// Float returns a present value.
func Float(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Empty returns the unavailable state.
func Empty() Value { return Value{} }

// ParseValue coerces feed text into a Value. Anything that does not parse as
// a finite float is empty.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}
	}
	return Float(v)
}

// Get returns the number and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

// IsEmpty reports whether the value is unavailable.
func (v Value) IsEmpty() bool { return !v.ok }

// Equal lets go-cmp and tests compare values without reaching into fields.
func (v Value) Equal(o Value) bool {
	if v.ok != o.ok {
		return false
	}
	return !v.ok || v.v == o.v
}

func (v Value) String() string {
	if !v.ok {
		return ""
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// MarshalJSON writes a number, or null when empty.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.v, 'g', -1, 64)), nil
}

// UnmarshalJSON accepts numbers, null and strings. Strings cover files
// written by older releases, which stored "" or the raw feed text for
// unavailable values.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ParseValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Float(f)
	return nil
}
