package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field is a scalar input value kept as text. It decodes from JSON strings,
// numbers and booleans alike, and from form or query parameters, so rules
// such as numeric or date apply the same way to every transport.
type Field string

// UnmarshalJSON accepts any JSON scalar. null decodes to the empty string.
func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = Field(data)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected a scalar value, got %s", data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = Field(n.String())
	}
	return nil
}

// UnmarshalParam lets echo bind form and query values into a Field.
func (f *Field) UnmarshalParam(param string) error {
	*f = Field(param)
	return nil
}

func (f Field) String() string { return strings.TrimSpace(string(f)) }

// Decimal parses the value as a decimal number.
func (f Field) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(f.String())
}

// Uint parses the value as an unsigned integer id.
func (f Field) Uint() (uint64, error) {
	return strconv.ParseUint(f.String(), 10, 64)
}

// Date parses the value as a calendar date.
func (f Field) Date() (time.Time, error) {
	return ParseDate(f.String())
}

// Bool reports the boolean value and whether the text was recognised.
func (f Field) Bool() (value, ok bool) {
	switch strings.ToLower(f.String()) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate accepts a date with an optional time part and returns the
// calendar day at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Ptr returns a pointer to a Field holding s, for building requests in code.
func Ptr(s string) *Field {
	f := Field(s)
	return &f
}
