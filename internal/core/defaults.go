package core

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Every numeric field of a save payload runs through this table: absent,
// null or non-numeric values fall back to the listed default. Loose client
// input (quoted numbers, empty strings) coerces the same way on every save
// path.
var recordFields = []struct {
	name string
	def  string
	set  func(*DailyRecord, string) error
}{
	{"volume", "0", func(r *DailyRecord, v string) (err error) { r.Volume, err = decimal.NewFromString(v); return }},
	{"points_balance", "2", func(r *DailyRecord, v string) (err error) { r.PointsBalance, err = parseInt(v); return }},
	{"points_trading", "0", func(r *DailyRecord, v string) (err error) { r.PointsTrading, err = parseInt(v); return }},
	{"points_consumed", "0", func(r *DailyRecord, v string) (err error) { r.PointsConsumed, err = parseInt(v); return }},
	{"loss", "0", func(r *DailyRecord, v string) (err error) { r.Loss, err = decimal.NewFromString(v); return }},
	{"income", "0", func(r *DailyRecord, v string) (err error) { r.Income, err = decimal.NewFromString(v); return }},
}

func parseInt(v string) (int, error) {
	// Integer fields tolerate a decimal point the way loose form input does.
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	if v == "" || v == "-" {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(v)
}

// BuildRecord assembles a DailyRecord from a raw save payload, applying the
// field default table. It fails only when the date is missing or malformed.
func BuildRecord(payload map[string]json.RawMessage) (DailyRecord, error) {
	var r DailyRecord

	raw, ok := payload["date"]
	if !ok {
		return r, ErrMissingDate
	}
	if err := json.Unmarshal(raw, &r.Date); err != nil || r.Date.IsZero() {
		return r, ErrMissingDate
	}

	for _, f := range recordFields {
		v := numericString(payload[f.name])
		if v == "" {
			v = f.def
		}
		if err := f.set(&r, v); err != nil {
			// Non-numeric input falls back to the default, it is not an error.
			if err := f.set(&r, f.def); err != nil {
				return r, err
			}
		}
	}

	return r.WithNet(), nil
}

// numericString extracts a numeric literal from a raw JSON value, accepting
// bare numbers and quoted numbers. Anything else yields "".
func numericString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return ""
		}
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return ""
	}
	return s
}
