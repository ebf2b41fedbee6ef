// Package wire is the boundary between untyped collaborator rows and the
// typed domain model. Decoders coerce loosely typed values, collect every
// field problem, and then run struct validation; a row either decodes
// completely or is rejected with a VALIDATION error.
package wire

import (
	"encoding/json/v2"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/validation"
)

// timeLayouts are tried in order when parsing timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
	time.DateTime,
	time.DateOnly,
}

// reader pulls typed fields out of a row, remembering the first problem
// per field.
type reader struct {
	row    backend.Row
	prefix string
	errs   map[string]string
}

func newReader(row backend.Row) *reader {
	return &reader{row: row, errs: make(map[string]string)}
}

func (r *reader) fail(field, msg string) {
	key := r.prefix + field
	if _, seen := r.errs[key]; !seen {
		r.errs[key] = msg
	}
}

// nested returns a reader over the object held in field. A missing or
// null field yields ok == false without recording a problem.
func (r *reader) nested(field string) (*reader, bool) {
	v, present := r.row[field]
	if !present || v == nil {
		return nil, false
	}
	obj, isObj := v.(map[string]any)
	if !isObj {
		if s, isStr := v.(string); isStr {
			if err := json.Unmarshal([]byte(s), &obj); err == nil {
				isObj = true
			}
		}
	}
	if !isObj {
		r.fail(field, "must be an object")
		return nil, false
	}
	return &reader{row: obj, prefix: r.prefix + field + ".", errs: r.errs}, true
}

// Object reads a JSON object field as a plain map.
func (r *reader) Object(field string) map[string]any {
	sub, ok := r.nested(field)
	if !ok {
		return nil
	}
	return sub.row
}

func (r *reader) has(field string) bool {
	v, ok := r.row[field]
	return ok && v != nil
}

func (r *reader) String(field string) string {
	switch v := r.row[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	default:
		r.fail(field, "must be a string")
		return ""
	}
}

func (r *reader) Int(field string) int {
	switch v := r.row[field].(type) {
	case nil:
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v != math.Trunc(v) {
			return int(math.Round(v))
		}
		return int(v)
	case string:
		return r.parseInt(field, v)
	default:
		r.fail(field, "must be a number")
		return 0
	}
}

func (r *reader) parseInt(field, s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(math.Round(f))
	}
	r.fail(field, "must be a number")
	return 0
}

func (r *reader) Float(field string) float64 {
	switch v := r.row[field].(type) {
	case nil:
		return 0
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			r.fail(field, "must be a number")
		}
		return f
	default:
		r.fail(field, "must be a number")
		return 0
	}
}

// Bool reads a boolean. Missing fields yield def.
func (r *reader) Bool(field string, def bool) bool {
	switch v := r.row[field].(type) {
	case nil:
		return def
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(field, "must be a boolean")
			return def
		}
		return b
	case float64:
		return v != 0
	default:
		r.fail(field, "must be a boolean")
		return def
	}
}

// BoolPtr reads an optional boolean, for patches.
func (r *reader) BoolPtr(field string) *bool {
	if !r.has(field) {
		return nil
	}
	b := r.Bool(field, false)
	return &b
}

func (r *reader) Time(field string) time.Time {
	switch v := r.row[field].(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
		r.fail(field, "must be a timestamp")
		return time.Time{}
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	default:
		r.fail(field, "must be a timestamp")
		return time.Time{}
	}
}

// Strings reads an array of strings. Postgres array literals ("{a,b}") are
// accepted as well.
func (r *reader) Strings(field string) []string {
	switch v := r.row[field].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				r.fail(field, "must be a list of strings")
				return nil
			}
			out = append(out, s)
		}
		return out
	case string:
		inner := strings.TrimSuffix(strings.TrimPrefix(v, "{"), "}")
		if inner == "" {
			return nil
		}
		var out []string
		for part := range strings.SplitSeq(inner, ",") {
			out = append(out, strings.Trim(part, `"`))
		}
		return out
	default:
		r.fail(field, "must be a list of strings")
		return nil
	}
}

// finish returns the collected coercion problems, then struct validation.
func (r *reader) finish(v any) error {
	if len(r.errs) > 0 {
		return domainerrors.ValidationWithDetails("malformed row", r.errs)
	}
	return validation.Default().Validate(v)
}
