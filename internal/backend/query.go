package backend

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Match reports whether row satisfies every filter.
func Match(row Row, filters []Filter) bool {
	for _, f := range filters {
		if !matchOne(row[f.Column], f) {
			return false
		}
	}
	return true
}

func matchOne(v any, f Filter) bool {
	switch f.Op {
	case OpEq, "":
		return v != nil && sameValue(v, f.Value)
	case OpIn:
		return slices.ContainsFunc(asList(f.Value), func(x any) bool { return sameValue(v, x) })
	case OpContains:
		have := asList(v)
		for _, want := range asList(f.Value) {
			if !slices.ContainsFunc(have, func(x any) bool { return sameValue(x, want) }) {
				return false
			}
		}
		return true
	case OpGte:
		return v != nil && Compare(v, f.Value) >= 0
	case OpLte:
		return v != nil && Compare(v, f.Value) <= 0
	default:
		return false
	}
}

// Evaluate applies q's filters, ordering and limit to rows. The input slice
// is not modified.
func Evaluate(rows []Row, q Query) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if Match(r, q.Filters) {
			out = append(out, project(r, q.Columns))
		}
	}

	if len(q.Order) > 0 {
		slices.SortStableFunc(out, func(a, b Row) int {
			for _, o := range q.Order {
				c := Compare(a[o.Column], b[o.Column])
				if o.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func project(r Row, columns []string) Row {
	if len(columns) == 0 || slices.Contains(columns, "*") {
		return r
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Compare orders two loosely typed values: numbers numerically, times
// chronologically, everything else by string form. Nil sorts first.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := toTime(a); ok {
		if y, ok := toTime(b); ok {
			return x.Compare(y)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sameValue(a, b any) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case fmt.Stringer:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// SplitConflictKey splits a comma separated upsert conflict target.
func SplitConflictKey(key string) []string {
	var out []string
	for part := range strings.SplitSeq(key, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"id"}
	}
	return out
}

// SameKey reports whether a and b agree on every key column.
func SameKey(a, b Row, keys []string) bool {
	for _, k := range keys {
		if a[k] == nil || b[k] == nil || !sameValue(a[k], b[k]) {
			return false
		}
	}
	return true
}
