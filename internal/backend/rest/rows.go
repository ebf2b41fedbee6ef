package rest

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goodaideas/goodaideas/internal/backend"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

const objectMediaType = "application/vnd.pgrst.object+json"

// Select implements backend.Rows.
func (c *Client) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	params, err := queryParams(q)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, request{
		op:     "select",
		method: http.MethodGet,
		path:   "/rest/v1/" + q.Table,
		query:  params,
		table:  q.Table,
	})
	if err != nil {
		return nil, err
	}
	return decodeRows("select", data)
}

// SelectOne implements backend.Rows. The object media type makes the
// service reply 406 with PGRST116 unless exactly one row matches.
func (c *Client) SelectOne(ctx context.Context, q backend.Query) (backend.Row, error) {
	params, err := queryParams(q)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, request{
		op:     "select_one",
		method: http.MethodGet,
		path:   "/rest/v1/" + q.Table,
		query:  params,
		header: http.Header{"Accept": {objectMediaType}},
		table:  q.Table,
	})
	if err != nil {
		return nil, err
	}

	var row backend.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "decode select_one response")
	}
	if row == nil {
		return nil, backend.NotFound(q.Table)
	}
	return row, nil
}

// Insert implements backend.Rows.
func (c *Client) Insert(ctx context.Context, table string, rows []backend.Row) ([]backend.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	data, err := c.do(ctx, request{
		op:     "insert",
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		body:   rows,
		header: http.Header{"Prefer": {"return=representation"}},
		table:  table,
	})
	if err != nil {
		return nil, err
	}
	return decodeRows("insert", data)
}

// Upsert implements backend.Rows. Rows that collide on conflictKey are
// merged rather than rejected.
func (c *Client) Upsert(ctx context.Context, table string, row backend.Row, conflictKey string) (backend.Row, error) {
	params := url.Values{}
	params.Set("on_conflict", strings.Join(backend.SplitConflictKey(conflictKey), ","))

	data, err := c.do(ctx, request{
		op:     "upsert",
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		query:  params,
		body:   []backend.Row{row},
		header: http.Header{"Prefer": {"resolution=merge-duplicates,return=representation"}},
		table:  table,
	})
	if err != nil {
		return nil, err
	}

	out, err := decodeRows("upsert", data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return row, nil
	}
	return out[0], nil
}

// Delete implements backend.Rows. At least one filter is required; the
// service refuses unfiltered deletes as well.
func (c *Client) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	if len(filters) == 0 {
		return domainerrors.Validation("delete requires at least one filter")
	}
	params := url.Values{}
	for _, f := range filters {
		v, err := encodeFilter(f)
		if err != nil {
			return err
		}
		params.Add(f.Column, v)
	}

	_, err := c.do(ctx, request{
		op:     "delete",
		method: http.MethodDelete,
		path:   "/rest/v1/" + table,
		query:  params,
		table:  table,
	})
	return err
}

// queryParams renders q in the row endpoint's query syntax:
// select=a,b&col=eq.v&order=col.desc&limit=n.
func queryParams(q backend.Query) (url.Values, error) {
	if q.Table == "" {
		return nil, domainerrors.Validation("query table is required")
	}
	params := url.Values{}

	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ",")
	}
	params.Set("select", cols)

	for _, f := range q.Filters {
		v, err := encodeFilter(f)
		if err != nil {
			return nil, err
		}
		params.Add(f.Column, v)
	}

	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params, nil
}

func encodeFilter(f backend.Filter) (string, error) {
	switch f.Op {
	case backend.OpEq, "":
		return "eq." + scalar(f.Value), nil
	case backend.OpGte:
		return "gte." + scalar(f.Value), nil
	case backend.OpLte:
		return "lte." + scalar(f.Value), nil
	case backend.OpIn:
		return "in.(" + list(f.Value) + ")", nil
	case backend.OpContains:
		return "cs.{" + list(f.Value) + "}", nil
	default:
		return "", domainerrors.Validationf("unsupported filter operator %q", f.Op)
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// list joins values with commas, quoting any that contain reserved
// characters.
func list(v any) string {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []any:
		items = make([]string, len(t))
		for i, x := range t {
			items[i] = scalar(x)
		}
	default:
		items = []string{scalar(v)}
	}

	out := make([]string, len(items))
	for i, s := range items {
		if strings.ContainsAny(s, `,(){}" `) {
			s = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
		}
		out[i] = s
	}
	return strings.Join(out, ",")
}
