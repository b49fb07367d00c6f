package report

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Table is a tabular view of a report body.
type Table struct {
	Columns []string
	Rows    [][]string
}

// tabulate lays out data as a table when it is a JSON array of objects.
// Columns are the union of object keys, sorted. Any other shape yields nil,
// and the page shows the raw body instead.
func tabulate(data json.RawMessage) *Table {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []map[string]any
	if err := dec.Decode(&items); err != nil || len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var cols []string
	for _, item := range items {
		if item == nil {
			return nil
		}
		for k := range item {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)

	rows := make([][]string, len(items))
	for i, item := range items {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = cell(item[col])
		}
		rows[i] = row
	}
	return &Table{Columns: cols, Rows: rows}
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// prettyJSON indents data for display, returning it unchanged if it cannot
// be indented.
func prettyJSON(data json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
