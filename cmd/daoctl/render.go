package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var formats = []string{"table", "yaml", "msgpack"}

type writer func(w io.Writer, cols []string, rows []*Record) error

func newWriter(format string) (writer, error) {
	switch format {
	case "table", "":
		return writeTable, nil
	case "yaml":
		return writeYAML, nil
	case "msgpack":
		return writeMsgpack, nil
	}
	return nil, fmt.Errorf("unknown format %q (want table, yaml or msgpack)", format)
}

func writeTable(w io.Writer, cols []string, rows []*Record) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = formatValue(r.Values[c])
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%x'", v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func values(rows []*Record) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	return out
}

func writeYAML(w io.Writer, _ []string, rows []*Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(values(rows)); err != nil {
		return err
	}
	return enc.Close()
}

// writeMsgpack writes the rows as one msgpack array of maps.
func writeMsgpack(w io.Writer, _ []string, rows []*Record) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc.Encode(values(rows))
}
