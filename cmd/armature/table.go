package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable renders rows under the given headers in the shared rounded
// style. Column indexes listed in centered get centered cells, used for the
// yes/no phase flag columns.
func renderTable(headers []string, rows [][]string, centered ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	if len(centered) > 0 {
		configs := make([]table.ColumnConfig, 0, len(centered))
		for _, idx := range centered {
			configs = append(configs, table.ColumnConfig{
				Number:      idx + 1,
				Align:       text.AlignCenter,
				AlignHeader: text.AlignLeft,
			})
		}
		tw.SetColumnConfigs(configs)
	}

	return tw.Render()
}
