package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// cellColor picks a colour for one rendered cell; nil leaves cells plain.
type cellColor func(row, column int, value string) text.Colors

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, colors cellColor) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for r, row := range rows {
		out := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			if colors != nil {
				if c := colors(r, i, value); len(c) > 0 {
					value = c.Sprint(value)
				}
			}
			out[i] = value
		}
		tw.AppendRow(out)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
