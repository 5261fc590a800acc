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

// historyCellWidth caps free-text columns such as subjects and errors.
const historyCellWidth = 48

type tableOptions struct {
	aligns    []columnAlignment
	maxWidths map[int]int
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return renderTableWithOptions(headers, rows, tableOptions{aligns: aligns})
}

func renderTableWithOptions(headers []string, rows [][]string, opts tableOptions) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(opts.aligns) && opts.aligns[i] == alignRight {
			align = text.AlignRight
		}
		cc := table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
		if width, ok := opts.maxWidths[i]; ok && width > 0 {
			cc.WidthMax = width
			cc.WidthMaxEnforcer = text.Trim
		}
		columnConfigs = append(columnConfigs, cc)
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
