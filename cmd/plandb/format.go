package main

import (
	"fmt"
	"io"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/server"
	"github.com/olekukonko/tablewriter"
)

func printResult(w io.Writer, res *server.Result) {
	if !res.HasRows() {
		switch res.Kind {
		case parse.KindInsert, parse.KindUpdate, parse.KindDelete, parse.KindAnalyze:
			fmt.Fprintf(w, "OK, %d row%s affected\n", res.RowsAffected, plural(res.RowsAffected))
		default:
			fmt.Fprintln(w, "OK")
		}
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(res.Columns)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Fprintf(w, "(%d row%s)\n", len(res.Rows), plural(len(res.Rows)))
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "ERROR (%s): %v\n", dberr.Code(err), err)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
