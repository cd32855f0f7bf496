package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/amishk599/c2cradar/internal/scheduler"
)

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row(header))
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders a task result's log attributes as a two-column table
// followed by its item failures.
func printResult(title string, res scheduler.Result) error {
	if res == nil {
		return nil
	}
	v := res.LogValue().Resolve()

	if jsonOutput {
		out := map[string]any{}
		if v.Kind() == slog.KindGroup {
			for _, a := range v.Group() {
				out[a.Key] = a.Value.Any()
			}
		}
		var failures []string
		for _, f := range res.Failures() {
			failures = append(failures, f.Error())
		}
		out["failures"] = failures
		return printJSON(out)
	}

	t := newTable(title, "")
	if v.Kind() == slog.KindGroup {
		for _, a := range v.Group() {
			t.AppendRow(table.Row{a.Key, a.Value.String()})
		}
	}
	t.Render()

	for _, f := range res.Failures() {
		fmt.Fprintf(os.Stdout, "  - %v\n", f)
	}
	return nil
}
