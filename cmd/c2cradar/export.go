package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored posting",
	Example: `  c2cradar export --format csv > postings.csv
  c2cradar export --format xlsx -o postings.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv, json or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout; required for xlsx)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	if format == export.FormatXLSX && exportOutput == "" {
		return fmt.Errorf("xlsx export needs --output")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	postings, err := a.store.ListPostings(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := export.Write(w, format, postings); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	if exportOutput != "" {
		a.logger.Info("export written", "path", exportOutput, "format", string(format), "postings", len(postings))
	}
	return nil
}
