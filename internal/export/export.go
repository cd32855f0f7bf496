// Package export writes postings as CSV, JSON or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amishk599/c2cradar/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, json or xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json or xlsx)", s)
	}
}

// Columns is the header row of the tabular formats.
var Columns = []string{
	"ID", "Title", "Company", "Location", "Job Type", "Source",
	"Posted Date", "Salary Min", "Salary Max", "Is Corp to Corp",
	"Relevance Score", "Is Applied", "Is Favorited", "Source URL",
}

const sheetName = "Postings"

// Write encodes postings to w in format f.
func Write(w io.Writer, f Format, postings []model.Posting) error {
	switch f {
	case FormatCSV:
		return CSV(w, postings)
	case FormatJSON:
		return JSON(w, postings)
	case FormatXLSX:
		return XLSX(w, postings)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// CSV writes one header row and one row per posting.
func CSV(w io.Writer, postings []model.Posting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range postings {
		if err := cw.Write(row(p)); err != nil {
			return fmt.Errorf("write csv row %d: %w", p.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(p model.Posting) []string {
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.Title,
		p.Company,
		p.Location,
		p.JobType,
		p.Source,
		formatTime(p.PostedDate),
		formatFloat(p.SalaryMin),
		formatFloat(p.SalaryMax),
		strconv.FormatBool(p.IsCorpToCorp),
		strconv.FormatFloat(p.RelevanceScore, 'f', 3, 64),
		strconv.FormatBool(p.IsApplied),
		strconv.FormatBool(p.IsFavorited),
		p.SourceURL,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// record is the JSON shape of one exported posting.
type record struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Location       string          `json:"location"`
	Description    string          `json:"description"`
	JobType        string          `json:"job_type"`
	Source         string          `json:"source"`
	PostedDate     *time.Time      `json:"posted_date"`
	SalaryMin      *float64        `json:"salary_min"`
	SalaryMax      *float64        `json:"salary_max"`
	IsCorpToCorp   bool            `json:"is_corp_to_corp"`
	RelevanceScore float64         `json:"relevance_score"`
	IsApplied      bool            `json:"is_applied"`
	IsFavorited    bool            `json:"is_favorited"`
	SourceURL      string          `json:"source_url"`
	Analysis       *model.Analysis `json:"analysis,omitempty"`
}

// JSON writes an indented array. An empty input yields [].
func JSON(w io.Writer, postings []model.Posting) error {
	out := make([]record, 0, len(postings))
	for _, p := range postings {
		out = append(out, record{
			ID:             p.ID,
			Title:          p.Title,
			Company:        p.Company,
			Location:       p.Location,
			Description:    p.Description,
			JobType:        p.JobType,
			Source:         p.Source,
			PostedDate:     p.PostedDate,
			SalaryMin:      p.SalaryMin,
			SalaryMax:      p.SalaryMax,
			IsCorpToCorp:   p.IsCorpToCorp,
			RelevanceScore: p.RelevanceScore,
			IsApplied:      p.IsApplied,
			IsFavorited:    p.IsFavorited,
			SourceURL:      p.SourceURL,
			Analysis:       p.Analysis,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// XLSX writes a single "Postings" sheet with a bold, frozen header row.
func XLSX(w io.Writer, postings []model.Posting) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, p := range postings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := xlsxRow(p)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", p.ID, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// xlsxRow keeps numbers and booleans typed so spreadsheets can sort them.
func xlsxRow(p model.Posting) []any {
	v := []any{
		p.ID, p.Title, p.Company, p.Location, p.JobType, p.Source,
		formatTime(p.PostedDate), nil, nil, p.IsCorpToCorp,
		p.RelevanceScore, p.IsApplied, p.IsFavorited, p.SourceURL,
	}
	if p.SalaryMin != nil {
		v[7] = *p.SalaryMin
	}
	if p.SalaryMax != nil {
		v[8] = *p.SalaryMax
	}
	return v
}
