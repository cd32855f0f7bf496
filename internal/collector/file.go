package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amishk599/c2cradar/internal/model"
)

// Ensure File implements model.Collector.
var _ model.Collector = (*File)(nil)

// File serves postings from a JSON array on disk. The file is re-read on
// every Collect so edits show up on the next scrape.
type File struct {
	path string
}

// NewFile creates a collector reading path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return "file:" + filepath.Base(f.path) }

func (f *File) Collect(ctx context.Context, keywords, location string) ([]model.RawPosting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading postings file: %w", err)
	}

	var all []model.RawPosting
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing postings file %s: %w", f.path, err)
	}

	q := newQuery(keywords, location)
	out := make([]model.RawPosting, 0, len(all))
	for _, r := range all {
		if !q.matches(r.Title+" "+r.Description+" "+r.Requirements, r.Location) {
			continue
		}
		if r.Source == "" {
			r.Source = "file"
		}
		out = append(out, r)
	}
	return out, nil
}
