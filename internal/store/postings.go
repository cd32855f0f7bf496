package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

const postingColumns = `id, title, company, location, description, requirements,
	salary_min, salary_max, job_type, source, source_url, is_corp_to_corp,
	posted_date, scraped_date, relevance_score, analysis, is_applied,
	is_favorited, contact_email, contact_phone`

// topN bounds the company and location lists in Stats.
const topN = 10

type postingRow struct {
	ID             int64           `db:"id"`
	Title          string          `db:"title"`
	Company        string          `db:"company"`
	Location       string          `db:"location"`
	Description    string          `db:"description"`
	Requirements   string          `db:"requirements"`
	SalaryMin      sql.NullFloat64 `db:"salary_min"`
	SalaryMax      sql.NullFloat64 `db:"salary_max"`
	JobType        string          `db:"job_type"`
	Source         string          `db:"source"`
	SourceURL      string          `db:"source_url"`
	IsCorpToCorp   bool            `db:"is_corp_to_corp"`
	PostedDate     sql.NullInt64   `db:"posted_date"`
	ScrapedDate    int64           `db:"scraped_date"`
	RelevanceScore float64         `db:"relevance_score"`
	Analysis       sql.NullString  `db:"analysis"`
	IsApplied      bool            `db:"is_applied"`
	IsFavorited    bool            `db:"is_favorited"`
	ContactEmail   string          `db:"contact_email"`
	ContactPhone   string          `db:"contact_phone"`
}

func toRow(p *model.Posting) (postingRow, error) {
	row := postingRow{
		ID:             p.ID,
		Title:          p.Title,
		Company:        p.Company,
		Location:       p.Location,
		Description:    p.Description,
		Requirements:   p.Requirements,
		SalaryMin:      nullFloat(p.SalaryMin),
		SalaryMax:      nullFloat(p.SalaryMax),
		JobType:        p.JobType,
		Source:         p.Source,
		SourceURL:      p.SourceURL,
		IsCorpToCorp:   p.IsCorpToCorp,
		PostedDate:     nullMillis(p.PostedDate),
		ScrapedDate:    millis(p.ScrapedDate),
		RelevanceScore: p.RelevanceScore,
		IsApplied:      p.IsApplied,
		IsFavorited:    p.IsFavorited,
		ContactEmail:   p.ContactEmail,
		ContactPhone:   p.ContactPhone,
	}
	if p.Analysis != nil {
		b, err := json.Marshal(p.Analysis)
		if err != nil {
			return postingRow{}, fmt.Errorf("encoding analysis: %w", err)
		}
		row.Analysis = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func (r postingRow) toPosting() (model.Posting, error) {
	p := model.Posting{
		ID:             r.ID,
		Title:          r.Title,
		Company:        r.Company,
		Location:       r.Location,
		Description:    r.Description,
		Requirements:   r.Requirements,
		SalaryMin:      fromNullFloat(r.SalaryMin),
		SalaryMax:      fromNullFloat(r.SalaryMax),
		JobType:        r.JobType,
		Source:         r.Source,
		SourceURL:      r.SourceURL,
		IsCorpToCorp:   r.IsCorpToCorp,
		PostedDate:     fromNullMillis(r.PostedDate),
		ScrapedDate:    time.UnixMilli(r.ScrapedDate).UTC(),
		RelevanceScore: r.RelevanceScore,
		IsApplied:      r.IsApplied,
		IsFavorited:    r.IsFavorited,
		ContactEmail:   r.ContactEmail,
		ContactPhone:   r.ContactPhone,
	}
	if r.Analysis.Valid && r.Analysis.String != "" {
		var a model.Analysis
		if err := json.Unmarshal([]byte(r.Analysis.String), &a); err != nil {
			return model.Posting{}, fmt.Errorf("decoding analysis of posting %d: %w", r.ID, err)
		}
		p.Analysis = &a
	}
	return p, nil
}

func (s *SQLiteStore) selectPostings(ctx context.Context, query string, args ...any) ([]model.Posting, error) {
	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Posting, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPosting()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// InsertPosting stores p, setting its ID and, if unset, its ScrapedDate.
// It returns model.ErrDuplicate when the exact key already exists.
func (s *SQLiteStore) InsertPosting(ctx context.Context, p *model.Posting) (int64, error) {
	if p.ScrapedDate.IsZero() {
		p.ScrapedDate = s.now()
	}
	row, err := toRow(p)
	if err != nil {
		return 0, err
	}

	res, err := s.db.NamedExecContext(ctx, `INSERT INTO postings (
		title, company, location, description, requirements, salary_min,
		salary_max, job_type, source, source_url, is_corp_to_corp, posted_date,
		scraped_date, relevance_score, analysis, is_applied, is_favorited,
		contact_email, contact_phone
	) VALUES (
		:title, :company, :location, :description, :requirements, :salary_min,
		:salary_max, :job_type, :source, :source_url, :is_corp_to_corp, :posted_date,
		:scraped_date, :relevance_score, :analysis, :is_applied, :is_favorited,
		:contact_email, :contact_phone
	) ON CONFLICT (title, company, location, source_url) DO NOTHING`, row)
	if err != nil {
		return 0, fmt.Errorf("inserting posting %q: %w", p.Title, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("inserting posting %q: rows affected: %w", p.Title, err)
	}
	if n == 0 {
		return 0, model.ErrDuplicate
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting posting %q: last insert id: %w", p.Title, err)
	}
	p.ID = id
	return id, nil
}

// ExistsExact reports whether a posting with the exact key is stored.
func (s *SQLiteStore) ExistsExact(ctx context.Context, title, company, location, sourceURL string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM postings
		WHERE title = ? AND company = ? AND location = ? AND source_url = ? LIMIT 1`,
		title, company, location, sourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking exact key for %q: %w", title, err)
	}
	return true, nil
}

// PostingsByCompanySince returns the company's postings posted at or after
// since. Undated postings are never returned.
func (s *SQLiteStore) PostingsByCompanySince(ctx context.Context, company string, since time.Time) ([]model.Posting, error) {
	ps, err := s.selectPostings(ctx, `SELECT `+postingColumns+` FROM postings
		WHERE company = ? AND posted_date >= ? ORDER BY posted_date DESC`,
		company, millis(since))
	if err != nil {
		return nil, fmt.Errorf("listing postings of %q: %w", company, err)
	}
	return ps, nil
}

// ListPostings returns every stored posting, newest first.
func (s *SQLiteStore) ListPostings(ctx context.Context) ([]model.Posting, error) {
	ps, err := s.selectPostings(ctx, `SELECT `+postingColumns+` FROM postings
		ORDER BY posted_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	return ps, nil
}

// PostingsPostedSince returns postings whose posted_date is at or after since.
// Undated postings are never returned.
func (s *SQLiteStore) PostingsPostedSince(ctx context.Context, since time.Time) ([]model.Posting, error) {
	ps, err := s.selectPostings(ctx, `SELECT `+postingColumns+` FROM postings
		WHERE posted_date >= ? ORDER BY posted_date DESC`, millis(since))
	if err != nil {
		return nil, fmt.Errorf("listing postings since %s: %w", since.Format(time.RFC3339), err)
	}
	return ps, nil
}

// GetPosting returns one posting or model.ErrNotFound.
func (s *SQLiteStore) GetPosting(ctx context.Context, id int64) (model.Posting, error) {
	var row postingRow
	err := s.db.GetContext(ctx, &row, `SELECT `+postingColumns+` FROM postings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Posting{}, fmt.Errorf("posting %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Posting{}, fmt.Errorf("getting posting %d: %w", id, err)
	}
	return row.toPosting()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching s literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Search returns postings matching q, best first, at most model.MaxQueryLimit.
func (s *SQLiteStore) Search(ctx context.Context, q model.PostingQuery) ([]model.Posting, error) {
	var (
		where []string
		args  []any
	)
	if kw := strings.TrimSpace(q.Keywords); kw != "" {
		like := containsPattern(kw)
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(requirements) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		where = append(where, `LOWER(location) LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(loc))
	}
	if q.MinSalary != nil {
		where = append(where, "salary_min >= ?")
		args = append(args, *q.MinSalary)
	}
	if q.MaxSalary != nil {
		where = append(where, "salary_max <= ?")
		args = append(args, *q.MaxSalary)
	}
	if q.JobType != "" {
		where = append(where, "job_type = ?")
		args = append(args, q.JobType)
	}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.IsCorpToCorp != nil {
		where = append(where, "is_corp_to_corp = ?")
		args = append(args, *q.IsCorpToCorp)
	}
	if q.MinRelevance > 0 {
		where = append(where, "relevance_score >= ?")
		args = append(args, q.MinRelevance)
	}
	if q.PostedWithinHours > 0 {
		where = append(where, "posted_date >= ?")
		args = append(args, millis(s.now().Add(-time.Duration(q.PostedWithinHours)*time.Hour)))
	}

	limit := q.Limit
	if limit <= 0 || limit > model.MaxQueryLimit {
		limit = model.MaxQueryLimit
	}

	query := `SELECT ` + postingColumns + ` FROM postings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY relevance_score DESC, posted_date DESC LIMIT ?"
	args = append(args, limit)

	ps, err := s.selectPostings(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching postings: %w", err)
	}
	return ps, nil
}

// UpdateScore sets the stored relevance score of one posting.
func (s *SQLiteStore) UpdateScore(ctx context.Context, id int64, score float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE postings SET relevance_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("updating score of posting %d: %w", id, err)
	}
	return affectedOne(res, fmt.Sprintf("updating score of posting %d", id))
}

// UpdatePosting changes the applied/favorited flags that are set in upd.
func (s *SQLiteStore) UpdatePosting(ctx context.Context, id int64, upd model.PostingUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.IsApplied != nil {
		sets = append(sets, "is_applied = ?")
		args = append(args, *upd.IsApplied)
	}
	if upd.IsFavorited != nil {
		sets = append(sets, "is_favorited = ?")
		args = append(args, *upd.IsFavorited)
	}
	if len(sets) == 0 {
		return errors.New("update has no fields")
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE postings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating posting %d: %w", id, err)
	}
	return affectedOne(res, fmt.Sprintf("updating posting %d", id))
}

// DeletePosting removes one posting and its delivery records.
func (s *SQLiteStore) DeletePosting(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting posting %d: %w", id, err)
	}
	return affectedOne(res, fmt.Sprintf("deleting posting %d", id))
}

// DeletePostedBefore removes postings whose posted_date is older than cutoff
// and returns how many were removed. Undated postings are kept.
func (s *SQLiteStore) DeletePostedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE posted_date < ?`, millis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting postings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting postings: rows affected: %w", err)
	}
	return n, nil
}

// Stats summarizes the stored postings.
func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	var agg struct {
		Total        int     `db:"total"`
		CorpToCorp   int     `db:"c2c"`
		Last24h      int     `db:"last_24h"`
		AvgRelevance float64 `db:"avg_relevance"`
	}
	err := s.db.GetContext(ctx, &agg, `SELECT
		COUNT(*) AS total,
		COALESCE(SUM(is_corp_to_corp), 0) AS c2c,
		COALESCE(SUM(CASE WHEN scraped_date >= ? THEN 1 ELSE 0 END), 0) AS last_24h,
		COALESCE(AVG(relevance_score), 0) AS avg_relevance
		FROM postings`, millis(s.now().Add(-24*time.Hour)))
	if err != nil {
		return model.Stats{}, fmt.Errorf("aggregating postings: %w", err)
	}

	st := model.Stats{
		Total:        agg.Total,
		CorpToCorp:   agg.CorpToCorp,
		Last24h:      agg.Last24h,
		AvgRelevance: agg.AvgRelevance,
	}
	if st.TopCompanies, err = s.topBy(ctx, "company"); err != nil {
		return model.Stats{}, err
	}
	if st.TopLocations, err = s.topBy(ctx, "location"); err != nil {
		return model.Stats{}, err
	}
	return st, nil
}

// topBy counts postings per value of column. column is never user input.
func (s *SQLiteStore) topBy(ctx context.Context, column string) ([]model.Count, error) {
	var rows []struct {
		Label string `db:"label"`
		N     int    `db:"n"`
	}
	query := fmt.Sprintf(`SELECT %[1]s AS label, COUNT(*) AS n FROM postings
		WHERE %[1]s != '' GROUP BY %[1]s ORDER BY n DESC, %[1]s LIMIT ?`, column)
	if err := s.db.SelectContext(ctx, &rows, query, topN); err != nil {
		return nil, fmt.Errorf("top %s: %w", column, err)
	}
	out := make([]model.Count, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Count{Label: r.Label, N: r.N})
	}
	return out, nil
}
