package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/c2cradar/internal/model"
)

const alertColumns = `id, keywords, location, min_salary, email, is_active, created_date`

type alertRow struct {
	ID          int64           `db:"id"`
	Keywords    string          `db:"keywords"`
	Location    string          `db:"location"`
	MinSalary   sql.NullFloat64 `db:"min_salary"`
	Email       string          `db:"email"`
	IsActive    bool            `db:"is_active"`
	CreatedDate int64           `db:"created_date"`
}

func (r alertRow) toAlert() model.AlertSubscription {
	return model.AlertSubscription{
		ID:          r.ID,
		Keywords:    r.Keywords,
		Location:    r.Location,
		MinSalary:   fromNullFloat(r.MinSalary),
		Email:       r.Email,
		IsActive:    r.IsActive,
		CreatedDate: time.UnixMilli(r.CreatedDate).UTC(),
	}
}

// CreateAlert stores a new active subscription and sets its ID and CreatedDate.
func (s *SQLiteStore) CreateAlert(ctx context.Context, a *model.AlertSubscription) (int64, error) {
	if strings.TrimSpace(a.Keywords) == "" || strings.TrimSpace(a.Email) == "" {
		return 0, errors.New("alert needs keywords and an email")
	}
	a.IsActive = true
	a.CreatedDate = s.now()

	res, err := s.db.ExecContext(ctx, `INSERT INTO alerts (keywords, location, min_salary, email, is_active, created_date)
		VALUES (?, ?, ?, ?, 1, ?)`,
		a.Keywords, a.Location, nullFloat(a.MinSalary), a.Email, millis(a.CreatedDate))
	if err != nil {
		return 0, fmt.Errorf("creating alert for %s: %w", a.Email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating alert for %s: last insert id: %w", a.Email, err)
	}
	a.ID = id
	return id, nil
}

func (s *SQLiteStore) selectAlerts(ctx context.Context, query string, args ...any) ([]model.AlertSubscription, error) {
	var rows []alertRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.AlertSubscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAlert())
	}
	return out, nil
}

// ListAlerts returns all subscriptions, or only those of email when set.
func (s *SQLiteStore) ListAlerts(ctx context.Context, email string) ([]model.AlertSubscription, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	var args []any
	if email != "" {
		query += ` WHERE email = ?`
		args = append(args, email)
	}
	query += ` ORDER BY id`

	alerts, err := s.selectAlerts(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

// ActiveAlerts returns the subscriptions that still receive e-mails.
func (s *SQLiteStore) ActiveAlerts(ctx context.Context) ([]model.AlertSubscription, error) {
	alerts, err := s.selectAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing active alerts: %w", err)
	}
	return alerts, nil
}

// DeactivateAlert turns a subscription off. Deactivation is permanent.
func (s *SQLiteStore) DeactivateAlert(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivating alert %d: %w", id, err)
	}
	return affectedOne(res, fmt.Sprintf("deactivating alert %d", id))
}

// Delivered reports whether the posting was already sent for the alert.
func (s *SQLiteStore) Delivered(ctx context.Context, alertID, postingID int64) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM alert_deliveries WHERE alert_id = ? AND posting_id = ?`,
		alertID, postingID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking delivery %d/%d: %w", alertID, postingID, err)
	}
	return true, nil
}

// MarkDelivered records a sent alert. Recording twice is a no-op.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, alertID, postingID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO alert_deliveries (alert_id, posting_id, delivered_at)
		VALUES (?, ?, ?)`, alertID, postingID, millis(s.now()))
	if err != nil {
		return fmt.Errorf("recording delivery %d/%d: %w", alertID, postingID, err)
	}
	return nil
}
