// Package sqlite provides a single-file snapshot store for local deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/persistence/sqlite/migrations"
)

// Store persists the snapshot in SQLite. Events are not recorded; there is no
// outbox relay in local mode.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database handle is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// LoadSnapshot implements domain.SnapshotStore.
func (s *Store) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	tx, err := s.sqlDB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer tx.Rollback()

	var snap domain.Snapshot
	if err := tx.QueryRowContext(ctx, `SELECT version FROM snapshot_state WHERE id = 1`).Scan(&snap.Version); err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot version: %w", err)
	}
	if snap.Units, err = loadUnits(ctx, tx); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Activities, err = loadActivities(ctx, tx); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Submissions, err = loadSubmissions(ctx, tx); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, tx.Commit()
}

func loadUnits(ctx context.Context, tx *sql.Tx) ([]domain.Unit, error) {
	rows, err := tx.QueryContext(ctx, `SELECT unit_id, name FROM units ORDER BY position, unit_id`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	units := make([]domain.Unit, 0)
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func loadActivities(ctx context.Context, tx *sql.Tx) ([]domain.Activity, error) {
	rows, err := tx.QueryContext(ctx, `SELECT activity_id, name, description, window_start, window_end, base_points, bonus_points, created_at, updated_at
		FROM activities ORDER BY position, activity_id`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var (
			a                  domain.Activity
			start, end         string
			bonus              sql.NullInt64
			createdAt, updated int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &start, &end, &a.BasePoints, &bonus, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.WindowStart, err = time.Parse(time.DateOnly, start); err != nil {
			return nil, fmt.Errorf("parse window start of %s: %w", a.ID, err)
		}
		if a.WindowEnd, err = time.Parse(time.DateOnly, end); err != nil {
			return nil, fmt.Errorf("parse window end of %s: %w", a.ID, err)
		}
		if bonus.Valid {
			a.BonusPoints = domain.Ptr(int(bonus.Int64))
		}
		a.CreatedAt = fromMillis(createdAt)
		a.UpdatedAt = fromMillis(updated)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func loadSubmissions(ctx context.Context, tx *sql.Tx) ([]domain.ProofSubmission, error) {
	rows, err := tx.QueryContext(ctx, `SELECT submission_id, activity_id, unit_id, status, description, attachment_id, submitted_at, reviewed_at,
			approved_base_points, approved_bonus_points, review, version
		FROM submissions ORDER BY position, submission_id`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.ProofSubmission, 0)
	for rows.Next() {
		var (
			sub                       domain.ProofSubmission
			status                    string
			description, attachment   sql.NullString
			submittedAt, reviewedAt   sql.NullInt64
			approvedBase, approvedBon sql.NullInt64
			review                    sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.ActivityID, &sub.UnitID, &status, &description, &attachment, &submittedAt, &reviewedAt,
			&approvedBase, &approvedBon, &review, &sub.Version); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Status = domain.SubmissionStatus(status)
		sub.Description = nullString(description)
		sub.AttachmentID = nullString(attachment)
		sub.SubmittedAt = nullMillis(submittedAt)
		sub.ReviewedAt = nullMillis(reviewedAt)
		sub.ApprovedBasePoints = nullInt(approvedBase)
		sub.ApprovedBonusPoints = nullInt(approvedBon)
		if review.Valid && review.String != "" {
			var decision domain.ReviewDecision
			if err := json.Unmarshal([]byte(review.String), &decision); err != nil {
				return nil, fmt.Errorf("decode review of %s: %w", sub.ID, err)
			}
			sub.Review = &decision
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveSnapshot implements domain.SnapshotStore. The events argument is ignored.
func (s *Store) SaveSnapshot(ctx context.Context, next domain.Snapshot, _ []domain.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE snapshot_state SET version = version + 1, updated_at = ? WHERE id = 1 AND version = ?`,
		toMillis(time.Now()), next.Version)
	if err != nil {
		return fmt.Errorf("bump snapshot version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: snapshot moved past version %d", domain.ErrVersionConflict, next.Version)
	}

	for i, u := range next.Units {
		if _, err := tx.ExecContext(ctx, `INSERT INTO units (unit_id, name, position) VALUES (?, ?, ?)
			ON CONFLICT (unit_id) DO UPDATE SET name = excluded.name, position = excluded.position`, u.ID, u.Name, i); err != nil {
			return fmt.Errorf("save unit %s: %w", u.ID, err)
		}
	}
	for i, a := range next.Activities {
		if _, err := tx.ExecContext(ctx, `INSERT INTO activities (activity_id, name, description, window_start, window_end, base_points, bonus_points, created_at, updated_at, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (activity_id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				window_start = excluded.window_start,
				window_end = excluded.window_end,
				base_points = excluded.base_points,
				bonus_points = excluded.bonus_points,
				updated_at = excluded.updated_at,
				position = excluded.position`,
			a.ID, a.Name, a.Description, a.WindowStart.Format(time.DateOnly), a.WindowEnd.Format(time.DateOnly),
			a.BasePoints, intArg(a.BonusPoints), toMillis(a.CreatedAt), toMillis(a.UpdatedAt), i,
		); err != nil {
			return fmt.Errorf("save activity %s: %w", a.ID, err)
		}
	}

	keep := make([]any, 0, len(next.Submissions))
	for _, sub := range next.Submissions {
		keep = append(keep, sub.ID)
	}
	if err := deleteMissing(ctx, tx, "submissions", "submission_id", keep); err != nil {
		return err
	}
	for i, sub := range next.Submissions {
		var review any
		if sub.Review != nil {
			body, err := json.Marshal(sub.Review)
			if err != nil {
				return err
			}
			review = string(body)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO submissions (submission_id, activity_id, unit_id, status, description, attachment_id, submitted_at, reviewed_at,
				approved_base_points, approved_bonus_points, review, version, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (submission_id) DO UPDATE SET
				status = excluded.status,
				description = excluded.description,
				attachment_id = excluded.attachment_id,
				submitted_at = excluded.submitted_at,
				reviewed_at = excluded.reviewed_at,
				approved_base_points = excluded.approved_base_points,
				approved_bonus_points = excluded.approved_bonus_points,
				review = excluded.review,
				version = excluded.version,
				position = excluded.position`,
			sub.ID, sub.ActivityID, sub.UnitID, string(sub.Status), stringArg(sub.Description), stringArg(sub.AttachmentID),
			millisArg(sub.SubmittedAt), millisArg(sub.ReviewedAt), intArg(sub.ApprovedBasePoints), intArg(sub.ApprovedBonusPoints),
			review, sub.Version, i,
		); err != nil {
			return fmt.Errorf("save submission %s: %w", sub.ID, err)
		}
	}

	activityIDs := make([]any, 0, len(next.Activities))
	for _, a := range next.Activities {
		activityIDs = append(activityIDs, a.ID)
	}
	if err := deleteMissing(ctx, tx, "activities", "activity_id", activityIDs); err != nil {
		return err
	}
	unitIDs := make([]any, 0, len(next.Units))
	for _, u := range next.Units {
		unitIDs = append(unitIDs, u.ID)
	}
	if err := deleteMissing(ctx, tx, "units", "unit_id", unitIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func deleteMissing(ctx context.Context, tx *sql.Tx, table, column string, keep []any) error {
	query := "DELETE FROM " + table
	if len(keep) > 0 {
		query += " WHERE " + column + " NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
	}
	if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
		return fmt.Errorf("prune %s: %w", table, err)
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return domain.Ptr(v.String)
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return domain.Ptr(int(v.Int64))
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	return domain.Ptr(fromMillis(v.Int64))
}

func stringArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func millisArg(v *time.Time) any {
	if v == nil {
		return nil
	}
	return toMillis(*v)
}
