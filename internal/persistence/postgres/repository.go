// Package postgres persists the ranking snapshot and its outbox in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/outbox"
)

// Repository provides Postgres-backed persistence for the snapshot and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadSnapshot reads every table inside one repeatable-read transaction.
func (r *Repository) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	var snap domain.Snapshot
	if err := tx.QueryRow(ctx, `SELECT version FROM snapshot_state WHERE id = 1`).Scan(&snap.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, fmt.Errorf("snapshot_state is not initialised")
		}
		return domain.Snapshot{}, err
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

	if err := tx.Commit(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func loadUnits(ctx context.Context, tx pgx.Tx) ([]domain.Unit, error) {
	rows, err := tx.Query(ctx, `SELECT unit_id, name FROM units ORDER BY position, unit_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make([]domain.Unit, 0)
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func loadActivities(ctx context.Context, tx pgx.Tx) ([]domain.Activity, error) {
	rows, err := tx.Query(ctx, `SELECT activity_id, name, description, window_start, window_end, base_points, bonus_points, created_at, updated_at
        FROM activities ORDER BY position, activity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.WindowStart, &a.WindowEnd, &a.BasePoints, &a.BonusPoints, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.WindowStart = domain.DateOf(a.WindowStart)
		a.WindowEnd = domain.DateOf(a.WindowEnd)
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func loadSubmissions(ctx context.Context, tx pgx.Tx) ([]domain.ProofSubmission, error) {
	rows, err := tx.Query(ctx, `SELECT submission_id, activity_id, unit_id, status, description, attachment_id, submitted_at, reviewed_at,
            approved_base_points, approved_bonus_points, review, version
        FROM submissions ORDER BY position, submission_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]domain.ProofSubmission, 0)
	for rows.Next() {
		var (
			sub    domain.ProofSubmission
			review []byte
		)
		if err := rows.Scan(&sub.ID, &sub.ActivityID, &sub.UnitID, &sub.Status, &sub.Description, &sub.AttachmentID,
			&sub.SubmittedAt, &sub.ReviewedAt, &sub.ApprovedBasePoints, &sub.ApprovedBonusPoints, &review, &sub.Version); err != nil {
			return nil, err
		}
		if len(review) > 0 {
			var decision domain.ReviewDecision
			if err := json.Unmarshal(review, &decision); err != nil {
				return nil, fmt.Errorf("decode review of %s: %w", sub.ID, err)
			}
			sub.Review = &decision
		}
		sub.SubmittedAt = utcPtr(sub.SubmittedAt)
		sub.ReviewedAt = utcPtr(sub.ReviewedAt)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveSnapshot replaces the stored state with next and records events in the outbox,
// all inside a single transaction guarded by the snapshot version.
func (r *Repository) SaveSnapshot(ctx context.Context, next domain.Snapshot, events []domain.Event) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `UPDATE snapshot_state SET version = version + 1, updated_at = NOW() WHERE id = 1 AND version = $1`, next.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("%w: snapshot moved past version %d", domain.ErrVersionConflict, next.Version)
		return err
	}

	if err = upsertUnits(ctx, tx, next.Units); err != nil {
		return err
	}
	if err = upsertActivities(ctx, tx, next.Activities); err != nil {
		return err
	}
	if err = saveSubmissions(ctx, tx, next.Submissions); err != nil {
		return err
	}
	if err = pruneCatalogue(ctx, tx, next); err != nil {
		return err
	}
	for _, evt := range events {
		if err = r.insertOutbox(ctx, tx, evt, next.Version+1); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	return err
}

func upsertUnits(ctx context.Context, tx pgx.Tx, units []domain.Unit) error {
	for i, u := range units {
		if _, err := tx.Exec(ctx, `INSERT INTO units (unit_id, name, position) VALUES ($1,$2,$3)
            ON CONFLICT (unit_id) DO UPDATE SET name = EXCLUDED.name, position = EXCLUDED.position`, u.ID, u.Name, i); err != nil {
			return err
		}
	}
	return nil
}

func upsertActivities(ctx context.Context, tx pgx.Tx, activities []domain.Activity) error {
	for i, a := range activities {
		if _, err := tx.Exec(ctx, `INSERT INTO activities (activity_id, name, description, window_start, window_end, base_points, bonus_points, created_at, updated_at, position)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
            ON CONFLICT (activity_id) DO UPDATE SET
                name = EXCLUDED.name,
                description = EXCLUDED.description,
                window_start = EXCLUDED.window_start,
                window_end = EXCLUDED.window_end,
                base_points = EXCLUDED.base_points,
                bonus_points = EXCLUDED.bonus_points,
                updated_at = EXCLUDED.updated_at,
                position = EXCLUDED.position`,
			a.ID, a.Name, a.Description, a.WindowStart, a.WindowEnd, a.BasePoints, a.BonusPoints, a.CreatedAt, a.UpdatedAt, i,
		); err != nil {
			return err
		}
	}
	return nil
}

// pruneCatalogue removes activities and units absent from next. Runs after
// saveSubmissions so no surviving row references them.
func pruneCatalogue(ctx context.Context, tx pgx.Tx, next domain.Snapshot) error {
	activityIDs := make([]string, 0, len(next.Activities))
	for _, a := range next.Activities {
		activityIDs = append(activityIDs, a.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM activities WHERE NOT (activity_id = ANY($1))`, activityIDs); err != nil {
		return err
	}
	unitIDs := make([]string, 0, len(next.Units))
	for _, u := range next.Units {
		unitIDs = append(unitIDs, u.ID)
	}
	_, err := tx.Exec(ctx, `DELETE FROM units WHERE NOT (unit_id = ANY($1))`, unitIDs)
	return err
}

func saveSubmissions(ctx context.Context, tx pgx.Tx, subs []domain.ProofSubmission) error {
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM submissions WHERE NOT (submission_id = ANY($1))`, ids); err != nil {
		return err
	}

	for i, sub := range subs {
		var review []byte
		if sub.Review != nil {
			body, err := json.Marshal(sub.Review)
			if err != nil {
				return err
			}
			review = body
		}
		if _, err := tx.Exec(ctx, `INSERT INTO submissions (submission_id, activity_id, unit_id, status, description, attachment_id, submitted_at, reviewed_at,
                approved_base_points, approved_bonus_points, review, version, position)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
            ON CONFLICT (submission_id) DO UPDATE SET
                status = EXCLUDED.status,
                description = EXCLUDED.description,
                attachment_id = EXCLUDED.attachment_id,
                submitted_at = EXCLUDED.submitted_at,
                reviewed_at = EXCLUDED.reviewed_at,
                approved_base_points = EXCLUDED.approved_base_points,
                approved_bonus_points = EXCLUDED.approved_bonus_points,
                review = EXCLUDED.review,
                version = EXCLUDED.version,
                position = EXCLUDED.position`,
			sub.ID, sub.ActivityID, sub.UnitID, string(sub.Status), sub.Description, sub.AttachmentID, sub.SubmittedAt, sub.ReviewedAt,
			sub.ApprovedBasePoints, sub.ApprovedBonusPoints, review, sub.Version, i,
		); err != nil {
			return fmt.Errorf("save submission %s: %w", sub.ID, err)
		}
	}
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, evt domain.Event, version int64) error {
	body, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}

	route, ok := outbox.RouteFor(evt.Type)
	if !ok {
		return fmt.Errorf("unknown event type: %s", evt.Type)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		evt.AggregateType,
		evt.AggregateID,
		evt.Type,
		route.Topic,
		route.SchemaSubject,
		evt.PartitionKey,
		body,
		fmt.Sprintf("%s:%s:%d", evt.AggregateID, evt.Type, version),
	)
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
