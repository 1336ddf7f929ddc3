package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventlottery/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns an EventRepository backed by postgres. The four
// membership lists are stored as JSONB columns on the events row so the
// aggregate is read and written as one unit; the version column backs the
// optimistic concurrency check in Save.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, organizer_id, name, description, capacity, qr_code_id, geo_required,
		category, reg_opens_at, reg_closes_at, waiting, invited, joined, cancelled, version, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	waiting, invited, joined, cancelled, err := marshalLists(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (organizer_id, name, description, capacity, qr_code_id, geo_required,
			category, reg_opens_at, reg_closes_at, waiting, invited, joined, cancelled, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OrganizerID, e.Name, e.Description, e.Capacity, e.QRCodeID, e.GeoRequired,
		e.Category, e.RegOpensAt, e.RegClosesAt, waiting, invited, joined, cancelled,
		e.Version, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) GetByQRCodeID(ctx context.Context, qrCodeID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE qr_code_id = $1`
	return r.scanEvent(r.DB.QueryRowContext(ctx, query, qrCodeID))
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectEvents(rows)
}

func (r *eventRepository) ListAll(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectEvents(rows)
}

// Save writes the full aggregate snapshot guarded by the version the caller
// loaded. When the row has moved on (or disappeared), no row matches and the
// caller gets ErrVersionConflict to reload and retry.
func (r *eventRepository) Save(ctx context.Context, e *domain.Event) error {
	waiting, invited, joined, cancelled, err := marshalLists(e)
	if err != nil {
		return err
	}
	query := `
		UPDATE events
		SET description = $1, reg_opens_at = $2, reg_closes_at = $3,
			waiting = $4, invited = $5, joined = $6, cancelled = $7,
			version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`
	res, err := r.DB.ExecContext(ctx, query,
		e.Description, e.RegOpensAt, e.RegClosesAt,
		waiting, invited, joined, cancelled,
		e.UpdatedAt, e.ID, e.Version,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}
	e.Version++
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *eventRepository) scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var (
		opensNull, closesNull               sql.NullTime
		waiting, invited, joined, cancelled []byte
	)
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.Capacity, &e.QRCodeID, &e.GeoRequired,
		&e.Category, &opensNull, &closesNull, &waiting, &invited, &joined, &cancelled,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if opensNull.Valid {
		e.RegOpensAt = &opensNull.Time
	}
	if closesNull.Valid {
		e.RegClosesAt = &closesNull.Time
	}
	if e.Waiting, err = unmarshalList(waiting); err != nil {
		return nil, fmt.Errorf("decode waiting list: %w", err)
	}
	if e.Invited, err = unmarshalList(invited); err != nil {
		return nil, fmt.Errorf("decode invited list: %w", err)
	}
	if e.Joined, err = unmarshalList(joined); err != nil {
		return nil, fmt.Errorf("decode joined list: %w", err)
	}
	if e.Cancelled, err = unmarshalList(cancelled); err != nil {
		return nil, fmt.Errorf("decode cancelled list: %w", err)
	}
	return e, nil
}

func (r *eventRepository) collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func marshalLists(e *domain.Event) (waiting, invited, joined, cancelled []byte, err error) {
	if waiting, err = marshalList(e.Waiting); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode waiting list: %w", err)
	}
	if invited, err = marshalList(e.Invited); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode invited list: %w", err)
	}
	if joined, err = marshalList(e.Joined); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode joined list: %w", err)
	}
	if cancelled, err = marshalList(e.Cancelled); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode cancelled list: %w", err)
	}
	return waiting, invited, joined, cancelled, nil
}

func marshalList(l *domain.MembershipList) ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l)
}

func unmarshalList(data []byte) (*domain.MembershipList, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	l := &domain.MembershipList{}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, err
	}
	return l, nil
}
