package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eventlottery/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var repoTestTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func listJSON(t *testing.T, capacity int, entrants ...domain.Entrant) []byte {
	t.Helper()
	l := domain.NewMembershipList(capacity)
	for _, e := range entrants {
		require.NoError(t, l.Add(e))
	}
	data, err := json.Marshal(l)
	require.NoError(t, err)
	return data
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organizer_id", "name", "description", "capacity", "qr_code_id", "geo_required",
		"category", "reg_opens_at", "reg_closes_at", "waiting", "invited", "joined", "cancelled",
		"version", "created_at", "updated_at",
	})
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		event   *domain.Event
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr bool
	}{
		{
			name: "success",
			event: &domain.Event{
				OrganizerID: "org-1",
				Name:        "Swim Lessons",
				Description: "Beginner swim",
				Capacity:    10,
				QRCodeID:    "qr-1",
				Waiting:     domain.NewMembershipList(0),
				Invited:     domain.NewMembershipList(10),
				Cancelled:   domain.NewMembershipList(0),
				CreatedAt:   repoTestTime,
				UpdatedAt:   repoTestTime,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events \(organizer_id, name, description, capacity, qr_code_id`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-uuid-1"))
			},
			wantID:  "ev-uuid-1",
			wantErr: false,
		},
		{
			name: "db error",
			event: &domain.Event{
				OrganizerID: "org-1",
				Name:        "Swim Lessons",
				Capacity:    10,
				Waiting:     domain.NewMembershipList(0),
				Invited:     domain.NewMembershipList(10),
				Cancelled:   domain.NewMembershipList(0),
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(sql.ErrConnDone)
			},
			wantID:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			err = repo.Create(ctx, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, tt.event.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		mock       func(t *testing.T, mock sqlmock.Sqlmock)
		wantErr    error
		checkEvent func(t *testing.T, e *domain.Event)
	}{
		{
			name: "success",
			id:   "ev-1",
			mock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, organizer_id, name, description, capacity`).
					WithArgs("ev-1").
					WillReturnRows(eventRows().AddRow(
						"ev-1", "org-1", "Swim Lessons", "Beginner swim", 2, "qr-1", false,
						"sports", nil, nil,
						listJSON(t, 0, domain.Entrant{ID: "u-1", Name: "Ada", Email: "ada@example.com"}),
						listJSON(t, 2),
						[]byte("null"),
						listJSON(t, 0),
						3, repoTestTime, repoTestTime,
					))
			},
			checkEvent: func(t *testing.T, e *domain.Event) {
				require.Equal(t, "ev-1", e.ID)
				require.Equal(t, int64(3), e.Version)
				require.Equal(t, 1, e.Waiting.Size())
				require.Equal(t, 2, e.Invited.Capacity)
				require.Nil(t, e.Joined)
				require.True(t, e.Waiting.Contains("u-1"))
			},
		},
		{
			name: "not found",
			id:   "ev-missing",
			mock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, organizer_id, name, description, capacity`).
					WithArgs("ev-missing").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(t, mock)
			repo := NewEventRepository(db)
			got, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkEvent(t, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByQRCodeID(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, organizer_id, name, description, capacity(.+)WHERE qr_code_id = \$1`).
		WithArgs("qr-1").
		WillReturnRows(eventRows().AddRow(
			"ev-1", "org-1", "Swim Lessons", "", 2, "qr-1", false,
			"", nil, nil,
			listJSON(t, 0), listJSON(t, 2), []byte("null"), listJSON(t, 0),
			1, repoTestTime, repoTestTime,
		))

	repo := NewEventRepository(db)
	got, err := repo.GetByQRCodeID(ctx, "qr-1")
	require.NoError(t, err)
	require.Equal(t, "ev-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Save(t *testing.T) {
	ctx := context.Background()

	baseEvent := func() *domain.Event {
		return &domain.Event{
			ID:          "ev-1",
			OrganizerID: "org-1",
			Name:        "Swim Lessons",
			Capacity:    2,
			Waiting:     domain.NewMembershipList(0),
			Invited:     domain.NewMembershipList(2),
			Cancelled:   domain.NewMembershipList(0),
			Version:     3,
			UpdatedAt:   repoTestTime,
		}
	}

	tests := []struct {
		name        string
		mock        func(mock sqlmock.Sqlmock)
		wantErr     error
		wantVersion int64
	}{
		{
			name: "success bumps version",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE events`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantVersion: 4,
		},
		{
			name: "stale version conflicts",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE events`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrVersionConflict,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE events`).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			e := baseEvent()
			err = repo.Save(ctx, e)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrVersionConflict) {
					require.ErrorIs(t, err, domain.ErrVersionConflict)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantVersion, e.Version)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_ListByOrganizerID(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, organizer_id, name, description, capacity(.+)WHERE organizer_id = \$1`).
		WithArgs("org-1").
		WillReturnRows(eventRows().
			AddRow("ev-2", "org-1", "Ski Trip", "", 5, "qr-2", false, "", nil, nil,
				listJSON(t, 0), listJSON(t, 5), []byte("null"), listJSON(t, 0), 1, repoTestTime, repoTestTime).
			AddRow("ev-1", "org-1", "Swim Lessons", "", 2, "qr-1", false, "", nil, nil,
				listJSON(t, 0), listJSON(t, 2), []byte("null"), listJSON(t, 0), 1, repoTestTime, repoTestTime))

	repo := NewEventRepository(db)
	got, err := repo.ListByOrganizerID(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "ev-2", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
					WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
					WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			err = repo.Delete(ctx, "ev-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
