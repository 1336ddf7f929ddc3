package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventlottery/internal/domain"
)

type mockUserRepo struct {
	users map[string]*domain.User
	err   error
}

func newMockUserRepo(users ...*domain.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func organizerUser(id string) *domain.User {
	now := time.Now()
	u := domain.NewUser(id+"@example.com", "Org "+id, domain.RoleOrganizer, now, now)
	u.ID = id
	return u
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a published event with fresh lists and a QR code", func(t *testing.T) {
		eventRepo := newMockEventRepo()
		svc := NewEventService(eventRepo, newMockUserRepo(organizerUser("org-1")), time.Second)

		event, err := svc.CreateEvent(ctx, "org-1", domain.CreateEventParams{
			Name:            "Pottery Workshop",
			Description:     "Six-week pottery course",
			Capacity:        8,
			WaitingCapacity: 20,
			Category:        "crafts",
		})
		require.NoError(t, err)
		require.Equal(t, "org-1", event.OrganizerID)
		require.NotEmpty(t, event.QRCodeID)
		require.Equal(t, 20, event.Waiting.Capacity)
		require.Equal(t, 8, event.Invited.Capacity)
		require.Equal(t, 8, event.Joined.Capacity)
		require.Equal(t, 0, event.Cancelled.Capacity)
		require.Equal(t, 0, event.Waiting.Size())
	})

	t.Run("rejects non-organizers", func(t *testing.T) {
		entrant := organizerUser("user-1")
		entrant.Role = domain.RoleEntrant
		svc := NewEventService(newMockEventRepo(), newMockUserRepo(entrant), time.Second)

		_, err := svc.CreateEvent(ctx, "user-1", domain.CreateEventParams{Name: "Nope", Capacity: 5})
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("validates input", func(t *testing.T) {
		svc := NewEventService(newMockEventRepo(), newMockUserRepo(organizerUser("org-1")), time.Second)

		_, err := svc.CreateEvent(ctx, "org-1", domain.CreateEventParams{Name: "", Capacity: 5})
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.CreateEvent(ctx, "org-1", domain.CreateEventParams{Name: "x", Capacity: 0})
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		opens := time.Now()
		closes := opens.Add(-time.Hour)
		_, err = svc.CreateEvent(ctx, "org-1", domain.CreateEventParams{
			Name: "x", Capacity: 5, RegOpensAt: &opens, RegClosesAt: &closes,
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	ctx := context.Background()

	ev := lotteryTestEvent(5, 0)
	repo := newMockEventRepo(ev)
	svc := NewEventService(repo, newMockUserRepo(organizerUser("org-1")), time.Second)

	desc := "Updated description"
	updated, err := svc.UpdateEvent(ctx, "ev-1", "org-1", &desc, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Updated description", updated.Description)

	_, err = svc.UpdateEvent(ctx, "ev-1", "someone-else", &desc, nil, nil)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateEvent(ctx, "missing", "org-1", &desc, nil, nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventService_UpdateEvent_retriesOnConflict(t *testing.T) {
	ctx := context.Background()
	desc := "Updated description"

	t.Run("reloads and succeeds after a conflicting save", func(t *testing.T) {
		repo := newMockEventRepo(lotteryTestEvent(5, 0))
		repo.conflictsLeft = 1
		svc := NewEventService(repo, newMockUserRepo(organizerUser("org-1")), time.Second)

		updated, err := svc.UpdateEvent(ctx, "ev-1", "org-1", &desc, nil, nil)
		require.NoError(t, err)
		require.Equal(t, "Updated description", updated.Description)
		require.Equal(t, 2, repo.saveCalls)
	})

	t.Run("surfaces the conflict once retries are exhausted", func(t *testing.T) {
		repo := newMockEventRepo(lotteryTestEvent(5, 0))
		repo.conflictsLeft = maxSaveRetries
		svc := NewEventService(repo, newMockUserRepo(organizerUser("org-1")), time.Second)

		_, err := svc.UpdateEvent(ctx, "ev-1", "org-1", &desc, nil, nil)
		require.ErrorIs(t, err, domain.ErrVersionConflict)
		require.Equal(t, maxSaveRetries, repo.saveCalls)
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()

	repo := newMockEventRepo(lotteryTestEvent(5, 0))
	svc := NewEventService(repo, newMockUserRepo(organizerUser("org-1")), time.Second)

	require.ErrorIs(t, svc.DeleteEvent(ctx, "ev-1", "someone-else"), domain.ErrForbidden)
	require.NoError(t, svc.DeleteEvent(ctx, "ev-1", "org-1"))
	require.ErrorIs(t, svc.DeleteEvent(ctx, "ev-1", "org-1"), domain.ErrNotFound)
}

func TestEventService_GetEventByQRCodeID(t *testing.T) {
	ctx := context.Background()

	ev := lotteryTestEvent(5, 0)
	ev.QRCodeID = "qr-123"
	svc := NewEventService(newMockEventRepo(ev), newMockUserRepo(), time.Second)

	found, err := svc.GetEventByQRCodeID(ctx, "qr-123")
	require.NoError(t, err)
	require.Equal(t, "ev-1", found.ID)

	_, err = svc.GetEventByQRCodeID(ctx, "qr-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
