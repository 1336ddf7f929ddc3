package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"eventlottery/internal/domain"
	"eventlottery/internal/metrics"
)

// maxSaveRetries bounds the reload-and-retry loop around optimistic saves.
// Transitions are pure functions of the loaded snapshot plus intent, so a
// retry recomputes from fresh state.
const maxSaveRetries = 3

type lotteryService struct {
	eventRepo        domain.EventRepository
	notificationRepo domain.NotificationRepository
	emailService     domain.EmailService
	metrics          *metrics.Metrics
	contextTimeout   time.Duration
}

// NewLotteryService creates a LotteryService with the given repositories and
// collaborators. emailService and m may be nil; notification rows are still
// recorded.
func NewLotteryService(
	eventRepo domain.EventRepository,
	notificationRepo domain.NotificationRepository,
	emailService domain.EmailService,
	m *metrics.Metrics,
	timeout time.Duration,
) domain.LotteryService {
	return &lotteryService{
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		emailService:     emailService,
		metrics:          m,
		contextTimeout:   timeout,
	}
}

// withEventRetry loads the event, applies the transition, and saves the new
// snapshot guarded by the version check. On ErrVersionConflict it reloads and
// reapplies; business errors returned by apply abort without retrying. All
// event mutations in this package go through this loop.
func withEventRetry(ctx context.Context, repo domain.EventRepository, eventID string, apply func(*domain.Event) error) (*domain.Event, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		event, err := repo.GetByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("get event: %w", err)
		}
		if err := apply(event); err != nil {
			return nil, err
		}
		event.UpdatedAt = time.Now()
		if err := repo.Save(ctx, event); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("save event: %w", err)
		}
		return event, nil
	}
	return nil, fmt.Errorf("save event after %d attempts: %w", maxSaveRetries, lastErr)
}

func (s *lotteryService) JoinWaitingList(ctx context.Context, eventID string, entrant domain.Entrant) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, err := withEventRetry(ctx, s.eventRepo, eventID, func(ev *domain.Event) error {
		if !ev.IsRegistrationOpen(time.Now()) {
			return fmt.Errorf("%w: registration window is closed", domain.ErrInvalidInput)
		}
		return ev.JoinWaitingList(entrant)
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.WaitingListJoins.Inc()
	}
	return nil
}

func (s *lotteryService) LeaveWaitingList(ctx context.Context, eventID, entrantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, err := withEventRetry(ctx, s.eventRepo, eventID, func(ev *domain.Event) error {
		return ev.LeaveWaitingList(entrantID)
	})
	return err
}

func (s *lotteryService) AcceptInvitation(ctx context.Context, eventID, entrantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, err := withEventRetry(ctx, s.eventRepo, eventID, func(ev *domain.Event) error {
		return ev.AcceptInvitation(entrantID)
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.InvitationsAccepted.Inc()
	}
	return nil
}

func (s *lotteryService) DeclineInvitation(ctx context.Context, eventID, entrantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, err := withEventRetry(ctx, s.eventRepo, eventID, func(ev *domain.Event) error {
		return ev.DeclineInvitation(entrantID)
	})
	return err
}

func (s *lotteryService) Draw(ctx context.Context, eventID, organizerID string) ([]domain.Entrant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var selected []domain.Entrant
	event, err := withEventRetry(ctx, s.eventRepo, eventID, func(ev *domain.Event) error {
		if ev.OrganizerID != organizerID {
			return domain.ErrForbidden
		}
		var err error
		selected, err = ev.Draw()
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DrawsRun.Inc()
		s.metrics.EntrantsInvited.Add(float64(len(selected)))
	}
	s.notifyInvited(ctx, event, selected, domain.NotificationInvited)
	return selected, nil
}

func (s *lotteryService) ReplaceInvitees(ctx context.Context, eventID, organizerID string, inviteeIDs []string) ([]domain.Entrant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		cancelled  []domain.Entrant
		backfilled []domain.Entrant
	)
	event, err := withEventRetry(ctx, s.eventRepo, eventID, func(ev *domain.Event) error {
		if ev.OrganizerID != organizerID {
			return domain.ErrForbidden
		}
		// Resolve IDs against the invited list so cancellation records and
		// notifications carry names and emails. IDs not found there are
		// passed through; the aggregate skips them silently.
		cancelled = cancelled[:0]
		selected := make([]domain.Entrant, 0, len(inviteeIDs))
		for _, id := range inviteeIDs {
			if ev.Invited != nil {
				if e, ok := ev.Invited.Get(id); ok {
					selected = append(selected, e)
					cancelled = append(cancelled, e)
					continue
				}
			}
			selected = append(selected, domain.Entrant{ID: id})
		}
		var err error
		backfilled, err = ev.ReplaceInvitees(selected)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DrawsRun.Inc()
		s.metrics.EntrantsInvited.Add(float64(len(backfilled)))
	}
	s.notifyCancelled(ctx, event, cancelled)
	s.notifyInvited(ctx, event, backfilled, domain.NotificationBackfilled)
	return backfilled, nil
}

func (s *lotteryService) GetMembership(ctx context.Context, eventID, organizerID string) (*domain.EventMembership, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	return &domain.EventMembership{
		EventID:   event.ID,
		Waiting:   listMembers(event.Waiting),
		Invited:   listMembers(event.Invited),
		Joined:    listMembers(event.Joined),
		Cancelled: listMembers(event.Cancelled),
	}, nil
}

func (s *lotteryService) ListMyEntrantEvents(ctx context.Context, entrantID string) ([]*domain.EntrantEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	result := []*domain.EntrantEvent{}
	for _, ev := range events {
		if status := ev.Status(entrantID); status != domain.StatusNone {
			result = append(result, &domain.EntrantEvent{Event: ev, Status: status})
		}
	}
	return result, nil
}

func listMembers(l *domain.MembershipList) []domain.Entrant {
	if l == nil {
		return []domain.Entrant{}
	}
	return l.Members()
}

// notifyInvited records a notification row per selected entrant and sends the
// invitation email. Dispatch failures are logged and never fail the draw: the
// membership transition is already persisted.
func (s *lotteryService) notifyInvited(ctx context.Context, event *domain.Event, entrants []domain.Entrant, ntype string) {
	for _, e := range entrants {
		s.record(ctx, event, e, ntype,
			fmt.Sprintf("You have been selected for %s. Accept or decline your invitation.", event.Name))
		if s.emailService == nil || e.Email == "" {
			continue
		}
		data := &domain.InvitationEmailData{
			Email:     e.Email,
			Name:      e.Name,
			EventName: event.Name,
			EventID:   event.ID,
		}
		if err := s.emailService.SendInvitation(ctx, data); err != nil {
			log.Printf("[LOTTERY] failed to send invitation email to %s: %v", e.Email, err)
		}
	}
}

func (s *lotteryService) notifyCancelled(ctx context.Context, event *domain.Event, entrants []domain.Entrant) {
	for _, e := range entrants {
		s.record(ctx, event, e, domain.NotificationCancelled,
			fmt.Sprintf("Your invitation to %s was cancelled by the organizer.", event.Name))
		if s.emailService == nil || e.Email == "" {
			continue
		}
		data := &domain.CancellationEmailData{
			Email:     e.Email,
			Name:      e.Name,
			EventName: event.Name,
			Reason:    "Your invitation was cancelled by the organizer.",
		}
		if err := s.emailService.SendCancellation(ctx, data); err != nil {
			log.Printf("[LOTTERY] failed to send cancellation email to %s: %v", e.Email, err)
		}
	}
}

func (s *lotteryService) record(ctx context.Context, event *domain.Event, e domain.Entrant, ntype, message string) {
	if s.notificationRepo == nil {
		return
	}
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: e.ID,
		EventID:     event.ID,
		Type:        ntype,
		Message:     message,
		CreatedAt:   time.Now(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		log.Printf("[LOTTERY] failed to record %s notification for %s: %v", ntype, e.ID, err)
	}
}
