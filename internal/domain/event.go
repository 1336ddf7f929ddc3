package domain

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// MembershipStatus is an entrant's position in an event's lifecycle. An
// entrant ID occupies at most one status at a time; NONE means the entrant
// has never interacted with the event (or left the waiting list).
type MembershipStatus string

const (
	StatusNone      MembershipStatus = "none"
	StatusWaiting   MembershipStatus = "waiting"
	StatusInvited   MembershipStatus = "invited"
	StatusJoined    MembershipStatus = "joined"
	StatusCancelled MembershipStatus = "cancelled"
)

// Event is the lottery aggregate: event details plus the four membership
// lists an entrant moves between. The four lists are a single unit of
// consistency; Version backs the repository's optimistic concurrency check.
// swagger:model Event
type Event struct {
	ID          string     `json:"id"`
	OrganizerID string     `json:"organizer_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Capacity    int        `json:"capacity"`
	QRCodeID    string     `json:"qr_code_id"`
	GeoRequired bool       `json:"geo_required"`
	Category    string     `json:"category"`
	RegOpensAt  *time.Time `json:"reg_opens_at"`
	RegClosesAt *time.Time `json:"reg_closes_at"`

	Waiting   *MembershipList `json:"waiting"`
	Invited   *MembershipList `json:"invited"`
	Joined    *MembershipList `json:"joined"`
	Cancelled *MembershipList `json:"cancelled"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent returns a published event with empty membership lists. The waiting
// list is bounded by waitingCapacity (0 = unbounded); invited and joined are
// bounded by the event capacity; cancelled is unbounded. ID is typically set
// by the repository on create.
func NewEvent(organizerID, name, description string, capacity, waitingCapacity int, createdAt time.Time) *Event {
	return &Event{
		OrganizerID: organizerID,
		Name:        name,
		Description: description,
		Capacity:    capacity,
		Waiting:     NewMembershipList(waitingCapacity),
		Invited:     NewMembershipList(capacity),
		Joined:      NewMembershipList(capacity),
		Cancelled:   NewMembershipList(0),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// Status returns which of the four lists the entrant ID currently belongs to.
func (ev *Event) Status(id string) MembershipStatus {
	switch {
	case ev.Waiting != nil && ev.Waiting.Contains(id):
		return StatusWaiting
	case ev.Invited != nil && ev.Invited.Contains(id):
		return StatusInvited
	case ev.Joined != nil && ev.Joined.Contains(id):
		return StatusJoined
	case ev.Cancelled != nil && ev.Cancelled.Contains(id):
		return StatusCancelled
	}
	return StatusNone
}

// RemainingCapacity is the number of seats not yet claimed by an invitation
// or a confirmed join, floored at zero.
func (ev *Event) RemainingCapacity() int {
	used := 0
	if ev.Invited != nil {
		used += ev.Invited.Size()
	}
	if ev.Joined != nil {
		used += ev.Joined.Size()
	}
	if remaining := ev.Capacity - used; remaining > 0 {
		return remaining
	}
	return 0
}

// IsRegistrationOpen reports whether now falls inside the registration
// window. An unset bound is open on that side.
func (ev *Event) IsRegistrationOpen(now time.Time) bool {
	if ev.RegOpensAt != nil && now.Before(*ev.RegOpensAt) {
		return false
	}
	if ev.RegClosesAt != nil && now.After(*ev.RegClosesAt) {
		return false
	}
	return true
}

// JoinWaitingList places the entrant on the waiting list.
//
// An entrant holding an invitation or a confirmed seat cannot also queue:
// that fails with ErrAlreadyMember. An entrant in the cancelled list may
// rejoin; doing so clears their cancellation record. ErrCapacityExceeded and
// ErrDuplicateMember propagate from the waiting list. The aggregate is
// unchanged on any failure.
func (ev *Event) JoinWaitingList(e Entrant) error {
	if ev.Waiting == nil {
		return ErrNilWaitingList
	}
	if (ev.Invited != nil && ev.Invited.Contains(e.ID)) || (ev.Joined != nil && ev.Joined.Contains(e.ID)) {
		return ErrAlreadyMember
	}
	// Check the waiting list up front so a failed add cannot leave the
	// entrant removed from cancelled but admitted nowhere.
	if ev.Waiting.Contains(e.ID) {
		return ErrDuplicateMember
	}
	if ev.Waiting.IsFull() {
		return ErrCapacityExceeded
	}
	if ev.Cancelled != nil && ev.Cancelled.Contains(e.ID) {
		_ = ev.Cancelled.Remove(e.ID)
	}
	return ev.Waiting.Add(e)
}

// LeaveWaitingList removes the entrant from the waiting list. It fails with
// ErrNotInWaitingList when the entrant is not currently waiting. Other lists
// are never touched.
func (ev *Event) LeaveWaitingList(id string) error {
	if ev.Waiting == nil {
		return ErrNilWaitingList
	}
	if !ev.Waiting.Contains(id) {
		return ErrNotInWaitingList
	}
	return ev.Waiting.Remove(id)
}

// Draw selects min(len(waiting), remaining capacity) entrants from the
// waiting list uniformly at random without replacement and moves them to the
// invited list. It returns the selected entrants so the caller can dispatch
// invitations. An empty waiting list or zero remaining capacity yields an
// empty result, not an error.
func (ev *Event) Draw() ([]Entrant, error) {
	return ev.draw(ev.RemainingCapacity())
}

// ReplaceInvitees cancels the selected invitees and backfills their slots
// from the waiting list. Entrants absent from the invited list are skipped
// silently; entrants already cancelled are not recorded twice. The backfill
// draw is bounded by the number of selected invitees, not by total remaining
// capacity: the intent is to refill exactly the vacated slots.
func (ev *Event) ReplaceInvitees(selected []Entrant) ([]Entrant, error) {
	if ev.Waiting == nil {
		return nil, ErrNilWaitingList
	}
	if ev.Cancelled == nil {
		ev.Cancelled = NewMembershipList(0)
	}
	for _, e := range selected {
		if ev.Invited != nil && ev.Invited.Contains(e.ID) {
			_ = ev.Invited.Remove(e.ID)
		}
		// Record the cancellation unless the entrant already has one or
		// still belongs to another list (an ID must never be in two lists).
		if st := ev.Status(e.ID); st == StatusNone {
			_ = ev.Cancelled.Add(e)
		}
	}
	limit := len(selected)
	// Never refill past total remaining capacity; the invited list stays
	// bounded even when the organizer selects entrants that were not invited.
	if remaining := ev.RemainingCapacity(); limit > remaining {
		limit = remaining
	}
	return ev.draw(limit)
}

// draw moves up to limit randomly selected entrants from waiting to invited.
// Selection happens before any mutation, so a failure leaves the aggregate
// unchanged.
func (ev *Event) draw(limit int) ([]Entrant, error) {
	if ev.Waiting == nil {
		return nil, ErrNilWaitingList
	}
	n := ev.Waiting.Size()
	if limit < n {
		n = limit
	}
	if n <= 0 {
		return []Entrant{}, nil
	}

	// Partial Fisher-Yates over a copy: after i swaps, pool[:i] is a uniform
	// sample without replacement.
	pool := ev.Waiting.Members()
	for i := 0; i < n; i++ {
		j, err := randIndex(len(pool) - i)
		if err != nil {
			return nil, fmt.Errorf("draw random index: %w", err)
		}
		pool[i], pool[i+j] = pool[i+j], pool[i]
	}
	selected := pool[:n:n]

	if ev.Invited == nil {
		ev.Invited = NewMembershipList(ev.Capacity)
	}
	chosen := make(map[string]struct{}, n)
	for _, e := range selected {
		chosen[e.ID] = struct{}{}
	}
	remaining := make([]Entrant, 0, ev.Waiting.Size()-n)
	for _, e := range ev.Waiting.Entrants {
		if _, ok := chosen[e.ID]; !ok {
			remaining = append(remaining, e)
		}
	}
	// Swap both lists in one step so no observer of the aggregate can see a
	// selected entrant in both lists or in neither.
	ev.Waiting.Entrants = remaining
	ev.Invited.Entrants = append(ev.Invited.Entrants, selected...)
	return selected, nil
}

// AcceptInvitation moves the entrant from invited to joined. Accepting twice
// is a no-op, not an error. It fails with ErrNoInvitationFound when the
// entrant neither holds an invitation nor a seat.
func (ev *Event) AcceptInvitation(id string) error {
	if ev.Joined != nil && ev.Joined.Contains(id) {
		return nil
	}
	if ev.Invited == nil || !ev.Invited.Contains(id) {
		return ErrNoInvitationFound
	}
	if ev.Joined == nil {
		ev.Joined = NewMembershipList(ev.Capacity)
	}
	e, _ := ev.Invited.Get(id)
	if err := ev.Joined.Add(e); err != nil {
		return err
	}
	return ev.Invited.Remove(id)
}

// DeclineInvitation moves the entrant from invited to cancelled. A decline is
// terminal for the invitation; the entrant may later rejoin the waiting list.
func (ev *Event) DeclineInvitation(id string) error {
	if ev.Invited == nil || !ev.Invited.Contains(id) {
		return ErrNoInvitationFound
	}
	if ev.Cancelled == nil {
		ev.Cancelled = NewMembershipList(0)
	}
	e, _ := ev.Invited.Get(id)
	if err := ev.Cancelled.Add(e); err != nil {
		return err
	}
	return ev.Invited.Remove(id)
}

// randIndex returns a uniform random int in [0, n) from crypto/rand.
func randIndex(n int) (int, error) {
	if n <= 1 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// EventRepository defines storage for event aggregates. Save persists a full
// snapshot guarded by the aggregate's version: it returns ErrVersionConflict
// when the stored version no longer matches, and callers reload and retry.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByQRCodeID(ctx context.Context, qrCodeID string) (*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)
	ListAll(ctx context.Context) ([]*Event, error)
	Save(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
}

// CreateEventParams are the organizer-supplied fields for a new event.
type CreateEventParams struct {
	Name            string
	Description     string
	Capacity        int
	WaitingCapacity int
	GeoRequired     bool
	Category        string
	RegOpensAt      *time.Time
	RegClosesAt     *time.Time
}

// EventService defines organizer-facing event management.
type EventService interface {
	CreateEvent(ctx context.Context, organizerID string, params CreateEventParams) (*Event, error)
	GetEventByID(ctx context.Context, eventID string) (*Event, error)
	GetEventByQRCodeID(ctx context.Context, qrCodeID string) (*Event, error)
	ListAllEvents(ctx context.Context) ([]*Event, error)
	ListMyEvents(ctx context.Context, organizerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, eventID, organizerID string, description *string, regOpensAt, regClosesAt *time.Time) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, organizerID string) error
}

// EventMembership is an event's four lists as returned to organizers.
type EventMembership struct {
	EventID   string    `json:"event_id"`
	Waiting   []Entrant `json:"waiting"`
	Invited   []Entrant `json:"invited"`
	Joined    []Entrant `json:"joined"`
	Cancelled []Entrant `json:"cancelled"`
}

// EntrantEvent pairs an event with the calling entrant's status in it.
type EntrantEvent struct {
	Event  *Event           `json:"event"`
	Status MembershipStatus `json:"status"`
}

// LotteryService defines the entrant- and organizer-facing lifecycle
// operations. Each operation loads the event, applies the transition, and
// saves with optimistic concurrency, retrying on version conflict. The
// persisted snapshot always satisfies the cross-list invariant: an entrant
// ID is in at most one of the four lists.
type LotteryService interface {
	JoinWaitingList(ctx context.Context, eventID string, entrant Entrant) error
	LeaveWaitingList(ctx context.Context, eventID, entrantID string) error
	AcceptInvitation(ctx context.Context, eventID, entrantID string) error
	DeclineInvitation(ctx context.Context, eventID, entrantID string) error
	Draw(ctx context.Context, eventID, organizerID string) ([]Entrant, error)
	ReplaceInvitees(ctx context.Context, eventID, organizerID string, inviteeIDs []string) ([]Entrant, error)
	GetMembership(ctx context.Context, eventID, organizerID string) (*EventMembership, error)
	ListMyEntrantEvents(ctx context.Context, entrantID string) ([]*EntrantEvent, error)
}
