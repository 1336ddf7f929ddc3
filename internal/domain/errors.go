package domain

import "errors"

// Sentinel errors shared across the application. Services wrap these with
// context; controllers map them to API error codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// Membership list errors.
	ErrCapacityExceeded = errors.New("list is at capacity")
	ErrDuplicateMember  = errors.New("entrant is already in the list")

	// Entrant lifecycle errors. These are expected business outcomes and
	// must surface to the caller as a rejected action.
	ErrAlreadyMember     = errors.New("entrant already holds an invitation or a seat")
	ErrNotInWaitingList  = errors.New("entrant is not in the waiting list")
	ErrNoInvitationFound = errors.New("entrant has no pending invitation")

	// ErrNilWaitingList indicates a malformed event aggregate. It is not a
	// business outcome; callers should log it rather than retry.
	ErrNilWaitingList = errors.New("event has no waiting list")

	// ErrVersionConflict is returned by the event repository when a save
	// races with a concurrent update. Callers reload and retry.
	ErrVersionConflict = errors.New("event was modified concurrently")
)
