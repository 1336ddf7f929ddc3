package domain

// MembershipList is an ordered, duplicate-free collection of entrants with an
// optional capacity. Capacity 0 means unbounded. Insertion order is kept for
// display only; selection fairness never depends on it.
//
// The list is a plain value container with no locking. The owning Event
// aggregate is responsible for consistency across its four lists.
// swagger:model MembershipList
type MembershipList struct {
	Capacity int       `json:"capacity"`
	Entrants []Entrant `json:"entrants"`
}

// NewMembershipList returns an empty list with the given capacity (0 = unbounded).
func NewMembershipList(capacity int) *MembershipList {
	return &MembershipList{Capacity: capacity}
}

// Add appends the entrant. It returns ErrCapacityExceeded when the list is
// full and ErrDuplicateMember when the entrant ID is already present. The
// list is unchanged on failure.
func (l *MembershipList) Add(e Entrant) error {
	if l.IsFull() {
		return ErrCapacityExceeded
	}
	if l.Contains(e.ID) {
		return ErrDuplicateMember
	}
	l.Entrants = append(l.Entrants, e)
	return nil
}

// Remove deletes the entrant with the given ID, preserving order of the rest.
// It returns ErrNotFound when the ID is absent; callers that need to
// distinguish "already removed" from "never present" check Contains first.
func (l *MembershipList) Remove(id string) error {
	for i, e := range l.Entrants {
		if e.ID == id {
			l.Entrants = append(l.Entrants[:i], l.Entrants[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Contains reports whether an entrant with the given ID is in the list.
func (l *MembershipList) Contains(id string) bool {
	for _, e := range l.Entrants {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Get returns the entrant with the given ID.
func (l *MembershipList) Get(id string) (Entrant, bool) {
	for _, e := range l.Entrants {
		if e.ID == id {
			return e, true
		}
	}
	return Entrant{}, false
}

// Size returns the number of entrants in the list.
func (l *MembershipList) Size() int {
	return len(l.Entrants)
}

// IsFull reports whether the list has a capacity and has reached it.
func (l *MembershipList) IsFull() bool {
	return l.Capacity > 0 && len(l.Entrants) >= l.Capacity
}

// Members returns a copy of the entrants so callers cannot mutate the list.
func (l *MembershipList) Members() []Entrant {
	out := make([]Entrant, len(l.Entrants))
	copy(out, l.Entrants)
	return out
}
