package domain

// Entrant is a user as seen by an event's membership lists. Identity is the
// ID alone; Name and Email are carried for display and notifications.
// swagger:model Entrant
type Entrant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewEntrant returns an Entrant with the given identity and display fields.
func NewEntrant(id, name, email string) Entrant {
	return Entrant{ID: id, Name: name, Email: email}
}
