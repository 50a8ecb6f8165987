package domain

// SystemActor is recorded as the actor when no identified user is available.
const SystemActor = "System"

// Identity is the authenticated user as reported by the identity provider.
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
}

// Actor returns the name stamped on history entries.
func (i *Identity) Actor() string {
	if i == nil {
		return SystemActor
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email
	}
	return SystemActor
}
