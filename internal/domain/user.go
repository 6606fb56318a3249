package domain

// Preferences is the free-form settings document stored on a user.
// It is always replaced as a whole, never merged.
type Preferences map[string]any

// User is a registered account. Email is the natural key and is compared
// case-sensitively.
type User struct {
	// ID is assigned by storage on insert.
	ID             string
	Name           string
	Email          string
	HashedPassword string
	Preferences    Preferences
}

// Validate checks the fields a user must carry before it can be stored.
func (u *User) Validate() error {
	if u == nil {
		return NewValidationError("user", "required")
	}
	if u.Email == "" {
		return NewValidationError("email", "required")
	}
	return nil
}

// Session binds a user to the opaque token issued at login.
// At most one session exists per UserID.
type Session struct {
	UserID string
	Token  string
}
