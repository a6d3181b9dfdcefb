package users

import "time"

// User is the profile record returned by the remote API and kept in the
// session store.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	FirstName       *string    `json:"firstName,omitempty"`
	LastName        *string    `json:"lastName,omitempty"`
	Avatar          *string    `json:"avatar,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	first, last := deref(u.FirstName), deref(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	}
	return u.Username
}

// Valid reports whether the record carries the identity fields every stored
// user must have.
func (u User) Valid() bool {
	return u.ID != "" && u.Username != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
