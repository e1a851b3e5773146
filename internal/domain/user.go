package domain

import "time"

// User represents an account record as stored by the repository.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the subset of a User that is safe to expose outward.
type UserSummary struct {
	ID    int64
	Email string
	Name  string
}

// Summary strips the credential from u.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}
