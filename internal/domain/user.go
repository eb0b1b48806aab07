package domain

import "time"

// User is any authenticated account: clients, agents, supervisors, admins.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RoleID       string
	Role         RoleName
	AreaID       *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the reference-expansion view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Actor is the authenticated caller of a command.
type Actor struct {
	ID     string
	Role   RoleName
	AreaID *string
}

// RequestMeta carries request attributes recorded on audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}
