package model

import "time"

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

// Account mirrors a row of the `accounts` table.  PasswordHash holds the
// bcrypt digest and must never leave the server; handlers respond with
// Profile instead.
//
// Fields:
//  ID           – UUID primary key.
//  Name         – display name.
//  Email        – unique, stored lower-cased.
//  PasswordHash – bcrypt digest.
//  Role         – admin, investor or operator.
//  Status       – active, inactive or pending.
//  LastLogin    – last successful login (nil until the first one).
type Account struct {
	ID           string     // accounts.id
	Name         string     // accounts.name
	Email        string     // accounts.email
	PasswordHash string     // accounts.password_hash
	Role         Role       // accounts.role
	Status       Status     // accounts.status
	LastLogin    *time.Time // accounts.last_login (nullable)
	CreatedAt    time.Time  // accounts.created_at
	UpdatedAt    time.Time  // accounts.updated_at
}

// Profile is the client-visible view of an account.
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Status    Status     `json:"status"`
	LastLogin *time.Time `json:"last_login"`
}

// Profile strips the password hash and timestamps from the account.
func (a *Account) Profile() Profile {
	return Profile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Status:    a.Status,
		LastLogin: a.LastLogin,
	}
}
