package types

// Manager is a staff account allowed to mutate users and entries.
// Accounts are created inactive and must be activated out of band.
type Manager struct {
	// ID is the unique identifier of the manager.
	ID int `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the manager's password.
	// It is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Active reports whether the account may log in.
	Active bool `json:"active" db:"active"`
}
