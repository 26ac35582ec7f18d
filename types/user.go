package types

// User is a badge holder tracked by the system.
type User struct {
	// Barcode is the 13-digit EAN-13 code printed on the badge.
	// It is the primary identifier and is immutable once created.
	Barcode string `json:"barcode" db:"barcode"`

	// FirstName is the holder's first name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the holder's last name.
	LastName string `json:"last_name" db:"last_name"`

	// Email is optional contact information.
	Email string `json:"email,omitempty" db:"email"`
}
