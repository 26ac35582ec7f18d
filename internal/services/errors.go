package services

import "errors"

// ValidationError reports invalid client input for a named field.
// Handlers map it to a 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var (
	// ErrBarcodeFormat is returned when a barcode is not exactly 13 digits.
	ErrBarcodeFormat = errors.New("barcode must be exactly 13 digits")

	// ErrBadDirection is returned when direction is neither CHECKIN nor CHECKOUT.
	ErrBadDirection = errors.New("direction must be CHECKIN or CHECKOUT")

	// ErrNoFreeBarcode is returned when barcode generation exhausts its attempts.
	ErrNoFreeBarcode = errors.New("could not find a free barcode")

	// ErrManagerLimit is returned when the manager account cap is reached.
	ErrManagerLimit = errors.New("maximum number of managers reached")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveAccount is returned when a valid login hits an account
	// that has not been activated yet.
	ErrInactiveAccount = errors.New("account is not active")
)
