package cms

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidName is returned when a document name is empty or not a plain file name.
	ErrInvalidName = errors.New("invalid document name")

	// ErrUnsupportedType is returned when a document's extension is not in the allow-list.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrNotFound is returned when a document or snapshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating a document whose name is already taken.
	ErrExists = errors.New("document already exists")

	// ErrStorage marks I/O failures. It is joined onto the underlying error so that
	// callers can test for it with errors.Is while keeping the original cause.
	ErrStorage = errors.New("storage error")
)

// StorageError joins err with ErrStorage. A nil err stays nil.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return errors.Join(ErrStorage, err)
}

// ValidationError carries every reason a registration was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, " ")
}

// Messages reported by ValidateRegistration.
const (
	ReasonUsernameRequired = "A username is required."
	ReasonUsernameTaken    = "The username is already taken. Please select another."
	ReasonPasswordRequired = "A password is required."
	ReasonPasswordTooLong  = "The password must be at most 72 bytes long."
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ValidateRegistration checks a signup request. taken reports whether the username
// already has a credential. All failures are collected, in order: empty username,
// username taken, empty password, password too long. Returns nil when the request
// is valid.
func ValidateRegistration(username, password string, taken bool) error {
	var reasons []string
	if username == "" {
		reasons = append(reasons, ReasonUsernameRequired)
	}
	if taken {
		reasons = append(reasons, ReasonUsernameTaken)
	}
	if password == "" {
		reasons = append(reasons, ReasonPasswordRequired)
	}
	if len(password) > MaxPasswordBytes {
		reasons = append(reasons, ReasonPasswordTooLong)
	}
	if len(reasons) == 0 {
		return nil
	}
	return &ValidationError{Reasons: reasons}
}
