package credentials

import (
	"database/sql"
	"errors"
	"fmt"

	"cms-go/internal/cms"
	"cms-go/internal/database"
)

// SQLiteStore keeps credentials in the users table of the cms database.
// Username uniqueness is enforced by the table's primary key, so concurrent
// registrations of the same name cannot both succeed.
type SQLiteStore struct {
	db     *sql.DB
	hasher hasher
	logger cms.Logger
	clock  cms.Clock
}

var _ cms.CredentialStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database in dataDir. dataDir may be
// ":memory:".
func NewSQLiteStore(dataDir string, cost int, logger cms.Logger, clock cms.Clock) (*SQLiteStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data_dir required for sqlite credential store")
	}
	h, err := newHasher(cost)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dataDir)
	if err != nil {
		return nil, cms.StorageError(err)
	}
	if logger == nil {
		logger = cms.NewNopLogger()
	}
	if clock == nil {
		clock = cms.RealClock{}
	}
	return &SQLiteStore{db: db, hasher: h, logger: logger, clock: clock}, nil
}

// Verify checks password and, when it matches, records the sign-in time.
func (s *SQLiteStore) Verify(username, password string) (bool, error) {
	var verifier string
	err := s.db.QueryRow("SELECT password_hash FROM users WHERE username = ?", username).Scan(&verifier)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, cms.StorageError(fmt.Errorf("looking up %s: %w", username, err))
	}

	ok, err := matches(verifier, password)
	if err != nil || !ok {
		return ok, err
	}
	if _, err := s.db.Exec("UPDATE users SET last_signin_at = ? WHERE username = ?", s.clock.Now().UTC(), username); err != nil {
		s.logger.Warn("failed to record sign-in", "username", username, "error", err)
	}
	return true, nil
}

// LastSignIn returns when username last verified successfully. The result is not
// Valid if the user never signed in or does not exist.
func (s *SQLiteStore) LastSignIn(username string) (at sql.NullTime, err error) {
	err = s.db.QueryRow("SELECT last_signin_at FROM users WHERE username = ?", username).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullTime{}, nil
	}
	if err != nil {
		return sql.NullTime{}, cms.StorageError(fmt.Errorf("looking up %s: %w", username, err))
	}
	return at, nil
}

func (s *SQLiteStore) Register(username, password string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return cms.StorageError(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback()

	var taken bool
	err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", username).Scan(&taken)
	if err != nil {
		return cms.StorageError(fmt.Errorf("looking up %s: %w", username, err))
	}
	if err := cms.ValidateRegistration(username, password, taken); err != nil {
		return err
	}

	verifier, err := s.hasher.hash(password)
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, verifier, s.clock.Now().UTC())
	if database.IsUniqueViolation(err) {
		// Lost a race with another registration of the same name.
		return cms.ValidateRegistration(username, password, true)
	}
	if err != nil {
		return cms.StorageError(fmt.Errorf("inserting %s: %w", username, err))
	}
	if err := tx.Commit(); err != nil {
		return cms.StorageError(fmt.Errorf("committing transaction: %w", err))
	}

	s.logger.Info("user registered", "username", username, "store", "sqlite")
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
