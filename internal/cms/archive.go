package cms

// Archive stores immutable snapshots of prior document content, grouped into one
// bucket per document name.
type Archive interface {
	// CreateBucket creates the empty history bucket for document. It is a no-op if
	// the bucket already exists.
	CreateBucket(document string) error

	// RecordVersion stores previous as a new snapshot of document.
	// It fails with ErrStorage if the bucket has not been created.
	RecordVersion(document string, previous []byte) (*Snapshot, error)

	// ListVersions returns the snapshots of document, oldest first.
	// A document without a bucket has no versions.
	ListVersions(document string) ([]*Snapshot, error)

	// ReadVersion returns the content of one snapshot, or ErrNotFound.
	ReadVersion(document string, snapshotID string) ([]byte, error)

	// DeleteAll removes the bucket of document and every snapshot in it.
	// Deleting a missing bucket is not an error.
	DeleteAll(document string) error

	// ValidateSetup verifies that the archive is accessible and properly configured.
	ValidateSetup() error
}

// CredentialStore maps usernames to one-way password verifiers.
type CredentialStore interface {
	// Verify reports whether password matches the stored verifier for username.
	// Unknown usernames verify as false without an error.
	Verify(username, password string) (bool, error)

	// Register adds a new credential. Rejected requests return a *ValidationError.
	Register(username, password string) error

	// Close releases any resources held by the store.
	Close() error
}
