package cms

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Document is a named file managed by the Repository. The name is its only identity.
type Document struct {
	Name     string
	Content  []byte
	Category Category
}

// Snapshot identifies one archived version of a document.
type Snapshot struct {
	Document  string
	ID        string
	CreatedAt time.Time
}

// snapshotTimeLayout is UTC with nanoseconds; lexical order matches time order.
const snapshotTimeLayout = "20060102T150405.000000000Z"

// SnapshotID builds the identifier "<base>_<timestamp><ext>" for a snapshot of document
// taken at t. A positive seq disambiguates snapshots taken at the same instant.
func SnapshotID(document string, t time.Time, seq int) string {
	ext := filepath.Ext(document)
	base := strings.TrimSuffix(document, ext)
	id := base + "_" + t.UTC().Format(snapshotTimeLayout)
	if seq > 0 {
		id += "-" + strconv.Itoa(seq)
	}
	return id + ext
}

// ParseSnapshotID recovers the capture time and sequence number embedded in an id
// produced by SnapshotID for the same document.
func ParseSnapshotID(document, id string) (time.Time, int, error) {
	ext := filepath.Ext(document)
	base := strings.TrimSuffix(document, ext)

	rest, ok := strings.CutPrefix(id, base+"_")
	if !ok {
		return time.Time{}, 0, fmt.Errorf("snapshot %q does not belong to %q", id, document)
	}
	rest, ok = strings.CutSuffix(rest, ext)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("snapshot %q does not belong to %q", id, document)
	}

	seq := 0
	if stamp, n, found := strings.Cut(rest, "-"); found {
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("parsing snapshot sequence %q: %w", n, err)
		}
		rest, seq = stamp, parsed
	}

	t, err := time.Parse(snapshotTimeLayout, rest)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parsing snapshot time %q: %w", rest, err)
	}
	return t, seq, nil
}

// NewSnapshot builds a Snapshot from a stored id. ok is false if the id was not
// produced by SnapshotID for document.
func NewSnapshot(document, id string) (snap *Snapshot, ok bool) {
	t, _, err := ParseSnapshotID(document, id)
	if err != nil {
		return nil, false
	}
	return &Snapshot{Document: document, ID: id, CreatedAt: t}, true
}

// SortSnapshots orders snapshots oldest first by embedded time, then sequence.
func SortSnapshots(snaps []*Snapshot) {
	seqOf := func(s *Snapshot) int {
		_, seq, _ := ParseSnapshotID(s.Document, s.ID)
		return seq
	}
	slices.SortFunc(snaps, func(a, b *Snapshot) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return seqOf(a) - seqOf(b)
	})
}
