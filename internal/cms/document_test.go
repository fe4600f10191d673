package cms

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotID(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	tests := []struct {
		document string
		seq      int
		want     string
	}{
		{"about.md", 0, "about_20240115T103000.123456789Z.md"},
		{"about.md", 2, "about_20240115T103000.123456789Z-2.md"},
		{"README", 0, "README_20240115T103000.123456789Z"},
		{"my-notes.v2.txt", 1, "my-notes.v2_20240115T103000.123456789Z-1.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := SnapshotID(tt.document, at, tt.seq)
			if got != tt.want {
				t.Fatalf("SnapshotID() = %q, want %q", got, tt.want)
			}

			parsed, seq, err := ParseSnapshotID(tt.document, got)
			if err != nil {
				t.Fatalf("ParseSnapshotID() error = %v", err)
			}
			if !parsed.Equal(at) || seq != tt.seq {
				t.Errorf("ParseSnapshotID() = %v, %d, want %v, %d", parsed, seq, at, tt.seq)
			}
		})
	}
}

func TestSnapshotID_NonUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := time.Date(2024, 1, 15, 11, 30, 0, 0, loc)
	if got, want := SnapshotID("a.md", at, 0), "a_20240115T103000.000000000Z.md"; got != want {
		t.Errorf("SnapshotID() = %q, want %q", got, want)
	}
}

func TestParseSnapshotID_Rejects(t *testing.T) {
	for _, id := range []string{
		"other_20240115T103000.000000000Z.md",
		"about_20240115T103000.000000000Z.txt",
		"about_yesterday.md",
		"about_20240115T103000.000000000Z-x.md",
		"about.md",
	} {
		if _, _, err := ParseSnapshotID("about.md", id); err == nil {
			t.Errorf("ParseSnapshotID(about.md, %q) expected error", id)
		}
	}
}

func TestSortSnapshots(t *testing.T) {
	t0 := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	var snaps []*Snapshot
	for _, id := range []string{
		SnapshotID("a.md", t0.Add(time.Second), 0),
		SnapshotID("a.md", t0, 10),
		SnapshotID("a.md", t0, 2),
		SnapshotID("a.md", t0, 0),
	} {
		s, ok := NewSnapshot("a.md", id)
		if !ok {
			t.Fatalf("NewSnapshot(%q) not ok", id)
		}
		snaps = append(snaps, s)
	}

	SortSnapshots(snaps)

	var got []string
	for _, s := range snaps {
		got = append(got, s.ID)
	}
	want := []string{
		"a_20240115T103000.000000000Z.md",
		"a_20240115T103000.000000000Z-2.md",
		"a_20240115T103000.000000000Z-10.md",
		"a_20240115T103001.000000000Z.md",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortSnapshots() mismatch (-want +got):\n%s", diff)
	}
}
