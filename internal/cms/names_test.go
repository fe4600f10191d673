package cms

import "testing"

func TestResolveUniqueName(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		existing  []string
		want      string
	}{
		{"free name", "about.md", []string{"index.md"}, "about.md"},
		{"empty directory", "about.md", nil, "about.md"},
		{"first copy", "about.md", []string{"about.md"}, "about copy.md"},
		{"second copy", "about.md", []string{"about.md", "about copy.md"}, "about copy 2.md"},
		{"gap is filled", "about.md", []string{"about.md", "about copy.md", "about copy 3.md"}, "about copy 2.md"},
		{"no extension", "README", []string{"README"}, "README copy"},
		{"multiple dots", "a.b.txt", []string{"a.b.txt"}, "a.b copy.txt"},
		{"copy of a copy", "about copy.md", []string{"about.md", "about copy.md"}, "about copy copy.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveUniqueName(tt.candidate, tt.existing); got != tt.want {
				t.Errorf("ResolveUniqueName(%q, %v) = %q, want %q", tt.candidate, tt.existing, got, tt.want)
			}
		})
	}
}

func TestResolveUniqueName_NeverCollides(t *testing.T) {
	existing := []string{"x.md"}
	for n := 0; n < 25; n++ {
		got := ResolveUniqueName("x.md", existing)
		for _, e := range existing {
			if got == e {
				t.Fatalf("ResolveUniqueName() = %q, already in %v", got, existing)
			}
		}
		existing = append(existing, got)
	}
}
