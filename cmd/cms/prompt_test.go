package main

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"

	"cms-go/internal/cms"
)

func TestReadSecret_FromEnv(t *testing.T) {
	t.Setenv(EnvPassword, "from-env")
	got, err := readSecret(EnvPassword, "Password: ")
	if err != nil {
		t.Fatalf("readSecret() error = %v", err)
	}
	if got != "from-env" {
		t.Errorf("readSecret() = %q, want %q", got, "from-env")
	}
}

// withStdin replaces os.Stdin with a pipe holding input for the rest of the test.
func withStdin(t *testing.T, input string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	if _, err := w.WriteString(input); err != nil {
		t.Fatalf("writing stdin: %v", err)
	}
	w.Close()

	orig := os.Stdin
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = orig
		r.Close()
	})
}

func TestReadNewSecret_PipedStdin(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	os.Unsetenv(EnvPassphrase)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"matching lines", "pw\npw\n", "pw", false},
		{"no trailing newline", "pw\npw", "pw", false},
		{"mismatch", "pw\nother\n", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withStdin(t, tt.input)
			got, err := readNewSecret(EnvPassphrase, "", "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("readNewSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readNewSecret() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadLine(t *testing.T) {
	tests := map[string]string{
		"secret\n":   "secret",
		"secret\r\n": "secret",
		"secret":     "secret",
		"":           "",
		"a\nb\n":     "a",
	}
	for in, want := range tests {
		got, err := readLine(bufio.NewReader(strings.NewReader(in)))
		if err != nil {
			t.Fatalf("readLine(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("readLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  *cms.Document
		want string
	}{
		{"markdown", &cms.Document{Name: "a.md", Content: []byte("# A"), Category: cms.Classify("a.md")}, "# A\n"},
		{"trailing newline kept", &cms.Document{Name: "a.txt", Content: []byte("x\n"), Category: cms.Classify("a.txt")}, "x\n"},
		{"image", &cms.Document{Name: "a.png", Content: []byte("1234"), Category: cms.Classify("a.png")}, "a.png: image/png, 4 bytes\n"},
		{"unsupported as text", &cms.Document{Name: "a.log", Content: []byte("log"), Category: cms.Classify("a.log")}, "log\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printDocument(&buf, tt.doc); err != nil {
				t.Fatalf("printDocument() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("printDocument() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
