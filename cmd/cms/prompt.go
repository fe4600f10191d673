package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Environment variables that supply secrets non-interactively.
const (
	EnvPassword   = "CMS_PASSWORD"
	EnvPassphrase = "CMS_PASSPHRASE"
)

// readSecret returns the value of env if set. Otherwise it prompts on stderr and
// reads a line from stdin, without echo when stdin is a terminal.
func readSecret(env, prompt string) (string, error) {
	if v, ok := os.LookupEnv(env); ok {
		return v, nil
	}
	return newSecretPrompter(os.Stdin, os.Stderr).read(prompt)
}

// readNewSecret is readSecret with a confirmation prompt.
func readNewSecret(env, prompt, confirm string) (string, error) {
	if v, ok := os.LookupEnv(env); ok {
		return v, nil
	}
	p := newSecretPrompter(os.Stdin, os.Stderr)
	first, err := p.read(prompt)
	if err != nil {
		return "", err
	}
	second, err := p.read(confirm)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// secretPrompter reads successive secrets from one input. Piped input is buffered
// once so that consecutive prompts consume consecutive lines.
type secretPrompter struct {
	in   *os.File
	out  io.Writer
	line *bufio.Reader
}

func newSecretPrompter(in *os.File, out io.Writer) *secretPrompter {
	return &secretPrompter{in: in, out: out, line: bufio.NewReader(in)}
}

func (p *secretPrompter) read(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if term.IsTerminal(int(p.in.Fd())) {
		b, err := term.ReadPassword(int(p.in.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return string(b), nil
	}
	return readLine(p.line)
}

// readLine reads one line, without its line ending. EOF after a partial line is fine.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
