// Package secret resolves operator secrets from the environment or an
// interactive terminal prompt.
package secret

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source reads a secret once and caches it. The environment variable wins
// over the prompt.
type Source struct {
	envVar string
	label  string

	once  sync.Once
	value string
	err   error

	// stdin and prompt are replaced in tests.
	stdin  *os.File
	prompt io.Writer
}

func NewSource(envVar, label string) *Source {
	return &Source{
		envVar: strings.TrimSpace(envVar),
		label:  label,
		stdin:  os.Stdin,
		prompt: os.Stderr,
	}
}

func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}
	fd := int(s.stdin.Fd())
	if !term.IsTerminal(fd) {
		if s.envVar != "" {
			return "", fmt.Errorf("%s required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s required and no terminal available", s.label)
	}
	fmt.Fprintf(s.prompt, "Enter %s: ", s.label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.label, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", errors.New(s.label + " cannot be empty")
	}
	return string(raw), nil
}
