// Package credential persists API keys in a dotenv file.
//
// The process environment wins over the file, the same precedence
// godotenv.Load gives, but the process environment is never modified.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissing is returned by Require when a key has no non-empty value.
var ErrMissing = errors.New("credential missing")

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Set writes name=value. Other lines in the file, comments included, are
// kept as they are; an existing entry for name is replaced where it stands.
// The file is only readable by its owner.
func (s *Store) Set(name, value string) error {
	entry, err := encode(name, value)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading %s: %w", s.path, err)
	default:
		// WriteFile keeps the mode of a file that already exists
		if err := os.Chmod(s.path, 0o600); err != nil {
			return fmt.Errorf("restricting permissions on %s: %w", s.path, err)
		}
	}

	if err := os.WriteFile(s.path, []byte(replaceEntry(string(data), name, entry)), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// encode renders one line that godotenv parses back to exactly value.
// Single quotes are read literally, so they are tried first.
func encode(name, value string) (string, error) {
	candidates := []string{
		name + "='" + value + "'",
		name + "=" + value,
		name + `="` + escaper.Replace(value) + `"`,
	}

	for _, line := range candidates {
		if strings.ContainsAny(line, "\r\n") {
			continue
		}
		entries, err := godotenv.Unmarshal(line)
		if err == nil && len(entries) == 1 && entries[name] == value {
			return line, nil
		}
	}
	return "", fmt.Errorf("value for %s cannot be stored in a dotenv file", name)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`$`, `\$`,
	"\n", `\n`,
	"\r", `\r`,
)

// replaceEntry swaps the line assigning name for entry, or appends entry.
func replaceEntry(data, name, entry string) string {
	if data == "" {
		return entry + "\n"
	}

	lines := strings.Split(strings.TrimSuffix(data, "\n"), "\n")
	replaced := false
	for i, line := range lines {
		if assigns(line, name) {
			lines[i] = entry
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n") + "\n"
}

// assigns reports whether line is a NAME=... or NAME: ... statement,
// optionally prefixed with export.
func assigns(line, name string) bool {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "export"); ok && rest != strings.TrimLeft(rest, " \t") {
		line = strings.TrimLeft(rest, " \t")
	}

	rest, ok := strings.CutPrefix(line, name)
	if !ok {
		return false
	}
	rest = strings.TrimLeft(rest, " \t")
	return strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, ":")
}

// Lookup returns the value for name, or "" when neither the environment nor
// the file has one. A missing file is not an error.
func (s *Store) Lookup(name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return v, nil
	}

	entries, err := s.read()
	if err != nil {
		return "", err
	}
	return entries[name], nil
}

func (s *Store) Require(name string) (string, error) {
	v, err := s.Lookup(name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissing, name)
	}
	return v, nil
}

func (s *Store) read() (map[string]string, error) {
	entries, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return entries, nil
}
