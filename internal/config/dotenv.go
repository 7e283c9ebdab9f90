package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadDotenv applies a .env file to the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	return applyDotenv(path, false)
}

// ReloadDotenv applies a .env file, replacing existing values.
func ReloadDotenv(path string) error {
	return applyDotenv(path, true)
}

func applyDotenv(path string, override bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		key, value, ok := parseDotenvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return scanner.Err()
}

// parseDotenvLine handles KEY=value with an optional "export " prefix.
// Single-quoted values are literal. Double-quoted values understand \n, \t,
// \" and \\ and expand ${VAR}. Unquoted values expand ${VAR} and stop at " #".
func parseDotenvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, raw, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	raw = strings.TrimSpace(raw)

	switch {
	case len(raw) >= 2 && raw[0] == '\'' && strings.IndexByte(raw[1:], '\'') >= 0:
		end := strings.IndexByte(raw[1:], '\'')
		return key, raw[1 : end+1], true
	case len(raw) >= 2 && raw[0] == '"':
		if s, ok := unescape(raw[1:]); ok {
			return key, os.ExpandEnv(s), true
		}
		return key, os.ExpandEnv(raw), true
	}
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return key, os.ExpandEnv(raw), true
}

// unescape reads a double-quoted body up to its closing quote.
func unescape(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			return b.String(), true
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", false
}
