// Package lists manages the operator-curated, line-oriented files: the
// exclusion list (blacklist), the allow-list of known locations (whitelist)
// and the single-line target URL file.
package lists

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNotInAllowList   = errors.New("location is not in the whitelist")
	ErrMissingTargetURL = errors.New("target URL is not configured")
)

// Set is a set of location identifiers. Membership is exact string match.
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s Set) Add(item string) {
	s[item] = struct{}{}
}

func (s Set) Remove(item string) {
	delete(s, item)
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// Load reads one item per line. A missing file is an empty set.
func Load(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, err
	}
	defer f.Close()

	s := Set{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.Add(line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

// Save writes the set sorted, one item per line, replacing path atomically.
func Save(path string, s Set) error {
	var b strings.Builder
	for _, it := range s.Sorted() {
		b.WriteString(it)
		b.WriteByte('\n')
	}
	return writeAtomic(path, []byte(b.String()))
}

// MoveToBlacklist removes loc from the whitelist and adds it to the blacklist.
func MoveToBlacklist(whitelistPath, blacklistPath, loc string) error {
	whitelist, err := Load(whitelistPath)
	if err != nil {
		return err
	}
	if !whitelist.Has(loc) {
		return fmt.Errorf("%w: %q", ErrNotInAllowList, loc)
	}
	blacklist, err := Load(blacklistPath)
	if err != nil {
		return err
	}

	whitelist.Remove(loc)
	blacklist.Add(loc)

	if err := Save(whitelistPath, whitelist); err != nil {
		return err
	}
	return Save(blacklistPath, blacklist)
}

// RecordDiscovered adds every location in seen that is neither blacklisted nor
// already whitelisted to the whitelist file, and returns the additions sorted.
func RecordDiscovered(whitelistPath string, blacklist Set, seen []string) ([]string, error) {
	whitelist, err := Load(whitelistPath)
	if err != nil {
		return nil, err
	}

	added := Set{}
	for _, loc := range seen {
		if blacklist.Has(loc) || whitelist.Has(loc) {
			continue
		}
		added.Add(loc)
		whitelist.Add(loc)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := Save(whitelistPath, whitelist); err != nil {
		return nil, err
	}
	return added.Sorted(), nil
}

// ReadTargetURL returns the first non-blank line of the URL file.
func ReadTargetURL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingTargetURL, err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%w: %s is empty", ErrMissingTargetURL, path)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
