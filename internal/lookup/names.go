package lookup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// NameList is a set of given names, used to spot coalition members entered
// as individuals instead of organizations.
type NameList struct {
	names map[string]bool
}

// NewNameList builds a list from names.
func NewNameList(names ...string) *NameList {
	nl := &NameList{names: make(map[string]bool, len(names))}
	for _, n := range names {
		if n = clean(n); n != "" {
			nl.names[n] = true
		}
	}
	return nl
}

// ReadNameList parses the SSA state file layout: state,sex,year,name,count
// with no header row.
func ReadNameList(r io.Reader) (*NameList, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	nl := &NameList{names: make(map[string]bool)}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("names list line %d: %w", line, err)
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("names list line %d: expected 5 fields, got %d", line, len(rec))
		}
		if n := clean(rec[3]); n != "" {
			nl.names[n] = true
		}
	}
	return nl, nil
}

// LoadNameList reads a names file from disk.
func LoadNameList(path string) (*NameList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open names list: %w", err)
	}
	defer f.Close()
	return ReadNameList(f)
}

// Len is the number of distinct names.
func (nl *NameList) Len() int { return len(nl.names) }

// EndsWithName reports whether some suffix of word is a listed name, which
// is how "<name> " matches inside a two-word value.
func (nl *NameList) EndsWithName(word string) bool {
	if nl == nil {
		return false
	}
	for i := range word {
		if nl.names[word[i:]] {
			return true
		}
	}
	return false
}

// ContainsNameFollowedBySpace reports whether text contains a listed name
// immediately followed by a space.
func (nl *NameList) ContainsNameFollowedBySpace(text string) bool {
	fields := strings.Split(text, " ")
	for _, w := range fields[:len(fields)-1] {
		if nl.EndsWithName(w) {
			return true
		}
	}
	return false
}
