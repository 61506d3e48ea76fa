// Package preferences implements the ordered tag set stored on a user.
//
// A Set never holds empty tags, tags with surrounding whitespace, or
// duplicates. Order is first-insertion order; it only matters for the
// stored comma-joined form, never for membership.
package preferences

import "strings"

const separator = ","

type Set struct {
	tags []string
}

// FromSlice trims each tag, drops empties and keeps the first occurrence of
// duplicates.
func FromSlice(tags []string) Set {
	var s Set
	s.add(tags)
	return s
}

// Parse reads the stored comma-joined form.
func Parse(stored string) Set {
	if strings.TrimSpace(stored) == "" {
		return Set{}
	}
	return FromSlice(strings.Split(stored, separator))
}

func (s *Set) add(tags []string) {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || s.Contains(t) {
			continue
		}
		s.tags = append(s.tags, t)
	}
}

// Merge returns s followed by the tags of other that s does not hold.
func (s Set) Merge(other Set) Set {
	out := Set{tags: append([]string(nil), s.tags...)}
	out.add(other.tags)
	return out
}

// Subtract returns s without the tags held by other.
func (s Set) Subtract(other Set) Set {
	out := Set{}
	for _, t := range s.tags {
		if !other.Contains(t) {
			out.tags = append(out.tags, t)
		}
	}
	return out
}

func (s Set) Contains(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s Set) Len() int { return len(s.tags) }

func (s Set) IsEmpty() bool { return len(s.tags) == 0 }

// Equal compares membership, ignoring order.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, t := range s.tags {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Slice returns a copy of the tags in order. It is never nil so it encodes
// as [] in JSON.
func (s Set) Slice() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// String returns the stored comma-joined form.
func (s Set) String() string {
	return strings.Join(s.tags, separator)
}
