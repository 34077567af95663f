// Package snapshot holds the set of dataset identifiers a portal listed on
// a given report date, and compares two of them.
package snapshot

import "sort"

// Snapshot is an immutable set of identifiers.
type Snapshot struct {
	Date string
	ids  map[string]struct{}
}

func New(date string, ids []string) *Snapshot {
	s := &Snapshot{
		Date: date,
		ids:  make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Snapshot) Len() int {
	return len(s.ids)
}

func (s *Snapshot) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the identifiers sorted ascending.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Changes is the difference between two snapshots.
type Changes struct {
	// Added is current minus previous.
	Added []string
	// Removed is previous minus current.
	Removed []string
}

// Diff compares previous against current. Both result lists are sorted.
func Diff(previous, current *Snapshot) Changes {
	return Changes{
		Added:   minus(current, previous),
		Removed: minus(previous, current),
	}
}

func minus(a, b *Snapshot) []string {
	var out []string
	for id := range a.ids {
		if !b.Contains(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
