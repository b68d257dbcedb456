package waitlist

import (
	"bytes"
	"sort"
	"time"
)

// Score is the deterministic priority of a waitlist entry. Ordering is
// lexicographic: ASA descending, wait duration descending, patient id
// ascending. No float arithmetic is involved, so identical inputs always
// compare identically.
type Score struct {
	ASA  int           `json:"asa"`
	Wait time.Duration `json:"wait"`
	ID   [16]byte      `json:"-"`
}

// ScoreOf computes the priority score of an entry at a given instant.
// Pure function: it reads only the entry's ASA (with boost) and wait time.
func ScoreOf(e *Entry, now time.Time) Score {
	return Score{
		ASA:  e.EffectiveASA(),
		Wait: now.Sub(e.AddedAt),
		ID:   e.ID,
	}
}

// Before reports whether s outranks o (schedules earlier).
func (s Score) Before(o Score) bool {
	if s.ASA != o.ASA {
		return s.ASA > o.ASA
	}
	if s.Wait != o.Wait {
		return s.Wait > o.Wait
	}
	return bytes.Compare(s.ID[:], o.ID[:]) < 0
}

// Rank returns the entries sorted by descending priority. The input slice
// is not modified.
func Rank(entries []*Entry, now time.Time) []*Entry {
	ranked := make([]*Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ScoreOf(ranked[i], now).Before(ScoreOf(ranked[j], now))
	})
	return ranked
}
