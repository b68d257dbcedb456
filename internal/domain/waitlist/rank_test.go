package waitlist

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func entryWith(asa int, waited time.Duration, now time.Time) *Entry {
	return &Entry{
		ID:       uuid.New(),
		ASAScore: asa,
		AddedAt:  now.Add(-waited),
	}
}

func TestScore_ASADominatesWait(t *testing.T) {
	now := time.Now()
	sick := entryWith(5, 24*time.Hour, now)
	patient := entryWith(2, 30*24*time.Hour, now)

	if !ScoreOf(sick, now).Before(ScoreOf(patient, now)) {
		t.Error("ASA 5 must outrank ASA 2 regardless of wait")
	}
}

func TestScore_WaitBreaksASATie(t *testing.T) {
	now := time.Now()
	older := entryWith(3, 10*24*time.Hour, now)
	newer := entryWith(3, 2*24*time.Hour, now)

	if !ScoreOf(older, now).Before(ScoreOf(newer, now)) {
		t.Error("longer wait must outrank shorter wait at equal ASA")
	}
}

func TestScore_IDBreaksFullTie(t *testing.T) {
	now := time.Now()
	added := now.Add(-48 * time.Hour)
	a := &Entry{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), ASAScore: 3, AddedAt: added}
	b := &Entry{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), ASAScore: 3, AddedAt: added}

	if !ScoreOf(a, now).Before(ScoreOf(b, now)) {
		t.Error("lower id must win a full tie")
	}
	if ScoreOf(b, now).Before(ScoreOf(a, now)) {
		t.Error("tie-break must be antisymmetric")
	}
}

// Raising ASA with everything else fixed must never lower the rank, and the
// same holds for wait time.
func TestRank_Monotonic(t *testing.T) {
	now := time.Now()
	base := entryWith(2, 5*24*time.Hour, now)

	for asa := 3; asa <= 5; asa++ {
		higher := &Entry{ID: base.ID, ASAScore: asa, AddedAt: base.AddedAt}
		if ScoreOf(base, now).Before(ScoreOf(higher, now)) {
			t.Errorf("raising ASA to %d must not lower rank", asa)
		}
	}

	longer := &Entry{ID: base.ID, ASAScore: base.ASAScore, AddedAt: base.AddedAt.Add(-24 * time.Hour)}
	if ScoreOf(base, now).Before(ScoreOf(longer, now)) {
		t.Error("waiting longer must not lower rank")
	}
}

func TestRank_OrderIndependentOfArrival(t *testing.T) {
	now := time.Now()
	p1 := entryWith(5, 8*24*time.Hour, now)
	p2 := entryWith(2, 1*24*time.Hour, now)

	forward := Rank([]*Entry{p1, p2}, now)
	backward := Rank([]*Entry{p2, p1}, now)

	if forward[0].ID != p1.ID || backward[0].ID != p1.ID {
		t.Error("P1 (ASA5, 8d) must rank first regardless of input order")
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	low := entryWith(1, time.Hour, now)
	high := entryWith(5, time.Hour, now)
	in := []*Entry{low, high}

	Rank(in, now)

	if in[0] != low || in[1] != high {
		t.Error("Rank must not reorder the input slice")
	}
}

func TestScore_BoostRaisesRank(t *testing.T) {
	now := time.Now()
	added := now.Add(-24 * time.Hour)
	plain := &Entry{ID: uuid.New(), ASAScore: 2, AddedAt: added}
	boosted := &Entry{ID: uuid.New(), ASAScore: 2, PriorityBoost: 2, AddedAt: added}

	if !ScoreOf(boosted, now).Before(ScoreOf(plain, now)) {
		t.Error("a boosted entry must outrank an unboosted peer")
	}
}
