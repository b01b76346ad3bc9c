package converter

import (
	"sort"

	"github.com/james-see/score2mv2h/pkg/mv2h"
)

// tieKey identifies the pending chain a tie-in may continue: exact match on
// pitch, voice and the millisecond boundary where the chain stopped. Times
// derive deterministically from ticks, so no tolerance window is needed.
type tieKey struct {
	pitch    int
	voice    int
	offsetMS int
}

// pendingNote is a chain waiting for its tie-in. seq orders the
// end-of-stream flush.
type pendingNote struct {
	note mv2h.Note
	seq  int
}

// tieStore holds pending tie chains keyed for O(1) average lookup.
type tieStore struct {
	pending map[tieKey][]pendingNote
	seq     int
}

func newTieStore() *tieStore {
	return &tieStore{pending: make(map[tieKey][]pendingNote)}
}

// put stores n as pending under its current offset.
func (ts *tieStore) put(n mv2h.Note) {
	k := tieKey{pitch: n.Pitch, voice: n.Voice, offsetMS: n.OffsetMS}
	ts.pending[k] = append(ts.pending[k], pendingNote{note: n, seq: ts.seq})
	ts.seq++
}

// take removes and returns the oldest pending chain at the given pitch and
// voice whose offset equals onsetMS.
func (ts *tieStore) take(pitch, voice, onsetMS int) (mv2h.Note, bool) {
	k := tieKey{pitch: pitch, voice: voice, offsetMS: onsetMS}
	bucket := ts.pending[k]
	if len(bucket) == 0 {
		return mv2h.Note{}, false
	}
	n := bucket[0].note
	if len(bucket) == 1 {
		delete(ts.pending, k)
	} else {
		ts.pending[k] = bucket[1:]
	}
	return n, true
}

// flush drains every pending chain in insertion order.
func (ts *tieStore) flush() []mv2h.Note {
	all := make([]pendingNote, 0, len(ts.pending))
	for _, bucket := range ts.pending {
		all = append(all, bucket...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	notes := make([]mv2h.Note, len(all))
	for i, pn := range all {
		notes[i] = pn.note
	}
	ts.pending = make(map[tieKey][]pendingNote)
	return notes
}

// size returns the number of pending chains.
func (ts *tieStore) size() int {
	n := 0
	for _, bucket := range ts.pending {
		n += len(bucket)
	}
	return n
}
