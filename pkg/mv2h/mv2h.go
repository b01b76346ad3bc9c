// Package mv2h holds the note, key, hierarchy and tatum records consumed by
// the MV2H evaluation tool, and renders them in its text format.
package mv2h

import (
	"fmt"
	"io"
	"strings"
)

// Note is a single resolved note. OnsetMS is the sounding onset of the whole
// tie chain; ValueOnsetMS is the notated onset of the segment that started
// the chain. The two are equal for untied notes.
type Note struct {
	Pitch        int // MIDI pitch number, A4 = 69
	OnsetMS      int
	ValueOnsetMS int
	OffsetMS     int
	Voice        int
}

// String renders the note as an MV2H "Note" line.
func (n Note) String() string {
	return fmt.Sprintf("Note %d %d %d %d %d", n.Pitch, n.OnsetMS, n.ValueOnsetMS, n.OffsetMS, n.Voice)
}

// Key is a key-signature event.
type Key struct {
	Tonic  int // tonic pitch class (0-11)
	Major  bool
	TimeMS int
}

// String renders the key as an MV2H "Key" line.
func (k Key) String() string {
	mode := "Min"
	if k.Major {
		mode = "Maj"
	}
	return fmt.Sprintf("Key %d %s %d", k.Tonic, mode, k.TimeMS)
}

// Hierarchy is the metrical structure of a piece: how bars divide into
// beats, beats into sub beats, and sub beats into tatum ticks, plus the
// tick length of a pickup bar when the piece starts with one.
type Hierarchy struct {
	BeatsPerBar      int
	SubBeatsPerBeat  int // 2 for simple meter, 3 for compound
	TatumsPerSubBeat int
	AnacrusisTicks   int
}

// String renders the hierarchy as an MV2H "Hierarchy" line.
func (h Hierarchy) String() string {
	return fmt.Sprintf("Hierarchy %d,%d %d a=%d", h.BeatsPerBar, h.SubBeatsPerBeat, h.TatumsPerSubBeat, h.AnacrusisTicks)
}

// Tatum is one point of the metrical grid.
type Tatum struct {
	TimeMS int
}

// String renders the tatum as an MV2H "Tatum" line.
func (t Tatum) String() string {
	return fmt.Sprintf("Tatum %d", t.TimeMS)
}

// Piece aggregates everything one conversion produces.
type Piece struct {
	Notes     []Note
	Tatums    []Tatum
	Keys      []Key
	Hierarchy Hierarchy
}

// Encode writes the piece in MV2H text form: all notes, then the tatum
// grid, then the keys, then the final hierarchy line.
func (p *Piece) Encode(w io.Writer) error {
	for _, n := range p.Notes {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	for _, t := range p.Tatums {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	for _, k := range p.Keys {
		if _, err := fmt.Fprintln(w, k); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, p.Hierarchy)
	return err
}

// String renders the piece in MV2H text form.
func (p *Piece) String() string {
	var sb strings.Builder
	p.Encode(&sb) // strings.Builder writes cannot fail
	return sb.String()
}
