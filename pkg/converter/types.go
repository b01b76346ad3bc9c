// Package converter resolves symbolic-music event streams into the MV2H
// note/key/hierarchy model
package converter

import (
	"fmt"

	"github.com/james-see/score2mv2h/pkg/mv2h"
)

// Beat lengths in milliseconds. MV2H timestamps are milliseconds, so the
// quantizer needs a fixed tempo per run.
const (
	// DefaultMSPerBeat is used for MIDI and generic input.
	DefaultMSPerBeat = 500
	// MusicXMLMSPerBeat is used for parsed-MusicXML input.
	MusicXMLMSPerBeat = 600
)

// DefaultDivisions is the ticks-per-quarter-note assumed until an
// attributes record supplies one.
const DefaultDivisions = 4

// Config controls a conversion run.
type Config struct {
	// MSPerBeat is the beat length in milliseconds; 0 selects the default
	// for the input format.
	MSPerBeat int

	// AnacrusisSubBeats overrides the pickup length of the opening bar,
	// in sub beats. 0 keeps the value derived from the input.
	AnacrusisSubBeats int

	// Voice separation switches for parsed-MusicXML input. Each enabled
	// field contributes to a note's voice identity; when none are enabled
	// all three are used.
	UsePart  bool
	UseStaff bool
	UseVoice bool

	// Voice separation switches for MIDI input; when neither is enabled
	// both are used.
	UseTrack   bool
	UseChannel bool
}

// forFormat fills in the per-format defaults: beat length and which record
// fields separate voices.
func (c Config) forFormat(f Format) Config {
	switch f {
	case FormatMIDI:
		if c.MSPerBeat == 0 {
			c.MSPerBeat = DefaultMSPerBeat
		}
		if !c.UseTrack && !c.UseChannel {
			c.UseTrack = true
			c.UseChannel = true
		}
		// MIDI sources put the track in the part column and the channel
		// in the voice column.
		c.UsePart = c.UseTrack
		c.UseStaff = false
		c.UseVoice = c.UseChannel
	default:
		if c.MSPerBeat == 0 {
			c.MSPerBeat = MusicXMLMSPerBeat
		}
		if !c.UsePart && !c.UseStaff && !c.UseVoice {
			c.UsePart = true
			c.UseStaff = true
			c.UseVoice = true
		}
	}
	return c
}

// WarningKind classifies recoverable conversion problems.
type WarningKind string

const (
	WarnMalformedRecord  WarningKind = "malformed-record"
	WarnUnrecognizedKind WarningKind = "unrecognized-kind"
	WarnBadPitch         WarningKind = "bad-pitch"
	WarnTieNotFound      WarningKind = "tie-not-found"
	WarnUnterminatedTie  WarningKind = "unterminated-tie"
	WarnMeterChange      WarningKind = "meter-change"
	WarnNoAttributes     WarningKind = "no-attributes"
	WarnOrphanEvent      WarningKind = "orphan-event"
)

// Warning describes one recoverable problem found during conversion.
// Warnings never abort a run; the session records them and keeps going.
type Warning struct {
	Kind WarningKind
	Line int // 1-based input line, 0 when not tied to a line
	Msg  string
}

// String formats the warning for display.
func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Msg)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Msg)
}

// Source feeds symbolic-music records into a session.
type Source interface {
	Name() string
	Format() Format
	Feed(s *Session) error
}

// Convert runs src through a fresh session and returns the finished piece
// together with every warning raised along the way. The error is non-nil
// only when the source itself failed; malformed content never aborts a run.
func Convert(src Source, cfg Config) (*mv2h.Piece, []Warning, error) {
	s := NewSession(cfg.forFormat(src.Format()))
	if err := src.Feed(s); err != nil {
		return nil, s.Warnings(), fmt.Errorf("failed to read %s input: %w", src.Name(), err)
	}
	return s.Finish(), s.Warnings(), nil
}
