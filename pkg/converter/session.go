package converter

import (
	"fmt"
	"strings"

	"github.com/james-see/score2mv2h/pkg/mv2h"
)

// Session resolves one record stream into an mv2h.Piece. A session serves a
// single conversion run; nothing is shared between runs. Records must
// arrive in non-decreasing tick order; the session never sorts.
type Session struct {
	cfg Config

	piece    mv2h.Piece
	ties     *tieStore
	warnings []Warning

	haveHierarchy bool
	divisions     int // ticks per quarter note from the latest attributes

	haveTick  bool
	firstTick int
	lastTick  int

	voices map[string]int // masked part/staff/voice tuple -> voice number

	line int // current 1-based input line, 0 outside ProcessLine
}

// NewSession creates a session ready to consume records.
func NewSession(cfg Config) *Session {
	if cfg.MSPerBeat == 0 {
		cfg.MSPerBeat = DefaultMSPerBeat
	}
	if !cfg.UsePart && !cfg.UseStaff && !cfg.UseVoice {
		cfg.UsePart = true
		cfg.UseStaff = true
		cfg.UseVoice = true
	}
	return &Session{
		cfg:       cfg,
		ties:      newTieStore(),
		divisions: DefaultDivisions,
		voices:    make(map[string]int),
	}
}

// ProcessLine decodes and processes one line of parser output. Blank lines
// and lines starting with '#' are skipped.
func (s *Session) ProcessLine(line string) {
	s.line++
	line = strings.TrimRight(line, "\r\n")

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return
	}

	rec, err := ParseRecord(line)
	if err != nil {
		s.warnf(WarnMalformedRecord, s.line, "skipping record: %v", err)
		return
	}
	s.Process(rec)
}

// Process dispatches one record.
func (s *Session) Process(rec Record) {
	switch rec.Kind {
	case KindAttributes:
		s.observeTicks(rec.Tick, rec.Tick)
		s.processAttributes(rec)
	case KindChord:
		s.observeTicks(rec.Tick, rec.Tick+rec.Duration)
		s.processChord(rec)
	case KindTremolo:
		s.observeTicks(rec.Tick, rec.Tick+rec.Duration)
		s.processTremolo(rec)
	case KindRest:
		// Rests carry no notes; they only widen the tatum grid.
		s.observeTicks(rec.Tick, rec.Tick+rec.Duration)
	default:
		s.warnf(WarnUnrecognizedKind, s.line, "skipping record of kind %q", rec.Kind)
	}
}

// ApplyHierarchy installs h as the active hierarchy and reports what
// happened. A hierarchy that disagrees with the active meter is dropped
// with a warning: mid-piece meter changes are not modeled. A re-derivation
// equal to the active meter leaves it untouched, so the pickup offset of
// the opening bar survives.
func (s *Session) ApplyHierarchy(h mv2h.Hierarchy) HierarchyDecision {
	if !s.haveHierarchy {
		s.piece.Hierarchy = h
		s.haveHierarchy = true
		return HierarchyApplied
	}
	if !sameMeter(s.piece.Hierarchy, h) {
		s.warnf(WarnMeterChange, s.line, "keeping %v, ignoring mid-piece change to %v", s.piece.Hierarchy, h)
		return HierarchyConflictIgnored
	}
	return HierarchyApplied
}

// Warnings returns every warning raised so far.
func (s *Session) Warnings() []Warning {
	return s.warnings
}

// Finish flushes pending ties, builds the tatum grid and returns the
// finished piece. The session must not be used afterwards.
func (s *Session) Finish() *mv2h.Piece {
	for _, n := range s.ties.flush() {
		s.warnf(WarnUnterminatedTie, 0, "tie never closed at pitch %d voice %d, keeping note as untied", n.Pitch, n.Voice)
		s.piece.Notes = append(s.piece.Notes, n)
	}

	if !s.haveHierarchy {
		s.warnf(WarnNoAttributes, 0, "no attributes record seen, assuming 4/4")
		s.ApplyHierarchy(InferHierarchy(s.divisions, 4, 4, true, 0))
	}

	if s.cfg.AnacrusisSubBeats > 0 {
		s.piece.Hierarchy.AnacrusisTicks = s.cfg.AnacrusisSubBeats * s.piece.Hierarchy.TatumsPerSubBeat
	}

	if s.haveTick {
		for tick := s.firstTick; tick < s.lastTick; tick++ {
			s.piece.Tatums = append(s.piece.Tatums, mv2h.Tatum{TimeMS: s.timeMS(tick)})
		}
	}

	return &s.piece
}

func (s *Session) processAttributes(rec Record) {
	if rec.Divisions > 0 {
		s.divisions = rec.Divisions
	}

	h := InferHierarchy(s.divisions, rec.TimeSigNum, rec.TimeSigDen, !s.haveHierarchy, rec.Tick)
	s.ApplyHierarchy(h)

	major := isMajorMode(rec.KeyMode)
	s.piece.Keys = append(s.piece.Keys, mv2h.Key{
		Tonic:  KeyTonic(rec.KeyFifths, major),
		Major:  major,
		TimeMS: s.timeMS(rec.Tick),
	})
}

func (s *Session) processChord(rec Record) {
	s.ensureHierarchy()

	voice := s.voiceFor(rec)
	onMS := s.timeMS(rec.Tick)
	offMS := s.timeMS(rec.Tick + rec.Duration)

	for _, token := range rec.Pitches {
		pitch, err := ParsePitch(token)
		if err != nil {
			s.warnf(WarnBadPitch, s.line, "skipping pitch: %v", err)
			continue
		}
		s.resolveNote(pitch, voice, onMS, offMS, rec.TieType)
	}
}

// processTremolo expands a measured-tremolo record into a run of equal
// untied slices, one per half quarter note of duration. A fractional
// remainder is dropped; this mirrors how the notation is played, not the
// exact written duration.
func (s *Session) processTremolo(rec Record) {
	s.ensureHierarchy()

	voice := s.voiceFor(rec)

	pitches := make([]int, 0, len(rec.Pitches))
	for _, token := range rec.Pitches {
		pitch, err := ParsePitch(token)
		if err != nil {
			s.warnf(WarnBadPitch, s.line, "skipping pitch: %v", err)
			continue
		}
		pitches = append(pitches, pitch)
	}

	ticksPerTremolo := s.divisions / 2
	if ticksPerTremolo < 1 {
		ticksPerTremolo = 1
	}
	numTremolos := rec.Duration / ticksPerTremolo

	for i := 0; i < numTremolos; i++ {
		onMS := s.timeMS(rec.Tick + i*ticksPerTremolo)
		offMS := s.timeMS(rec.Tick + (i+1)*ticksPerTremolo)
		for _, pitch := range pitches {
			s.resolveNote(pitch, voice, onMS, offMS, TieNone)
		}
	}
}

// resolveNote runs one decoded pitch through tie resolution.
func (s *Session) resolveNote(pitch, voice, onMS, offMS, tieType int) {
	switch tieType {
	case TieOut:
		s.ties.put(mv2h.Note{Pitch: pitch, OnsetMS: onMS, ValueOnsetMS: onMS, OffsetMS: offMS, Voice: voice})

	case TieIn:
		n, ok := s.ties.take(pitch, voice, onMS)
		if !ok {
			s.warnf(WarnTieNotFound, s.line, "no tied note at pitch %d voice %d ending at %dms, keeping note as untied", pitch, voice, onMS)
			n = mv2h.Note{Pitch: pitch, OnsetMS: onMS, ValueOnsetMS: onMS, Voice: voice}
		}
		n.OffsetMS = offMS
		s.piece.Notes = append(s.piece.Notes, n)

	case TieBoth:
		n, ok := s.ties.take(pitch, voice, onMS)
		if !ok {
			s.warnf(WarnTieNotFound, s.line, "no tied note at pitch %d voice %d ending at %dms, starting a new tie", pitch, voice, onMS)
			n = mv2h.Note{Pitch: pitch, OnsetMS: onMS, ValueOnsetMS: onMS, Voice: voice}
		}
		n.OffsetMS = offMS
		s.ties.put(n)

	default:
		// TieNone, and anything out of range, is an untied note.
		s.piece.Notes = append(s.piece.Notes, mv2h.Note{Pitch: pitch, OnsetMS: onMS, ValueOnsetMS: onMS, OffsetMS: offMS, Voice: voice})
	}
}

// ensureHierarchy installs the 4/4 fallback when notes arrive before any
// attributes record.
func (s *Session) ensureHierarchy() {
	if s.haveHierarchy {
		return
	}
	s.warnf(WarnNoAttributes, s.line, "note before any attributes record, assuming 4/4")
	s.ApplyHierarchy(InferHierarchy(s.divisions, 4, 4, true, 0))
}

// voiceFor returns the voice number for the record's masked
// part/staff/voice identity, allocating numbers in first-seen order.
func (s *Session) voiceFor(rec Record) int {
	var b strings.Builder
	if s.cfg.UsePart {
		b.WriteString(rec.Part)
	}
	b.WriteByte('\t')
	if s.cfg.UseStaff {
		b.WriteString(rec.Staff)
	}
	b.WriteByte('\t')
	if s.cfg.UseVoice {
		b.WriteString(rec.Voice)
	}

	key := b.String()
	if v, ok := s.voices[key]; ok {
		return v
	}
	v := len(s.voices)
	s.voices[key] = v
	return v
}

// observeTicks widens the tick range covered by the tatum grid.
func (s *Session) observeTicks(tick, end int) {
	if !s.haveTick {
		s.firstTick, s.lastTick = tick, end
		s.haveTick = true
		return
	}
	if tick < s.firstTick {
		s.firstTick = tick
	}
	if end > s.lastTick {
		s.lastTick = end
	}
}

func (s *Session) timeMS(tick int) int {
	return timeMS(tick, s.piece.Hierarchy, s.cfg.MSPerBeat)
}

// Warn records a recoverable problem not tied to an input line. Sources
// use this for container-level problems that leave the stream usable.
func (s *Session) Warn(kind WarningKind, format string, args ...any) {
	s.warnf(kind, 0, format, args...)
}

func (s *Session) warnf(kind WarningKind, line int, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)})
}

// KeyTonic converts a circle-of-fifths position into a tonic pitch class.
func KeyTonic(fifths int, major bool) int {
	tonic := ((fifths*7)%12 + 12) % 12
	if !major {
		tonic = (tonic + 9) % 12
	}
	return tonic
}

func isMajorMode(mode string) bool {
	return !strings.EqualFold(mode, "minor")
}
