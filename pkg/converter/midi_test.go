package converter

import (
	"testing"
)

func collectWarnings(kinds *[]WarningKind) func(WarningKind, string, ...any) {
	return func(kind WarningKind, format string, args ...any) {
		*kinds = append(*kinds, kind)
	}
}

func noteOn(tick, track, channel, pitch int) midiEvent {
	return midiEvent{tick: tick, track: track, msg: []byte{0x90 | byte(channel), byte(pitch), 100}}
}

func noteOff(tick, track, channel, pitch int) midiEvent {
	return midiEvent{tick: tick, track: track, msg: []byte{0x80 | byte(channel), byte(pitch), 0}}
}

func timeSigMeta(tick, num int, denomPow byte) midiEvent {
	return midiEvent{tick: tick, msg: []byte{0xFF, 0x58, 0x04, byte(num), denomPow, 0x18, 0x08}}
}

func keySigMeta(tick int, fifths int8, minor bool) midiEvent {
	mi := byte(0)
	if minor {
		mi = 1
	}
	return midiEvent{tick: tick, msg: []byte{0xFF, 0x59, 0x02, byte(fifths), mi}}
}

func TestRecordsFromEventsNotePairing(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOn(0, 0, 0, 60),
		noteOff(4, 0, 0, 60),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(warned) != 0 {
		t.Errorf("got %d warnings, want 0", len(warned))
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Kind != KindChord {
		t.Errorf("Kind = %v, want %v", rec.Kind, KindChord)
	}
	if rec.Tick != 0 || rec.Duration != 4 {
		t.Errorf("Tick/Duration = %d/%d, want 0/4", rec.Tick, rec.Duration)
	}
	if rec.TieType != TieNone {
		t.Errorf("TieType = %d, want %d", rec.TieType, TieNone)
	}
	if len(rec.Pitches) != 1 || rec.Pitches[0] != "C4" {
		t.Errorf("Pitches = %v, want [C4]", rec.Pitches)
	}
	if rec.Part != "0" || rec.Voice != "0" {
		t.Errorf("Part/Voice = %q/%q, want 0/0", rec.Part, rec.Voice)
	}
}

func TestRecordsFromEventsTrackAndChannel(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOn(0, 2, 3, 72),
		noteOff(8, 2, 3, 72),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	// Track lands in the part column, channel in the voice column.
	if records[0].Part != "2" || records[0].Voice != "3" {
		t.Errorf("Part/Voice = %q/%q, want 2/3", records[0].Part, records[0].Voice)
	}
}

func TestRecordsFromEventsVelocityZeroIsOff(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOn(0, 0, 0, 64),
		{tick: 6, track: 0, msg: []byte{0x90, 64, 0}},
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(warned) != 0 {
		t.Errorf("got %d warnings, want 0", len(warned))
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Duration != 6 {
		t.Errorf("Duration = %d, want 6", records[0].Duration)
	}
}

func TestRecordsFromEventsOverlappingSamePitch(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOn(0, 0, 0, 60),
		noteOn(2, 0, 0, 60),
		noteOff(4, 0, 0, 60),
		noteOff(6, 0, 0, 60),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(warned) != 0 {
		t.Errorf("got %d warnings, want 0", len(warned))
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// The first off closes the first on.
	if records[0].Tick != 0 || records[0].Duration != 4 {
		t.Errorf("first = %d+%d, want 0+4", records[0].Tick, records[0].Duration)
	}
	if records[1].Tick != 2 || records[1].Duration != 4 {
		t.Errorf("second = %d+%d, want 2+4", records[1].Tick, records[1].Duration)
	}
}

func TestRecordsFromEventsTimeSignature(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		timeSigMeta(0, 6, 3), // 6/8
	}

	records := recordsFromEvents(events, 480, collectWarnings(&warned))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Kind != KindAttributes {
		t.Fatalf("Kind = %v, want %v", rec.Kind, KindAttributes)
	}
	if rec.TimeSigNum != 6 || rec.TimeSigDen != 8 {
		t.Errorf("time signature = %d/%d, want 6/8", rec.TimeSigNum, rec.TimeSigDen)
	}
	if rec.Divisions != 480 {
		t.Errorf("Divisions = %d, want 480", rec.Divisions)
	}
	// Key defaults to C major until a key signature arrives.
	if rec.KeyFifths != 0 || rec.KeyMode != "major" {
		t.Errorf("key = %d/%q, want 0/major", rec.KeyFifths, rec.KeyMode)
	}
}

func TestRecordsFromEventsKeySignature(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		keySigMeta(0, -2, true), // two flats, minor mode: G minor
	}

	records := recordsFromEvents(events, 480, collectWarnings(&warned))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.KeyFifths != -2 || rec.KeyMode != "minor" {
		t.Errorf("key = %d/%q, want -2/minor", rec.KeyFifths, rec.KeyMode)
	}
	// Meter defaults to 4/4 until a time signature arrives.
	if rec.TimeSigNum != 4 || rec.TimeSigDen != 4 {
		t.Errorf("time signature = %d/%d, want 4/4", rec.TimeSigNum, rec.TimeSigDen)
	}
}

func TestRecordsFromEventsMergesMetaAtSameTick(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		timeSigMeta(0, 3, 2), // 3/4
		keySigMeta(0, 1, false),
	}

	records := recordsFromEvents(events, 480, collectWarnings(&warned))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 merged attributes record", len(records))
	}

	rec := records[0]
	if rec.TimeSigNum != 3 || rec.TimeSigDen != 4 {
		t.Errorf("time signature = %d/%d, want 3/4", rec.TimeSigNum, rec.TimeSigDen)
	}
	if rec.KeyFifths != 1 || rec.KeyMode != "major" {
		t.Errorf("key = %d/%q, want 1/major", rec.KeyFifths, rec.KeyMode)
	}
}

func TestRecordsFromEventsCarriesMetaState(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		timeSigMeta(0, 6, 3),
		keySigMeta(96, 2, false),
	}

	records := recordsFromEvents(events, 480, collectWarnings(&warned))
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	// The key change at tick 96 keeps the 6/8 meter already in force.
	second := records[1]
	if second.Tick != 96 {
		t.Errorf("second tick = %d, want 96", second.Tick)
	}
	if second.TimeSigNum != 6 || second.TimeSigDen != 8 {
		t.Errorf("second time signature = %d/%d, want 6/8", second.TimeSigNum, second.TimeSigDen)
	}
	if second.KeyFifths != 2 {
		t.Errorf("second key fifths = %d, want 2", second.KeyFifths)
	}
}

func TestRecordsFromEventsOrphanOff(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOff(4, 0, 0, 60),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if len(warned) != 1 || warned[0] != WarnOrphanEvent {
		t.Errorf("warnings = %v, want one %v", warned, WarnOrphanEvent)
	}
}

func TestRecordsFromEventsStuckNoteOn(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOn(0, 0, 0, 60),
		noteOn(0, 0, 0, 64),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if len(warned) != 2 {
		t.Errorf("got %d warnings, want 2", len(warned))
	}
}

func TestRecordsFromEventsAttributesSortFirst(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		noteOn(0, 0, 0, 60),
		noteOff(4, 0, 0, 60),
		timeSigMeta(0, 4, 2),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Kind != KindAttributes {
		t.Errorf("first record = %v, want attributes ahead of notes at the same tick", records[0].Kind)
	}
	if records[1].Kind != KindChord {
		t.Errorf("second record = %v, want %v", records[1].Kind, KindChord)
	}
}

func TestRecordsFromEventsIgnoresOtherMessages(t *testing.T) {
	var warned []WarningKind
	events := []midiEvent{
		{tick: 0, msg: []byte{0xB0, 7, 100}}, // controller
		{tick: 0, msg: []byte{0xC0, 5}},      // program change, two bytes
		{tick: 0, msg: []byte{0xFF, 0x2F, 0x00}}, // end of track
		noteOn(0, 0, 0, 60),
		noteOff(4, 0, 0, 60),
	}

	records := recordsFromEvents(events, 4, collectWarnings(&warned))
	if len(warned) != 0 {
		t.Errorf("got %d warnings, want 0", len(warned))
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}
