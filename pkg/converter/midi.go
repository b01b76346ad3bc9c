package converter

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDISource reads a standard MIDI file and synthesizes the same tagged
// records a parsed-MusicXML stream carries, so both formats share one
// resolution path. MIDI has no tie notion, so every note is untied; the
// track number lands in the part column and the channel in the voice
// column.
type MIDISource struct {
	r io.Reader
}

// NewMIDISource creates a source reading a standard MIDI file from r.
func NewMIDISource(r io.Reader) *MIDISource {
	return &MIDISource{r: r}
}

// Name implements Source.
func (m *MIDISource) Name() string {
	return "MIDI"
}

// Format implements Source.
func (m *MIDISource) Format() Format {
	return FormatMIDI
}

// midiEvent is one track event at an absolute tick.
type midiEvent struct {
	tick  int
	track int
	msg   []byte
}

// Feed implements Source: it flattens the file into absolute-tick events,
// synthesizes records and runs them through the session.
func (m *MIDISource) Feed(s *Session) error {
	data, err := smf.ReadFrom(m.r)
	if err != nil {
		return fmt.Errorf("failed to parse MIDI file: %w", err)
	}

	metric, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return fmt.Errorf("unsupported MIDI time format %v", data.TimeFormat)
	}
	ticksPerQuarter := int(metric.Resolution())

	var events []midiEvent
	for trackNum, track := range data.Tracks {
		currentTick := 0
		for _, ev := range track {
			currentTick += int(ev.Delta)
			events = append(events, midiEvent{tick: currentTick, track: trackNum, msg: ev.Message})
		}
	}

	for _, rec := range recordsFromEvents(events, ticksPerQuarter, s.Warn) {
		s.Process(rec)
	}
	return nil
}

// attrState is the running meter and key fed into synthesized attributes
// records. MIDI carries the two as independent meta events, so each change
// is merged with the latest value of the other half.
type attrState struct {
	num    int
	denom  int
	fifths int
	mode   string
}

// recordsFromEvents turns absolute-tick MIDI events into tagged records,
// sorted by tick with attributes ahead of notes at equal ticks. warn
// receives recoverable problems such as unpaired note events.
func recordsFromEvents(events []midiEvent, ticksPerQuarter int, warn func(WarningKind, string, ...any)) []Record {
	var records []Record

	// Collect meter and key changes from every track, then fold them into
	// attributes records in tick order, merging changes that share a tick.
	type metaChange struct {
		tick  int
		apply func(*attrState)
	}
	var changes []metaChange

	for _, ev := range events {
		msg := ev.msg

		// Time signature meta (FF 58 04 nn dd cc bb)
		if len(msg) >= 7 && msg[0] == 0xFF && msg[1] == 0x58 && msg[2] == 0x04 {
			num := int(msg[3])
			denom := 1 << msg[4]
			changes = append(changes, metaChange{tick: ev.tick, apply: func(a *attrState) {
				a.num, a.denom = num, denom
			}})
		}

		// Key signature meta (FF 59 02 sf mi)
		if len(msg) >= 5 && msg[0] == 0xFF && msg[1] == 0x59 && msg[2] == 0x02 {
			fifths := int(int8(msg[3]))
			mode := "major"
			if msg[4] == 1 {
				mode = "minor"
			}
			changes = append(changes, metaChange{tick: ev.tick, apply: func(a *attrState) {
				a.fifths, a.mode = fifths, mode
			}})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].tick < changes[j].tick })

	state := attrState{num: 4, denom: 4, fifths: 0, mode: "major"}
	for i := 0; i < len(changes); {
		tick := changes[i].tick
		for ; i < len(changes) && changes[i].tick == tick; i++ {
			changes[i].apply(&state)
		}
		records = append(records, Record{
			Tick:       tick,
			Part:       "0",
			Staff:      "0",
			Voice:      "0",
			Kind:       KindAttributes,
			Divisions:  ticksPerQuarter,
			KeyFifths:  state.fifths,
			KeyMode:    state.mode,
			TimeSigNum: state.num,
			TimeSigDen: state.denom,
		})
	}

	// Pair note on/off events per track, channel and pitch. Events are
	// walked in track order with ticks ascending inside each track, so a
	// FIFO queue per key matches overlapping repeats of the same pitch.
	type noteKey struct {
		track   int
		channel int
		pitch   int
	}
	active := make(map[noteKey][]int)

	for _, ev := range events {
		msg := ev.msg
		if len(msg) < 3 {
			continue
		}
		status := msg[0]
		pitch := int(msg[1])
		velocity := msg[2]
		channel := int(status & 0x0F)
		k := noteKey{track: ev.track, channel: channel, pitch: pitch}

		// Note On (0x90-0x9F with velocity > 0)
		if status >= 0x90 && status <= 0x9F && velocity > 0 {
			active[k] = append(active[k], ev.tick)
			continue
		}

		// Note Off (0x80-0x8F, or Note On with velocity 0)
		if (status >= 0x80 && status <= 0x8F) || (status >= 0x90 && status <= 0x9F && velocity == 0) {
			onsets := active[k]
			if len(onsets) == 0 {
				warn(WarnOrphanEvent, "note off with no matching note on (track %d channel %d pitch %d at tick %d)", ev.track, channel, pitch, ev.tick)
				continue
			}
			onset := onsets[0]
			if len(onsets) == 1 {
				delete(active, k)
			} else {
				active[k] = onsets[1:]
			}
			records = append(records, Record{
				Tick:     onset,
				Part:     strconv.Itoa(ev.track),
				Staff:    "0",
				Voice:    strconv.Itoa(channel),
				Kind:     KindChord,
				Duration: ev.tick - onset,
				TieType:  TieNone,
				Pitches:  []string{NoteName(pitch)},
			})
		}
	}

	// Notes still sounding at end of file have no length; drop them.
	var stuck []noteKey
	for k := range active {
		stuck = append(stuck, k)
	}
	sort.Slice(stuck, func(i, j int) bool {
		a, b := stuck[i], stuck[j]
		if a.track != b.track {
			return a.track < b.track
		}
		if a.channel != b.channel {
			return a.channel < b.channel
		}
		return a.pitch < b.pitch
	})
	for _, k := range stuck {
		for _, onset := range active[k] {
			warn(WarnOrphanEvent, "note on with no matching note off (track %d channel %d pitch %d at tick %d), dropping it", k.track, k.channel, k.pitch, onset)
		}
	}

	// The session requires non-decreasing ticks, with attributes taking
	// effect before the notes that share their tick.
	rank := func(k RecordKind) int {
		if k == KindAttributes {
			return 0
		}
		return 1
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Tick != records[j].Tick {
			return records[i].Tick < records[j].Tick
		}
		return rank(records[i].Kind) < rank(records[j].Kind)
	})

	return records
}
