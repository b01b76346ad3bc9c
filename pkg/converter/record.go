package converter

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordKind tags one input record.
type RecordKind string

const (
	KindAttributes RecordKind = "attributes"
	KindRest       RecordKind = "rest"
	KindChord      RecordKind = "chord"
	KindTremolo    RecordKind = "tremolo-m"
)

// Tie types carried by chord records.
const (
	TieNone = 0 // untied
	TieOut  = 1 // starts a tie chain
	TieIn   = 2 // ends a tie chain
	TieBoth = 3 // continues a tie chain
)

// Record is one decoded line of the upstream parser's output. The first
// six columns are shared by every kind; the rest depend on the kind.
type Record struct {
	Tick    int
	Measure int
	Part    string
	Staff   string
	Voice   string
	Kind    RecordKind

	// chord / tremolo-m payload
	Duration int
	TieType  int
	Pitches  []string

	// attributes payload
	Divisions  int // ticks per quarter note
	KeyFifths  int // circle-of-fifths position, flats negative
	KeyMode    string
	TimeSigNum int
	TimeSigDen int
}

// minColumns is the shortest meaningful record: tick through kind.
const minColumns = 6

// ParseRecord decodes one tab-delimited line of parser output.
func ParseRecord(line string) (Record, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < minColumns {
		return Record{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(cols))
	}

	var rec Record
	var err error
	if rec.Tick, err = intCol(cols, 0, "tick"); err != nil {
		return Record{}, err
	}
	if rec.Measure, err = intCol(cols, 1, "measure"); err != nil {
		return Record{}, err
	}
	rec.Part = cols[2]
	rec.Staff = cols[3]
	rec.Voice = cols[4]
	rec.Kind = RecordKind(cols[5])

	switch rec.Kind {
	case KindAttributes:
		if len(cols) < 11 {
			return Record{}, fmt.Errorf("attributes record needs 11 columns, got %d", len(cols))
		}
		if rec.Divisions, err = intCol(cols, 6, "divisions"); err != nil {
			return Record{}, err
		}
		if rec.KeyFifths, err = intCol(cols, 7, "key fifths"); err != nil {
			return Record{}, err
		}
		rec.KeyMode = cols[8]
		if rec.TimeSigNum, err = intCol(cols, 9, "time signature numerator"); err != nil {
			return Record{}, err
		}
		if rec.TimeSigDen, err = intCol(cols, 10, "time signature denominator"); err != nil {
			return Record{}, err
		}

	case KindChord, KindTremolo:
		if len(cols) < 9 {
			return Record{}, fmt.Errorf("%s record needs 9 columns, got %d", rec.Kind, len(cols))
		}
		if rec.Duration, err = intCol(cols, 6, "duration"); err != nil {
			return Record{}, err
		}
		if rec.TieType, err = intCol(cols, 7, "tie type"); err != nil {
			return Record{}, err
		}
		count, err := intCol(cols, 8, "note count")
		if err != nil {
			return Record{}, err
		}
		if count < 0 || len(cols) < 9+count {
			return Record{}, fmt.Errorf("%s record declares %d pitches, got %d", rec.Kind, count, len(cols)-9)
		}
		rec.Pitches = cols[9 : 9+count]

	case KindRest:
		// Rests carry a duration when the parser emits one; it only
		// widens the tatum grid.
		if len(cols) > 6 {
			if d, err := strconv.Atoi(cols[6]); err == nil {
				rec.Duration = d
			}
		}
	}

	return rec, nil
}

func intCol(cols []string, i int, name string) (int, error) {
	v, err := strconv.Atoi(cols[i])
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, cols[i], err)
	}
	return v, nil
}
