package converter

import (
	"math"

	"github.com/james-see/score2mv2h/pkg/mv2h"
)

// InferHierarchy derives the metrical hierarchy from a time signature and a
// tick resolution. first marks the first hierarchy of the stream, whose
// tick becomes the pickup (anacrusis) offset; later hierarchies carry none.
func InferHierarchy(ticksPerQuarter, num, denom int, first bool, tick int) mv2h.Hierarchy {
	beatsPerBar := num
	subBeatsPerBeat := 2
	subBeatsPerQuarter := denom / 2

	// A numerator above 3 and divisible by 3 means compound meter: the bar
	// groups in threes and the printed denominator counts sub beats.
	if beatsPerBar%3 == 0 && beatsPerBar > 3 {
		beatsPerBar /= 3
		subBeatsPerBeat = 3
		subBeatsPerQuarter = denom / 4
	}
	if subBeatsPerQuarter < 1 {
		subBeatsPerQuarter = 1
	}

	// Integer division: inputs whose resolution does not divide evenly are
	// approximated, not rejected.
	tatumsPerSubBeat := ticksPerQuarter / subBeatsPerQuarter
	if tatumsPerSubBeat < 1 {
		tatumsPerSubBeat = 1
	}

	anacrusis := 0
	if first {
		anacrusis = tick
	}

	return mv2h.Hierarchy{
		BeatsPerBar:      beatsPerBar,
		SubBeatsPerBeat:  subBeatsPerBeat,
		TatumsPerSubBeat: tatumsPerSubBeat,
		AnacrusisTicks:   anacrusis,
	}
}

// HierarchyDecision reports what applying a derived hierarchy did.
type HierarchyDecision string

const (
	// HierarchyApplied means the hierarchy was installed, or re-derived
	// equal to the active one.
	HierarchyApplied HierarchyDecision = "applied"
	// HierarchyConflictIgnored means a conflicting mid-piece meter arrived
	// and was dropped in favor of the active hierarchy.
	HierarchyConflictIgnored HierarchyDecision = "conflict-ignored"
)

// sameMeter reports whether two hierarchies agree on everything except the
// pickup offset.
func sameMeter(a, b mv2h.Hierarchy) bool {
	return a.BeatsPerBar == b.BeatsPerBar &&
		a.SubBeatsPerBeat == b.SubBeatsPerBeat &&
		a.TatumsPerSubBeat == b.TatumsPerSubBeat
}

// timeMS converts a tick into milliseconds under the given hierarchy.
// Rounds to the nearest millisecond, halves away from zero.
func timeMS(tick int, h mv2h.Hierarchy, msPerBeat int) int {
	beats := float64(tick) / float64(h.TatumsPerSubBeat) / float64(h.SubBeatsPerBeat)
	return int(math.Round(beats * float64(msPerBeat)))
}
