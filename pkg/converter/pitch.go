package converter

import (
	"fmt"
	"strconv"
)

// basePitchClass maps note letters to their semitone offset within the
// octave.
var basePitchClass = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// noteNames is the reverse direction, one spelling per pitch class.
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParsePitch decodes a note-name token such as "C4", "F#3" or "Bb-1" into a
// MIDI pitch number (A4 = 69). Any run of '#' and 'b' after the letter is
// counted as the net accidental; the remainder is the signed octave.
func ParsePitch(token string) (int, error) {
	if token == "" {
		return 0, fmt.Errorf("empty pitch token")
	}

	base, ok := basePitchClass[token[0]]
	if !ok {
		return 0, fmt.Errorf("pitch %q: letter must be A-G", token)
	}

	accidental := 0
	i := 1
	for i < len(token) && (token[i] == '#' || token[i] == 'b') {
		if token[i] == '#' {
			accidental++
		} else {
			accidental--
		}
		i++
	}

	octave, err := strconv.Atoi(token[i:])
	if err != nil {
		return 0, fmt.Errorf("pitch %q: bad octave: %w", token, err)
	}

	return (octave+1)*12 + base + accidental, nil
}

// NoteName renders a MIDI pitch number as a note token, e.g. 60 -> "C4".
func NoteName(pitch int) string {
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}
