package converter

import (
	"bufio"
	"fmt"
	"io"
)

// MusicXMLSource feeds the tab-delimited record stream produced by an
// external MusicXML parser, one record per line.
type MusicXMLSource struct {
	r io.Reader
}

// NewMusicXMLSource creates a source reading parser output from r.
func NewMusicXMLSource(r io.Reader) *MusicXMLSource {
	return &MusicXMLSource{r: r}
}

// Name implements Source.
func (m *MusicXMLSource) Name() string {
	return "parsed MusicXML"
}

// Format implements Source.
func (m *MusicXMLSource) Format() Format {
	return FormatMusicXML
}

// Feed implements Source, handing every line to the session.
func (m *MusicXMLSource) Feed(s *Session) error {
	scanner := bufio.NewScanner(m.r)
	for scanner.Scan() {
		s.ProcessLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan input: %w", err)
	}
	return nil
}
