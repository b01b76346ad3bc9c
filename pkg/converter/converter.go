package converter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format represents an input format
type Format string

const (
	FormatMusicXML Format = "musicxml"
	FormatMIDI     Format = "midi"
	FormatUnknown  Format = "unknown"
)

// DetectFormat detects the input format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".xml", ".musicxml", ".txt":
		return FormatMusicXML
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects the input format from file content
func DetectFormatFromContent(data []byte) Format {
	// Check for MIDI file signature "MThd"
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	// Anything else is treated as a parsed-MusicXML record stream
	return FormatMusicXML
}

// NewSource returns the source implementation for the given format reading
// from data.
func NewSource(format Format, data []byte) (Source, error) {
	switch format {
	case FormatMIDI:
		return NewMIDISource(bytes.NewReader(data)), nil
	case FormatMusicXML:
		return NewMusicXMLSource(bytes.NewReader(data)), nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// ConvertFile converts an input file and writes the MV2H text to
// outputPath. The returned warnings describe every recoverable problem in
// the input; only I/O and unreadable-container failures produce an error.
func ConvertFile(inputPath, outputPath string, cfg Config) ([]Warning, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	format := DetectFormat(inputPath)
	if format == FormatUnknown {
		format = DetectFormatFromContent(data)
	}

	src, err := NewSource(format, data)
	if err != nil {
		return nil, err
	}

	piece, warnings, err := Convert(src, cfg)
	if err != nil {
		return warnings, fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(piece.String()), 0644); err != nil {
		return warnings, fmt.Errorf("failed to write output file: %w", err)
	}

	return warnings, nil
}

// GetSupportedFormats returns the input formats the converter accepts
func GetSupportedFormats() []string {
	return []string{
		"musicxml (parsed record stream) -> mv2h",
		"midi -> mv2h",
	}
}
