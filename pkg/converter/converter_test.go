package converter

import (
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"piece.mid", FormatMIDI},
		{"piece.midi", FormatMIDI},
		{"score.xml", FormatMusicXML},
		{"score.musicxml", FormatMusicXML},
		{"score.txt", FormatMusicXML},
		{"score.dat", FormatUnknown},
		{"score", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"MIDI file", []byte("MThd\x00\x00\x00\x06"), FormatMIDI},
		{"record stream", []byte("0\t1\tP1\t1\t1\tattributes\t4\t0\tmajor\t4\t4"), FormatMusicXML},
		{"short data", []byte{0x00, 0x01}, FormatMusicXML},
		{"empty", nil, FormatMusicXML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNewSource(t *testing.T) {
	if _, err := NewSource(FormatMusicXML, nil); err != nil {
		t.Errorf("NewSource(FormatMusicXML) returned error: %v", err)
	}
	if _, err := NewSource(FormatMIDI, nil); err != nil {
		t.Errorf("NewSource(FormatMIDI) returned error: %v", err)
	}
	if _, err := NewSource(FormatUnknown, nil); err == nil {
		t.Error("NewSource(FormatUnknown) should return an error")
	}
}

func TestConfigForFormatDefaults(t *testing.T) {
	t.Run("musicxml uses all voice fields and 600ms beats", func(t *testing.T) {
		cfg := Config{}.forFormat(FormatMusicXML)
		if cfg.MSPerBeat != MusicXMLMSPerBeat {
			t.Errorf("MSPerBeat = %d, want %d", cfg.MSPerBeat, MusicXMLMSPerBeat)
		}
		if !cfg.UsePart || !cfg.UseStaff || !cfg.UseVoice {
			t.Errorf("voice fields = %v/%v/%v, want all true", cfg.UsePart, cfg.UseStaff, cfg.UseVoice)
		}
	})

	t.Run("midi uses track and channel and 500ms beats", func(t *testing.T) {
		cfg := Config{}.forFormat(FormatMIDI)
		if cfg.MSPerBeat != DefaultMSPerBeat {
			t.Errorf("MSPerBeat = %d, want %d", cfg.MSPerBeat, DefaultMSPerBeat)
		}
		// Track maps onto the part column, channel onto the voice column.
		if !cfg.UsePart || cfg.UseStaff || !cfg.UseVoice {
			t.Errorf("voice fields = %v/%v/%v, want true/false/true", cfg.UsePart, cfg.UseStaff, cfg.UseVoice)
		}
	})

	t.Run("explicit choices survive", func(t *testing.T) {
		cfg := Config{MSPerBeat: 250, UseStaff: true}.forFormat(FormatMusicXML)
		if cfg.MSPerBeat != 250 {
			t.Errorf("MSPerBeat = %d, want 250", cfg.MSPerBeat)
		}
		if cfg.UsePart || !cfg.UseStaff || cfg.UseVoice {
			t.Errorf("voice fields = %v/%v/%v, want false/true/false", cfg.UsePart, cfg.UseStaff, cfg.UseVoice)
		}

		cfg = Config{UseChannel: true}.forFormat(FormatMIDI)
		if cfg.UsePart || !cfg.UseVoice {
			t.Errorf("voice fields = %v/%v, want false/true", cfg.UsePart, cfg.UseVoice)
		}
	})
}

func TestGetSupportedFormats(t *testing.T) {
	formats := GetSupportedFormats()

	if len(formats) != 2 {
		t.Errorf("GetSupportedFormats() returned %d entries, want 2", len(formats))
	}
}

func TestConvertMusicXMLStream(t *testing.T) {
	input := "0\t1\tP1\t1\t1\tattributes\t4\t0\tmajor\t4\t4\n" +
		"0\t1\tP1\t1\t1\tchord\t4\t0\t1\tC4\n"

	src, err := NewSource(FormatMusicXML, []byte(input))
	if err != nil {
		t.Fatalf("NewSource() returned error: %v", err)
	}

	piece, warnings, err := Convert(src, Config{})
	if err != nil {
		t.Fatalf("Convert() returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Convert() produced %d warnings, want 0: %v", len(warnings), warnings)
	}

	if len(piece.Notes) != 1 {
		t.Fatalf("Convert() produced %d notes, want 1", len(piece.Notes))
	}
	n := piece.Notes[0]
	if n.Pitch != 60 || n.OnsetMS != 0 || n.ValueOnsetMS != 0 {
		t.Errorf("note = %v, want pitch 60 at 0ms", n)
	}
	// One quarter note at 600ms per beat.
	if n.OffsetMS != 600 {
		t.Errorf("note offset = %d, want 600", n.OffsetMS)
	}

	if len(piece.Keys) != 1 {
		t.Errorf("Convert() produced %d keys, want 1", len(piece.Keys))
	}
	if len(piece.Tatums) != 4 {
		t.Errorf("Convert() produced %d tatums, want 4", len(piece.Tatums))
	}
}
