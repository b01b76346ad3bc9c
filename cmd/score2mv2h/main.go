// Package main is the entry point for the score2mv2h CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/score2mv2h/pkg/api"
	"github.com/james-see/score2mv2h/pkg/converter"
	"github.com/james-see/score2mv2h/pkg/tui"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile string
	configFile string
	serverPort int

	msPerBeat  int
	anacrusis  int
	usePart    bool
	useStaff   bool
	useVoice   bool
	useTrack   bool
	useChannel bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "score2mv2h",
	Short: "Convert symbolic music into MV2H text",
	Long: `score2mv2h converts symbolic music into the text format read by the MV2H
evaluation tool (Melody, Value, Voice, Harmony).

Input is either the tab-delimited record stream produced by a MusicXML
parser, or a standard MIDI file. Output lists every resolved note, the
tatum grid, the key signatures and the metrical hierarchy.

Examples:
  score2mv2h convert score.txt
  score2mv2h xml2mv2h score.txt -o score.mv2h
  cat score.txt | score2mv2h xml2mv2h
  score2mv2h midi2mv2h piece.mid -o piece.mv2h
  score2mv2h midi2mv2h piece.mid --track --anacrusis 2
  score2mv2h tui
  score2mv2h serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfigFile(cmd)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect the input format and convert",
	Long:  `Detects the input format from the file extension (falling back to content sniffing) and writes the MV2H text next to the input.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var xml2mv2hCmd = &cobra.Command{
	Use:   "xml2mv2h [input]",
	Short: "Convert a parsed-MusicXML record stream to MV2H",
	Long:  `Converts the tab-delimited record stream of a MusicXML parser. Reads standard input when no file is given; prints to standard output unless -o is set.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runXMLToMV2H,
}

var midi2mv2hCmd = &cobra.Command{
	Use:   "midi2mv2h <input.mid>",
	Short: "Convert a standard MIDI file to MV2H",
	Long:  `Converts a standard MIDI file. Prints to standard output unless -o is set.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMIDIToMV2H,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML file with default conversion options")
	rootCmd.PersistentFlags().IntVar(&msPerBeat, "ms-per-beat", 0, "Beat length in milliseconds (0 = per-format default)")
	rootCmd.PersistentFlags().IntVarP(&anacrusis, "anacrusis", "a", 0, "Pickup length in sub beats (MIDI)")
	rootCmd.PersistentFlags().BoolVar(&usePart, "part", false, "Separate voices by part (MusicXML; default all of part/staff/voice)")
	rootCmd.PersistentFlags().BoolVar(&useStaff, "staff", false, "Separate voices by staff (MusicXML)")
	rootCmd.PersistentFlags().BoolVar(&useVoice, "voice", false, "Separate voices by voice (MusicXML)")
	rootCmd.PersistentFlags().BoolVar(&useTrack, "track", false, "Separate voices by track (MIDI; default both of track/channel)")
	rootCmd.PersistentFlags().BoolVar(&useChannel, "channel", false, "Separate voices by channel (MIDI)")

	// Conversion commands
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: input with .mv2h extension)")
	xml2mv2hCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: standard output)")
	midi2mv2hCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: standard output)")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(xml2mv2hCmd)
	rootCmd.AddCommand(midi2mv2hCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// fileConfig mirrors the conversion flags for the --config YAML file.
type fileConfig struct {
	MSPerBeat int  `yaml:"ms_per_beat"`
	Anacrusis int  `yaml:"anacrusis"`
	Part      bool `yaml:"part"`
	Staff     bool `yaml:"staff"`
	Voice     bool `yaml:"voice"`
	Track     bool `yaml:"track"`
	Channel   bool `yaml:"channel"`
}

// loadConfigFile seeds the conversion options from the --config file.
// Options set explicitly on the command line win over the file.
func loadConfigFile(cmd *cobra.Command) error {
	if configFile == "" {
		return nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	flags := cmd.Flags()
	if !flags.Changed("ms-per-beat") {
		msPerBeat = fc.MSPerBeat
	}
	if !flags.Changed("anacrusis") {
		anacrusis = fc.Anacrusis
	}
	if !flags.Changed("part") {
		usePart = fc.Part
	}
	if !flags.Changed("staff") {
		useStaff = fc.Staff
	}
	if !flags.Changed("voice") {
		useVoice = fc.Voice
	}
	if !flags.Changed("track") {
		useTrack = fc.Track
	}
	if !flags.Changed("channel") {
		useChannel = fc.Channel
	}
	return nil
}

func buildConfig() converter.Config {
	return converter.Config{
		MSPerBeat:         msPerBeat,
		AnacrusisSubBeats: anacrusis,
		UsePart:           usePart,
		UseStaff:          useStaff,
		UseVoice:          useVoice,
		UseTrack:          useTrack,
		UseChannel:        useChannel,
	}
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

// printWarnings reports recoverable conversion problems on stderr.
func printWarnings(warnings []converter.Warning) {
	for _, w := range warnings {
		log.Warnf("%s", w)
	}
}

// writeResult prints the piece to stdout, or to outputFile when -o is set.
func writeResult(text string) error {
	if outputFile == "" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".mv2h")

	warnings, err := converter.ConvertFile(input, output, buildConfig())
	printWarnings(warnings)
	if err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func runXMLToMV2H(cmd *cobra.Command, args []string) error {
	var src converter.Source
	if len(args) == 0 {
		src = converter.NewMusicXMLSource(os.Stdin)
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		src = converter.NewMusicXMLSource(f)
	}

	piece, warnings, err := converter.Convert(src, buildConfig())
	printWarnings(warnings)
	if err != nil {
		return err
	}

	return writeResult(piece.String())
}

func runMIDIToMV2H(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	piece, warnings, err := converter.Convert(converter.NewMIDISource(f), buildConfig())
	printWarnings(warnings)
	if err != nil {
		return err
	}

	return writeResult(piece.String())
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
