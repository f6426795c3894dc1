// Package cli parses midiplay's command-line arguments.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds settings parsed from command-line arguments.
type Config struct {
	SMFPath       string  // path to the Standard MIDI File to play
	SoundFontPath string  // path to the .sf2 SoundFont used for synthesis
	Loop          bool    // restart from the beginning at end-of-song
	TempoScale    float64 // multiplies every tempo meta event's effect (1.0 = unscaled)
	LogLevel      string  // debug, info, warn, or error
	Mute          bool    // mute audio output (status/events still process normally)
	ShowHelp      bool
}

// ParseArgs parses command-line arguments into a Config.
func ParseArgs(args []string) (*Config, error) {
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("midiplay", flag.ContinueOnError)

	config := &Config{}

	fs.StringVar(&config.SoundFontPath, "soundfont", "", "path to a .sf2 SoundFont file")
	fs.StringVar(&config.SoundFontPath, "s", "", "path to a .sf2 SoundFont file (shorthand)")
	fs.BoolVar(&config.Loop, "loop", false, "restart playback from the beginning at end-of-song")
	var tempoScale string
	fs.StringVar(&tempoScale, "tempo-scale", "1.0", "scale playback speed by this factor (values > 1.0 play faster)")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level: debug, info, warn, or error")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (shorthand)")
	fs.BoolVar(&config.Mute, "mute", false, "mute audio output")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show this help (shorthand)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	if config.LogLevel == "info" {
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			config.LogLevel = strings.ToLower(env)
		}
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	scale, err := strconv.ParseFloat(tempoScale, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tempo-scale: %s", tempoScale)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("tempo-scale must be positive, got %v", scale)
	}
	config.TempoScale = scale

	if fs.NArg() > 0 {
		config.SMFPath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs moves flags before positional arguments so flag.FlagSet
// (which stops parsing flags at the first positional argument) sees
// them regardless of where the user placed them on the line.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	boolFlags := map[string]bool{"-h": true, "--help": true, "-help": true, "--loop": true, "-loop": true, "--mute": true, "-mute": true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if !boolFlags[arg] {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp writes usage information to stdout.
func PrintHelp() {
	fmt.Fprint(os.Stdout, `midiplay - Standard MIDI File playback engine

Usage:
  midiplay [options] <file.mid>

Options:
  -s, --soundfont <path>    path to a .sf2 SoundFont file (required)
      --loop                restart from the beginning at end-of-song
      --tempo-scale <n>     scale playback speed by n, n > 1.0 plays faster (default 1.0)
  -l, --log-level <level>   debug, info, warn, or error (default info)
      --mute                mute audio output
  -h, --help                show this help

Environment Variables:
  LOG_LEVEL=<level>         log level, overridden by --log-level

Examples:
  midiplay --soundfont piano.sf2 song.mid
  midiplay -s piano.sf2 --loop --tempo-scale 1.5 song.mid
`)
}
