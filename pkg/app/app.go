// Package app wires together pkg/cli, pkg/smf, pkg/scheduler, and
// pkg/audio into the midiplay command: parse flags, decode a Standard
// MIDI File, drive it through a Playhead group, and render it through a
// SoundFont synthesizer.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	ebitenaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/ongakudo/midiengine/internal/logging"
	"github.com/ongakudo/midiengine/pkg/audio"
	"github.com/ongakudo/midiengine/pkg/cli"
	"github.com/ongakudo/midiengine/pkg/eventbus"
	"github.com/ongakudo/midiengine/pkg/playhead"
	"github.com/ongakudo/midiengine/pkg/scheduler"
	"github.com/ongakudo/midiengine/pkg/smf"
)

// Exit codes, per the playback engine's operator contract: 0 success,
// 1 a device (SoundFont/audio) failed to open, 2 the SMF file failed to
// parse, 3 the device rejected a message during playback.
const (
	ExitOK = iota
	ExitDeviceOpenFailed
	ExitParseFailed
	ExitDeviceSendFailed
)

// Application owns everything a single midiplay run needs: the parsed
// config, the logger, the playhead group, and the audio device.
type Application struct {
	config *cli.Config
	log    *slog.Logger

	group  *scheduler.Group
	synth  *audio.Synth
	player *ebitenaudio.Player

	tracks []smf.Track
}

// New creates an Application.
func New() *Application {
	return &Application{}
}

// Run parses args and plays the resulting SMF file to completion (or,
// with --loop, until interrupted). The returned int is the process exit
// code; err, when non-nil, is logged by the caller.
func (app *Application) Run(args []string) (int, error) {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return ExitParseFailed, fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if app.config.ShowHelp {
		cli.PrintHelp()
		return ExitOK, nil
	}

	if err := logging.Init(app.config.LogLevel); err != nil {
		return ExitParseFailed, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logging.Component("app")

	if app.config.SMFPath == "" {
		return ExitParseFailed, fmt.Errorf("no SMF file given (usage: midiplay [options] <file.mid>)")
	}

	app.log.Info("midiplay starting", "file", app.config.SMFPath, "soundfont", app.config.SoundFontPath, "loop", app.config.Loop)

	hdr, tracks, err := app.loadSMF(app.config.SMFPath)
	if err != nil {
		return ExitParseFailed, fmt.Errorf("failed to load SMF file: %w", err)
	}
	if hdr.Format == smf.FormatIndependentTracks {
		app.log.Warn("SMF format 2 (independent track sequences): playing every track as an independent playhead with no cross-track ordering implied")
	}

	if app.config.TempoScale != 1.0 {
		for i, track := range tracks {
			tracks[i] = smf.ScaleTempo(track, app.config.TempoScale)
		}
	}
	app.tracks = tracks
	app.log.Info("SMF decoded", "format", hdr.Format, "tracks", len(tracks), "division", uint16(hdr.Division), "tempo_scale", app.config.TempoScale)

	if err := app.openDevice(); err != nil {
		return ExitDeviceOpenFailed, fmt.Errorf("failed to open audio device: %w", err)
	}

	app.group = scheduler.NewGroup()
	if !app.config.Mute {
		app.group.SetDevice(app.synth)
	}
	app.group.SetDivision(hdr.Division)

	bus := app.group.Bus()
	sendFailed := make(chan error, 1)

	playheads := make([]*playhead.Playhead, 0, len(tracks))
	for i, track := range tracks {
		ph := playhead.New(fmt.Sprintf("track-%d", i))
		ph.BindTrack(track)
		ph.SetDivision(hdr.Division)
		eventbus.Subscribe(ph.Bus(), func(e playhead.SendFailed) {
			select {
			case sendFailed <- e.Err:
			default:
			}
		})
		app.group.AddPlayhead(ph, 0)
		playheads = append(playheads, ph)
	}

	app.group.Start()
	app.group.Play()
	app.log.Info("playback started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	eventbus.Subscribe(bus, func(scheduler.EndOfSong) {
		if !app.config.Loop {
			close(done)
			return
		}
		app.log.Debug("song finished, looping")
		for _, ph := range playheads {
			ph.Seek(0)
			app.group.AddPlayhead(ph, 0)
		}
		app.group.Play()
	})

	select {
	case <-ctx.Done():
		app.log.Info("interrupted, stopping")
	case <-done:
		app.log.Info("playback finished")
	case err := <-sendFailed:
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if closeErr := app.group.Close(closeCtx); closeErr != nil {
			app.log.Warn("scheduler did not stop promptly", "error", closeErr)
		}
		return ExitDeviceSendFailed, fmt.Errorf("device rejected a message: %w", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.group.Close(closeCtx); err != nil {
		app.log.Warn("scheduler did not stop promptly", "error", err)
	}

	return ExitOK, nil
}

// loadSMF reads path and decodes its header and every track chunk.
func (app *Application) loadSMF(path string) (smf.Header, []smf.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return smf.Header{}, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	hdr, chunks, err := smf.ParseHeader(data)
	if err != nil {
		return smf.Header{}, nil, err
	}

	tracks := make([]smf.Track, 0, len(chunks))
	for i, chunk := range chunks {
		payload, err := smf.SplitTrackChunk(chunk)
		if err != nil {
			return smf.Header{}, nil, fmt.Errorf("track %d: %w", i, err)
		}
		track, err := smf.DecodeTrack(payload)
		if err != nil {
			return smf.Header{}, nil, fmt.Errorf("track %d: %w", i, err)
		}
		tracks = append(tracks, track)
	}

	return hdr, tracks, nil
}

// openDevice loads the SoundFont, builds the synthesizer, and starts an
// Ebitengine audio.Player continuously rendering it. When config.Mute is
// set, the synthesizer is still built (so status events process
// normally) but never wired as the group's device, and the player's
// volume is dropped to 0.
func (app *Application) openDevice() error {
	if app.config.SoundFontPath == "" {
		return fmt.Errorf("%w: no --soundfont given", audio.ErrSoundFontNotFound)
	}

	synth, err := audio.NewSynth(app.config.SoundFontPath)
	if err != nil {
		return err
	}
	app.synth = synth

	ctx := ebitenaudio.NewContext(audio.SampleRate)
	player, err := audio.NewPlayer(ctx, synth)
	if err != nil {
		return fmt.Errorf("failed to create audio player: %w", err)
	}
	app.player = player

	if app.config.Mute {
		app.player.SetVolume(0)
	}
	app.player.Play()

	return nil
}
