package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"squarecrop/crop"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	// a missing .env is fine, flags and the environment still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("squarecrop"),
		kong.Description("Cut square photos out of a directory of images."),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(&args.Globals); err != nil {
		return err
	}

	return nil
}

type Globals struct {
	Verbose bool `help:"Enable verbose logging" default:"false" env:"SQUARECROP_VERBOSE"`
}

// setup configures logging and returns a root context cancelled on interrupt.
func (g *Globals) setup() (context.Context, context.CancelFunc) {
	level := zerolog.InfoLevel
	if g.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	return log.Logger.WithContext(ctx), cancel
}

type CalibrationFlags struct {
	Calibration string  `help:"Calibration preset (none, legacy, custom)" default:"none" enum:"none,legacy,custom" env:"SQUARECROP_CALIBRATION"`
	OffsetX     float64 `name:"calibration-offset-x" help:"Custom horizontal origin correction, in display pixels" env:"SQUARECROP_CALIBRATION_OFFSET_X"`
	OffsetY     float64 `name:"calibration-offset-y" help:"Custom vertical origin correction, in display pixels" env:"SQUARECROP_CALIBRATION_OFFSET_Y"`
	Enlarge     float64 `name:"calibration-enlarge" help:"Custom crop box enlargement factor" default:"1" env:"SQUARECROP_CALIBRATION_ENLARGE"`
}

func (f CalibrationFlags) resolve() (crop.Calibration, error) {
	if f.Calibration == "custom" {
		return crop.Calibration{OffsetX: f.OffsetX, OffsetY: f.OffsetY, Enlarge: f.Enlarge}, nil
	}
	return crop.CalibrationPreset(f.Calibration)
}

type OutputFlags struct {
	OutputDir string `help:"Directory to write cropped images to (default: <root>/output)" env:"SQUARECROP_OUTPUT_DIR"`
	MaxWidth  int    `help:"Downscale crops wider than this, 0 keeps the full size" default:"1200" env:"SQUARECROP_MAX_WIDTH"`
	Format    string `help:"Output format" default:"jpeg" enum:"jpeg,png,webp" env:"SQUARECROP_FORMAT"`
	Quality   int    `help:"Output quality for lossy formats" default:"90" env:"SQUARECROP_QUALITY"`
}

func (f OutputFlags) cropper() *ImagingCropper {
	return NewImagingCropper(f.MaxWidth, outputFormat(f.Format), f.Quality)
}

func (f OutputFlags) outputDir(root string) string {
	if f.OutputDir != "" {
		return f.OutputDir
	}
	return filepath.Join(root, "output")
}

type serveCmd struct {
	RootDir    string        `arg:"" help:"Root directory to serve files from" env:"SQUARECROP_ROOT"`
	Open       bool          `help:"Open the browser automatically when the server starts" default:"true" negatable:""`
	JSON       bool          `help:"Output saved operations in JSON format without executing them"`
	Once       bool          `help:"Run the server once and exit after save" default:"true" negatable:""`
	SessionTTL time.Duration `help:"How long an idle crop session is kept" default:"30m" env:"SQUARECROP_SESSION_TTL"`

	CalibrationFlags `embed:""`
	OutputFlags      `embed:""`
}

func (cmd *serveCmd) Run(g *Globals) error {
	ctx, cancel := g.setup()
	defer cancel()

	cal, err := cmd.CalibrationFlags.resolve()
	if err != nil {
		return err
	}

	executor := &OperationExecutor{
		BaseDir:   cmd.RootDir,
		OutputDir: cmd.outputDir(cmd.RootDir),
		Cropper:   cmd.cropper(),
	}

	app := NewWebApp(Config{
		RootDir:     cmd.RootDir,
		Calibration: cal,
		SessionTTL:  cmd.SessionTTL,
		Executor:    executor,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnSave: saveHandler(ctx, executor, cmd.JSON, os.Stdout, func() {
			if cmd.Once {
				cancel()
			}
		}),
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type probeCmd struct {
	Files     []string `arg:"" help:"Images to measure" type:"existingfile"`
	Tolerance float64  `help:"Relative difference between probes reported as a disagreement" default:"0.01"`
}

func (cmd *probeCmd) Run(g *Globals) error {
	ctx, cancel := g.setup()
	defer cancel()

	reports := make([]probeReport, 0, len(cmd.Files))
	for _, f := range cmd.Files {
		reports = append(reports, probeFile(ctx, f, cmd.Tolerance))
	}
	printJSONL(reports)
	return nil
}

type cliArgs struct {
	Globals

	Serve  serveCmd  `cmd:"" default:"withargs" help:"Serve the crop UI for a directory"`
	Probe  probeCmd  `cmd:"" help:"Report image sizes as seen by each probe"`
	Replay replayCmd `cmd:"" help:"Replay recorded crop events and print frames and results"`
}

// saveHandler executes the operations a client saved, or writes them as
// JSONL to out without executing when asJSON is set. done runs afterwards
// in both cases.
func saveHandler(ctx context.Context, executor *OperationExecutor, asJSON bool, out io.Writer, done func()) func(Operations) {
	return func(ops Operations) {
		if asJSON {
			writeJSONL(out, ops)
		} else {
			if err := executor.Exec(ctx, ops); err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("Failed to execute operations")
			}
		}

		if done != nil {
			done()
		}
	}
}

func printJSONL[T any](data []T) {
	writeJSONL(os.Stdout, data)
}

func writeJSONL[T any](w io.Writer, data []T) {
	enc := json.NewEncoder(w)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
