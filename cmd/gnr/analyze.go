package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/busyhour/internal/config"
	"github.com/rewired-gh/busyhour/internal/logger"
	"github.com/rewired-gh/busyhour/internal/parser"
	"github.com/rewired-gh/busyhour/internal/render"
	"github.com/rewired-gh/busyhour/internal/session"
	"github.com/rewired-gh/busyhour/internal/synth"
)

var (
	analyzeAll bool
	noColor    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect the busy window of the selected measurements",
	Long: `Detect the busy window of the selected measurements.

Without --turnaround, --intensity or --intensity-dir the built-in data is
analyzed. A single intensity file is extended with synthesized days (see
--days). When the selection cannot be loaded a warning is printed and the
built-in analysis is shown instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runAnalyze(cmd, cfg)
	},
}

func init() {
	flags := analyzeCmd.Flags()
	flags.StringP("turnaround", "t", "", "Call duration file, one duration per line")
	flags.StringP("intensity", "i", "", "Intensity file of a single day")
	flags.StringP("intensity-dir", "d", "", "Directory of per-day intensity files")
	flags.String("extension", parser.DefaultExtension, "Extension of intensity files")
	flags.StringP("algorithm", "a", "TCBH", "Busy-window algorithm (TCBH, ADPQH, FDMH, ADPH, FDMP)")
	flags.Int("days", 9, "Days synthesized from a single intensity file")
	flags.Uint64("seed", 0, "Seed of the day synthesizer, 0 for random")
	flags.String("scratch-dir", "", "Directory for synthesized day files (default: system temp)")
	flags.Int("cache-size", parser.DefaultCacheSize, "Parsed files kept in memory")
	flags.StringP("output", "o", render.FormatText, "Output format (text, json, yaml)")
	flags.Int("width", render.DefaultWidth, "Bar width of the busiest hour in text output")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file")
	flags.BoolVar(&analyzeAll, "all", false, "Run every algorithm on the same day set")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func runAnalyze(cmd *cobra.Command, cfg *config.Config) error {
	sess, err := session.New(sessionOptions(cfg))
	if err != nil {
		// New has already removed the scratch directory
		logger.Fatal("Failed to start session: %v", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("Failed to remove scratch directory: %v", err)
		}
	}()

	active := sess.Current()
	if cfg.HasSelection() {
		selection := cfg.Selection()
		// Inputs left unselected come from the built-in data
		if selection.TurnaroundFile == "" {
			selection.TurnaroundFile = sess.Defaults().TurnaroundFile
		}
		if selection.Intensity.Path == "" {
			selection.Intensity = sess.Defaults().Intensity
		}

		active, err = sess.Apply(selection)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\nwarning: showing %s analysis of %s instead\n",
				err, active.Config.Algorithm, active.Config.Intensity.Path)
		}
	}

	out := cmd.OutOrStdout()
	if analyzeAll {
		descriptors, err := sess.Describe()
		if err != nil {
			return err
		}
		if err := render.EncodeAll(out, descriptors, cfg.Output.Format); err != nil {
			return err
		}
	} else if cfg.Output.Format == render.FormatText {
		if err := render.Chart(out, active.Plot, render.ChartOptions{Width: cfg.Output.Width, NoColor: noColor}); err != nil {
			return err
		}
	} else if err := render.Encode(out, active.Plot, cfg.Output.Format); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := sess.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
		logger.Info("Metrics written to %s", cfg.Metrics.Textfile)
	}
	return nil
}

func sessionOptions(cfg *config.Config) session.Options {
	var source synth.Source
	if cfg.Synthesis.Seed != 0 {
		source = synth.NewSeeded(cfg.Synthesis.Seed)
	}

	return session.Options{
		Intensity: parser.Options{
			Decimal:   cfg.Input.IntensityDecimal,
			Extension: cfg.Input.Extension,
		},
		Turnaround: parser.Options{
			Decimal:   cfg.Input.TurnaroundDecimal,
			Extension: cfg.Input.Extension,
		},
		Algorithm:  cfg.Algorithm(),
		Days:       cfg.Synthesis.Days,
		Source:     source,
		ScratchDir: cfg.Synthesis.ScratchDir,
		CacheSize:  cfg.Cache.MaxEntries,
	}
}
