package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/busyhour/internal/logger"
	"github.com/rewired-gh/busyhour/internal/parser"
	"github.com/rewired-gh/busyhour/internal/storage"
	"github.com/rewired-gh/busyhour/internal/synth"
)

var synthesizeOut string

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Write synthesized days of a single intensity file",
	Long: `Write the observed day and --days rotated copies of it to --out, one
file per day, in the intensity file format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Input.IntensityFile == "" {
			return errors.New("--intensity is required")
		}

		opts := parser.Options{Decimal: cfg.Input.IntensityDecimal, Extension: cfg.Input.Extension}
		base, err := parser.ParseIntensity(cfg.Input.IntensityFile, opts)
		if err != nil {
			return err
		}

		var source synth.Source
		if cfg.Synthesis.Seed != 0 {
			source = synth.NewSeeded(cfg.Synthesis.Seed)
		}
		days := synth.New(source).Synthesize(base, cfg.Synthesis.Days)

		paths, err := storage.ExportDays(synthesizeOut, days, storage.Options{
			FilePermissions: 0o644,
			DirPermissions:  0o755,
			Decimal:         cfg.Input.IntensityDecimal,
			Extension:       cfg.Input.Extension,
		})
		if err != nil {
			return err
		}

		logger.Info("Synthesized %d days from %s", len(days)-1, cfg.Input.IntensityFile)
		for _, path := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	flags := synthesizeCmd.Flags()
	flags.StringP("intensity", "i", "", "Intensity file of the observed day")
	flags.Int("days", 9, "Number of days to synthesize")
	flags.Uint64("seed", 0, "Seed of the day synthesizer, 0 for random")
	flags.String("extension", parser.DefaultExtension, "Extension of the written files")
	flags.StringVarP(&synthesizeOut, "out", "o", "", "Output directory")
	_ = synthesizeCmd.MarkFlagRequired("out")
}
