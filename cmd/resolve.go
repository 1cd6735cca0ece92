package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/resolve"
	"github.com/tonearm/libsync/internal/source/discogs"
	"github.com/tonearm/libsync/internal/source/songstats"
)

var (
	resolveInput  string
	resolveOutput string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve ledger rows to playable URLs from a source",
}

var resolveSongstatsCmd = &cobra.Command{
	Use:   "songstats",
	Short: "Resolve rows one at a time by ISRC lookup",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cp, release, err := openRun(cfg.Ledger.OutputPath)
		if err != nil {
			return err
		}
		defer release()

		src := songstats.New(songstats.Config{
			BaseURL:           cfg.Songstats.BaseURL,
			RendererURL:       cfg.Songstats.RendererURL,
			UserAgent:         cfg.Songstats.UserAgent,
			RequestsPerSecond: cfg.Songstats.RequestsPerSecond,
		})

		d := resolve.NewRowDriver(src, model.OriginSongstats, cp, newPacer(), resolveOptions())
		sum, err := d.Run(cmd.Context(), l)
		if err != nil {
			return eris.Wrap(err, "songstats resolution")
		}
		logResolveSummary(sum)
		return cp.Save(l)
	},
}

var resolveDiscogsCmd = &cobra.Command{
	Use:   "discogs",
	Short: "Resolve rows album by album through the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cp, release, err := openRun(cfg.Ledger.SecondaryPath)
		if err != nil {
			return err
		}
		defer release()

		src := discogs.New(discogs.Config{
			BaseURL:           cfg.Discogs.BaseURL,
			Key:               cfg.Discogs.Key,
			Secret:            cfg.Discogs.Secret,
			UserAgent:         cfg.Discogs.UserAgent,
			RequestsPerSecond: cfg.Discogs.RequestsPerSecond,
		})

		d := resolve.NewGroupDriver(src, model.OriginDiscogs, cp, newPacer(), resolveOptions())
		sum, err := d.Run(cmd.Context(), l)
		if err != nil {
			return eris.Wrap(err, "discogs resolution")
		}
		logResolveSummary(sum)
		return cp.Save(l)
	},
}

// resolveRunPaths applies the flag overrides on top of a per-source
// default output file. Each source keeps its own working ledger so a
// later merge sees two independent passes, not one file overwritten by
// the other.
func resolveRunPaths(defaultOutput string) (input, output string) {
	return orDefault(resolveInput, cfg.Ledger.InputPath), orDefault(resolveOutput, defaultOutput)
}

// openRun loads the working ledger and locks its output file.
func openRun(defaultOutput string) (*ledger.Ledger, *ledger.Checkpointer, func(), error) {
	input, output := resolveRunPaths(defaultOutput)

	l, err := loadLedger(output, input)
	if err != nil {
		return nil, nil, nil, err
	}
	cp, release, err := acquireCheckpointer(output)
	if err != nil {
		return nil, nil, nil, err
	}
	return l, cp, release, nil
}

func init() {
	resolveCmd.PersistentFlags().StringVar(&resolveInput, "input", "", "export CSV to start from (default from config)")
	resolveCmd.PersistentFlags().StringVar(&resolveOutput, "output", "", "working ledger to resume and write (default from config)")
	resolveCmd.AddCommand(resolveSongstatsCmd)
	resolveCmd.AddCommand(resolveDiscogsCmd)
	rootCmd.AddCommand(resolveCmd)
}
