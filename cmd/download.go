package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/download"
	"github.com/tonearm/libsync/internal/report"
	"github.com/tonearm/libsync/internal/source/ytdlp"
	"github.com/tonearm/libsync/internal/tag"
)

var (
	downloadLedgerPath string
	downloadRoot       string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Retrieve resolved rows as tagged audio files",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := orDefault(downloadLedgerPath, cfg.Ledger.MergedPath)
		root := orDefault(downloadRoot, cfg.Download.Root)

		l, err := loadLedger(path, path)
		if err != nil {
			return err
		}
		cp, release, err := acquireCheckpointer(path)
		if err != nil {
			return err
		}
		defer release()

		session, err := download.NewSession(cfg.Download.CookiesPath)
		if err != nil {
			return err
		}

		retriever := ytdlp.New(ytdlp.Config{
			Binary:      cfg.Download.Binary,
			CookiesPath: cfg.Download.CookiesPath,
			AudioFormat: cfg.Download.AudioFormat,
		})
		tagger := tag.New(tag.Config{EmbedArt: cfg.Tag.EmbedArt})

		d := download.NewDriver(retriever, tagger, session, cp, newPacer(), download.Options{
			Root:        root,
			MaxRuntime:  time.Duration(cfg.Download.MaxRuntimeMins) * time.Minute,
			MaxUnits:    cfg.Download.MaxUnits,
			Tolerance:   downloadTolerance(),
			SearchLimit: cfg.Download.SearchLimit,
		})

		sum, err := d.Run(cmd.Context(), l)
		if err != nil {
			return eris.Wrap(err, "download run")
		}
		if err := cp.Save(l); err != nil {
			return eris.Wrap(err, "save ledger")
		}

		zap.L().Info("download summary",
			zap.Int("todo", sum.Todo),
			zap.Int("processed", sum.Processed),
			zap.Int("downloaded", sum.Downloaded),
			zap.Int("failed", sum.Failed),
			zap.Int("tagged", sum.Tagged),
			zap.Duration("elapsed", sum.Elapsed),
		)
		fmt.Println(report.RenderDownloads(report.Downloads(l)))
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadLedgerPath, "ledger", "", "resolved ledger to work through (default from config)")
	downloadCmd.Flags().StringVar(&downloadRoot, "root", "", "library directory to place files under (default from config)")
	rootCmd.AddCommand(downloadCmd)
}
