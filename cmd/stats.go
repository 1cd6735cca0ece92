package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/report"
)

var statsLedgerPath string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show resolution and download statistics for a ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := orDefault(statsLedgerPath, cfg.Ledger.MergedPath)
		l, err := ledger.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "read ledger")
		}

		fmt.Println(report.RenderResolution(report.Breakdown(l)))
		fmt.Println(report.RenderDownloads(report.Downloads(l)))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsLedgerPath, "ledger", "", "ledger to summarize (default from config)")
	rootCmd.AddCommand(statsCmd)
}
