package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/merge"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/report"
)

var (
	verifyPrimary   string
	verifySecondary string
	verifyMerged    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Cross-check a merged ledger against its inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		primary, err := ledger.ReadFile(orDefault(verifyPrimary, cfg.Ledger.OutputPath))
		if err != nil {
			return eris.Wrap(err, "read primary ledger")
		}
		secondary, err := ledger.ReadFile(orDefault(verifySecondary, cfg.Ledger.SecondaryPath))
		if err != nil {
			return eris.Wrap(err, "read secondary ledger")
		}
		merged, err := ledger.ReadFile(orDefault(verifyMerged, cfg.Ledger.MergedPath))
		if err != nil {
			return eris.Wrap(err, "read merged ledger")
		}

		// Recompute the merge to rebuild the accounting the written
		// ledger should satisfy.
		_, acc, err := merge.Merge(primary, secondary, model.OriginDiscogsFallback)
		if err != nil {
			return err
		}

		result := report.Verify(primary, merged, acc)
		fmt.Println(report.RenderVerify(result))
		fmt.Println(report.RenderResolution(report.Breakdown(merged)))

		if !result.OK() {
			return eris.New("verification failed")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPrimary, "primary", "", "primary resolved ledger (default from config)")
	verifyCmd.Flags().StringVar(&verifySecondary, "secondary", "", "secondary resolved ledger (default from config)")
	verifyCmd.Flags().StringVar(&verifyMerged, "merged", "", "merged ledger to verify (default from config)")
	rootCmd.AddCommand(verifyCmd)
}
