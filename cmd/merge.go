package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/merge"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/report"
)

var (
	mergePrimary   string
	mergeSecondary string
	mergeOut       string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Overlay a secondary resolution pass onto the primary ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		primaryPath := orDefault(mergePrimary, cfg.Ledger.OutputPath)
		secondaryPath := orDefault(mergeSecondary, cfg.Ledger.SecondaryPath)
		outPath := orDefault(mergeOut, cfg.Ledger.MergedPath)

		primary, err := ledger.ReadFile(primaryPath)
		if err != nil {
			return eris.Wrap(err, "read primary ledger")
		}
		secondary, err := ledger.ReadFile(secondaryPath)
		if err != nil {
			return eris.Wrap(err, "read secondary ledger")
		}

		merged, acc, err := merge.Merge(primary, secondary, model.OriginDiscogsFallback)
		if err != nil {
			return err
		}
		if !acc.Reconciles() {
			return eris.New("merge: accounting does not reconcile")
		}

		cp, release, err := acquireCheckpointer(outPath)
		if err != nil {
			return err
		}
		defer release()
		if err := cp.Save(merged); err != nil {
			return eris.Wrap(err, "write merged ledger")
		}

		zap.L().Info("merged ledger written",
			zap.String("path", outPath),
			zap.Int("rows", merged.Len()),
		)
		fmt.Println(report.RenderAccounting(acc))
		return nil
	},
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func init() {
	mergeCmd.Flags().StringVar(&mergePrimary, "primary", "", "primary resolved ledger (default from config)")
	mergeCmd.Flags().StringVar(&mergeSecondary, "secondary", "", "secondary resolved ledger (default from config)")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "merged ledger to write (default from config)")
	rootCmd.AddCommand(mergeCmd)
}
