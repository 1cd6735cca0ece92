package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/config"
	"github.com/tonearm/libsync/internal/download"
	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/resilience"
	"github.com/tonearm/libsync/internal/resolve"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "libsync",
	Short: "Multi-source music library reconciliation",
	Long:  "Resolves a streaming-library export to playable URLs across sources, merges their results with provenance, and retrieves the files as a tagged local library.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadLedger loads the working ledger: the output file when a prior run
// left one behind, the pristine input otherwise. This is the whole
// resumption mechanism.
func loadLedger(outputPath, inputPath string) (*ledger.Ledger, error) {
	l, source, err := ledger.Load(outputPath, inputPath)
	if err != nil {
		return nil, err
	}
	zap.L().Info("ledger loaded",
		zap.String("path", source),
		zap.Int("rows", l.Len()),
	)
	return l, nil
}

// acquireCheckpointer locks the output path against concurrent runs and
// returns the release function.
func acquireCheckpointer(path string) (*ledger.Checkpointer, func(), error) {
	cp := ledger.NewCheckpointer(path, cfg.Ledger.CheckpointEach)
	if err := cp.Acquire(); err != nil {
		return nil, nil, err
	}
	return cp, cp.Release, nil
}

func newPacer() *resilience.Pacer {
	p := cfg.Pacing
	return resilience.NewPacer(resilience.PacerConfig{
		UnitDelay:      secs(p.UnitDelaySecs),
		UnitJitter:     secs(p.UnitJitterSecs),
		LongBreakEvery: p.LongBreakEvery,
		LongBreakMin:   secs(p.LongBreakMinSecs),
		LongBreakMax:   secs(p.LongBreakMaxSecs),
		CooldownAfter:  p.CooldownAfter,
		Cooldown:       time.Duration(p.CooldownMins) * time.Minute,
	})
}

func resolveOptions() resolve.Options {
	r := cfg.Resolve
	return resolve.Options{
		MaxRuntime:        time.Duration(r.MaxRuntimeMins) * time.Minute,
		MaxUnits:          r.MaxUnits,
		RetrySoftTerminal: r.RetrySoftTerminal,
		MatchThreshold:    r.MatchThreshold,
	}
}

func downloadTolerance() download.Tolerance {
	return download.Tolerance{
		Percent:      cfg.Download.TolerancePercent,
		FloorSeconds: cfg.Download.ToleranceFloorS,
	}
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func logResolveSummary(sum resolve.Summary) {
	zap.L().Info("resolution summary",
		zap.Int("todo", sum.Todo),
		zap.Int("processed", sum.Processed),
		zap.Int("updated", sum.Updated),
		zap.Duration("elapsed", sum.Elapsed),
	)
}
