package ledger

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Checkpointer persists a ledger to one target path, atomically, after
// every unit of work. A crash between two saves loses at most one unit;
// it can never leave a truncated or half-written file because the write
// lands in a temp file that is renamed into place.
type Checkpointer struct {
	path  string
	every int
	units int
	lock  *flock.Flock
}

// NewCheckpointer creates a Checkpointer for the given target path. every
// controls how often a named checkpoint line is logged; the ledger itself
// is saved on every Unit call regardless.
func NewCheckpointer(path string, every int) *Checkpointer {
	if every <= 0 {
		every = 25
	}
	return &Checkpointer{
		path:  path,
		every: every,
		lock:  flock.New(path + ".lock"),
	}
}

// Acquire takes the advisory run lock for the target ledger. Two drivers
// writing the same ledger concurrently would break the checkpoint-per-unit
// ordering guarantee, so a second run fails fast instead.
func (c *Checkpointer) Acquire() error {
	ok, err := c.lock.TryLock()
	if err != nil {
		return eris.Wrapf(err, "checkpoint: lock %s", c.lock.Path())
	}
	if !ok {
		return eris.Errorf("checkpoint: %s is locked by another run", c.path)
	}
	return nil
}

// Release drops the advisory run lock.
func (c *Checkpointer) Release() {
	if err := c.lock.Unlock(); err != nil {
		zap.L().Warn("checkpoint: unlock failed", zap.Error(err))
	}
}

// Save writes the ledger atomically: temp file in the target directory,
// fsync, rename over the target. On any failure the temp artifact is
// removed and the previously persisted ledger is untouched. Failure is
// reported, never fatal: the caller logs and keeps going.
func (c *Checkpointer) Save(l *Ledger) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "checkpoint: create temp")
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := Write(tmp, l); err != nil {
		cleanup()
		return eris.Wrap(err, "checkpoint: write temp")
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return eris.Wrap(err, "checkpoint: sync temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return eris.Wrap(err, "checkpoint: close temp")
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return eris.Wrap(err, "checkpoint: rename into place")
	}
	return nil
}

// Unit commits one unit of work: save, count, and log a named checkpoint
// every N units. Save failures are logged, not raised, so an unwritable
// disk degrades a run instead of killing it mid-pass.
func (c *Checkpointer) Unit(l *Ledger) {
	if err := c.Save(l); err != nil {
		zap.L().Warn("checkpoint: save failed, previous ledger kept", zap.Error(err))
		return
	}
	c.units++
	if c.units%c.every == 0 {
		zap.L().Info("checkpoint",
			zap.Int("units", c.units),
			zap.String("path", c.path),
		)
	}
}

// Units returns how many units have been committed this run.
func (c *Checkpointer) Units() int { return c.units }
