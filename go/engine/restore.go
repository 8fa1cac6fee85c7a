package engine

import (
	"github.com/docreplica/synclog/go/checkpoint"
	"github.com/docreplica/synclog/go/txlog"
)

// RestoreCheckpoint rebases the controller onto rec: the log is reset
// empty, rec.State becomes the calculator's base, and the active epoch
// advances to rec.Epoch + 1, the epoch after the one rec finalizes. Mirrors the teacher's consumer.Store bootstrapping
// a fresh client off a peer's published checkpoint before it replays
// whatever transactions came after it.
func (c *Controller) RestoreCheckpoint(rec checkpoint.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireNotDisposed("RestoreCheckpoint"); err != nil {
		return err
	}

	c.epoch = rec.Epoch + 1
	c.log = txlog.NewSortedLogCache()
	c.log.SetBaseCheckpoint(rec.Epoch, rec.TxCount, rec.MinWallClock)
	c.calculator = newCalc(c.log, rec.State, c.validate)
	c.checkpoints[rec.Key()] = rec
	c.reconcileCache.Purge()

	state, _ := c.calculator.CalculateState()
	c.notify(state, nil)
	return nil
}
