package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/docreplica/synclog/go/checkpoint"
	"github.com/docreplica/synclog/go/txlog"
)

// Compact folds every transaction in the active epoch into a new
// checkpoint, advances the active epoch past it, and prunes both the
// folded transactions and any checkpoint the new one supersedes. Emit only
// grows the log; UpdateState also deletes ancient, covered or re-emitted
// finalized-epoch entries, and RestoreCheckpoint resets the log and the
// epoch wholesale. Neither Emit nor UpdateState changes the active epoch.
//
// Compact on an empty active-epoch slice is a no-op: it returns the zero
// Key and leaves the log, the checkpoint set, and the epoch counter
// untouched, since there is nothing yet to fold.
func (c *Controller) Compact() (checkpoint.Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireNotDisposed("Compact"); err != nil {
		return checkpoint.Key{}, err
	}

	var active []*txlog.SortedTxEntry
	for _, e := range c.log.Entries() {
		if ts, err := e.Timestamp(); err == nil && ts.Epoch == c.epoch {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return checkpoint.Key{}, nil
	}

	var priorWatermarksBlob []byte
	priorWatermarks := map[string]checkpoint.Watermark{}
	if _, canonicalKey, ok := checkpoint.FinalizedEpochAndCanonical(c.checkpoints); ok {
		prior := c.checkpoints[canonicalKey]
		priorWatermarksBlob = prior.Watermarks
		if parsed, err := checkpoint.ParseWatermarks(prior.Watermarks); err == nil {
			priorWatermarks = parsed
		}
	}

	state, _ := c.calculator.CalculateState()

	advanced := make(map[string]checkpoint.Watermark, len(active))
	var minWallClock int64
	for i, e := range active {
		ts, err := e.DedupTimestamp()
		if err != nil {
			continue
		}
		if i == 0 || ts.WallClock < minWallClock {
			minWallClock = ts.WallClock
		}
		if existing, ok := advanced[ts.ClientID]; !ok || ts.Clock > existing.MaxClock {
			advanced[ts.ClientID] = checkpoint.Watermark{MaxClock: ts.Clock, MaxWallClock: ts.WallClock}
		}
	}

	increase, err := checkpoint.BuildWatermarkIncrease(priorWatermarks, advanced)
	if err != nil {
		return checkpoint.Key{}, err
	}
	mergedBlob, err := checkpoint.ApplyWatermarks(priorWatermarksBlob, increase)
	if err != nil {
		return checkpoint.Key{}, err
	}
	merged, err := checkpoint.ParseWatermarks(mergedBlob)
	if err != nil {
		return checkpoint.Key{}, err
	}
	merged = checkpoint.PruneStale(merged, minWallClock, c.retentionMsLocked())
	watermarkBlob, err := checkpoint.BuildWatermarks(merged)
	if err != nil {
		return checkpoint.Key{}, err
	}

	txCount := int64(len(active))
	rec := checkpoint.Create(state, c.epoch, txCount, c.clientID, minWallClock, watermarkBlob)
	c.checkpoints[rec.Key()] = rec
	c.metrics.Compactions.Inc()

	if c.store != nil {
		if err := c.store.Set(context.Background(), "checkpoint/"+rec.Key().String(), watermarkBlob); err != nil {
			logrus.WithField("err", err).Error("engine: failed to publish checkpoint")
		}
	}

	var folded []txlog.TxTimestampKey
	for _, e := range active {
		folded = append(folded, e.Key)
	}
	c.log.RemoveTxs(folded)
	c.log.SetBaseCheckpoint(rec.Epoch, rec.TxCount, rec.MinWallClock)

	c.epoch = rec.Epoch + 1
	c.calculator.SetBaseCheckpoint(rec.State)

	if finalizedEpoch, _, ok := checkpoint.FinalizedEpochAndCanonical(c.checkpoints); ok {
		before := len(c.checkpoints)
		c.checkpoints = checkpoint.Prune(c.checkpoints, finalizedEpoch)
		c.metrics.CheckpointsPruned.Add(float64(before - len(c.checkpoints)))
	}

	c.metrics.LogSize.Set(float64(c.log.Len()))
	return rec.Key(), nil
}

func (c *Controller) activeEpochTxCountLocked() int64 {
	var n int64
	for _, e := range c.log.Entries() {
		if ts, err := e.Timestamp(); err == nil && ts.Epoch == c.epoch {
			n++
		}
	}
	return n
}

func (c *Controller) activeEpochStartTimeLocked() int64 {
	for _, e := range c.log.Entries() {
		if ts, err := e.Timestamp(); err == nil && ts.Epoch == c.epoch {
			return ts.WallClock
		}
	}
	return 0
}
