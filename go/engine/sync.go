package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docreplica/synclog/go/checkpoint"
	"github.com/docreplica/synclog/go/txlog"
)

// RemoteTx is one transaction observed from a peer, as delivered over
// whatever transport a caller wires up (a syncmap.Map subscription, a
// direct RPC, a message queue).
type RemoteTx struct {
	Key    txlog.TxTimestampKey
	Record txlog.TxRecord
}

// UpdateState folds a batch of remote transactions into the controller's
// log. A transaction already present (by dedup key, covering re-emitted
// transactions too) is skipped; one the canonical checkpoint's watermark
// already covers, or one old enough to fall outside the retention window
// relative to that checkpoint's reference time, is dropped as already
// folded into state. Everything else is inserted.
//
// UpdateState then runs the same pass over the log's own entries: any
// transaction belonging to an epoch the canonical checkpoint has already
// finalized, but that checkpoint's watermark does not cover and that isn't
// ancient either, was missed by that checkpoint and is re-emitted into the
// active epoch under a fresh timestamp, carrying its original key so every
// peer still dedups it against the transaction it replaces.
//
// Returns the number of transactions newly inserted from remote (not
// counting re-emissions, which replace rather than add to the log's
// logical content).
func (c *Controller) UpdateState(remote []RemoteTx) (inserted int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireNotDisposed("UpdateState"); err != nil {
		return 0, err
	}

	finalizedEpoch, canonicalKey, haveCanonical := checkpoint.FinalizedEpochAndCanonical(c.checkpoints)
	var referenceTime int64
	var watermarks map[string]checkpoint.Watermark
	if haveCanonical {
		rec := c.checkpoints[canonicalKey]
		referenceTime = rec.MinWallClock
		watermarks, _ = checkpoint.ParseWatermarks(rec.Watermarks)
	}
	retentionMs := c.retentionMsLocked()

	dedup := make(map[txlog.TxTimestampKey]bool, len(remote))
	for _, e := range c.log.Entries() {
		dedup[e.DedupKey()] = true
	}

	outOfOrder := false
	for _, rtx := range remote {
		entry := txlog.NewSortedTxEntry(rtx.Key, rtx.Record)
		dedupKey := entry.DedupKey()
		if dedup[dedupKey] {
			continue
		}

		dedupTS, tsErr := entry.DedupTimestamp()
		if tsErr != nil {
			return inserted, tsErr
		}

		if haveCanonical && retentionMs >= 0 && referenceTime > 0 && referenceTime-dedupTS.WallClock > retentionMs {
			logrus.WithField("key", rtx.Key).Debug("engine: dropping ancient transaction")
			dedup[dedupKey] = true
			continue
		}
		if checkpoint.Covered(watermarks, dedupTS.ClientID, dedupTS.Clock) {
			logrus.WithField("key", rtx.Key).Debug("engine: dropping transaction already covered by checkpoint watermark")
			dedup[dedupKey] = true
			continue
		}

		if err := c.log.InsertTx(rtx.Key, rtx.Record); err != nil {
			return inserted, err
		}
		dedup[dedupKey] = true
		inserted++

		rawTS, rawErr := entry.Timestamp()
		if rawErr == nil && rawTS.Clock <= c.calculator.MaxSeenClock() {
			outOfOrder = true
		}
	}

	if haveCanonical && c.reemitMissedLocked(finalizedEpoch, referenceTime, retentionMs, watermarks) {
		outOfOrder = true
	}

	if haveCanonical {
		before := len(c.checkpoints)
		c.checkpoints = checkpoint.Prune(c.checkpoints, finalizedEpoch)
		c.metrics.CheckpointsPruned.Add(float64(before - len(c.checkpoints)))
	}

	if inserted == 0 && !outOfOrder {
		return 0, nil
	}
	if outOfOrder {
		c.calculator.Invalidate()
	} else {
		c.calculator.Append()
	}
	c.reconcileCache.Purge()

	state, getAppliedOps := c.calculator.CalculateState()
	if appliedOps := getAppliedOps(); len(appliedOps) > 0 {
		c.notify(state, appliedOps)
	}
	return inserted, nil
}

// reemitMissedLocked scans the log for transactions belonging to an
// already-finalized epoch that the canonical checkpoint's watermark
// doesn't cover and the retention window doesn't make ancient: these were
// missed by that checkpoint, and re-emitting them into the active epoch is
// the only way their effects survive the next compaction. Must be called
// with c.mu held.
func (c *Controller) reemitMissedLocked(finalizedEpoch, referenceTime, retentionMs int64, watermarks map[string]checkpoint.Watermark) bool {
	type pending struct {
		originalKey txlog.TxTimestampKey
		record      txlog.TxRecord
	}
	var toDelete []txlog.TxTimestampKey
	var toReemit []pending

	for _, e := range c.log.Entries() {
		ts, err := e.Timestamp()
		if err != nil {
			continue
		}
		if ts.Epoch > finalizedEpoch {
			break // entries are sorted by epoch; nothing after this needs re-emission
		}

		dedupTS, err := e.DedupTimestamp()
		if err != nil {
			continue
		}
		if retentionMs >= 0 && referenceTime > 0 && referenceTime-dedupTS.WallClock > retentionMs {
			toDelete = append(toDelete, e.Key)
			continue
		}
		if checkpoint.Covered(watermarks, dedupTS.ClientID, dedupTS.Clock) {
			toDelete = append(toDelete, e.Key)
			continue
		}

		toDelete = append(toDelete, e.Key)
		toReemit = append(toReemit, pending{originalKey: e.DedupKey(), record: e.Record})
	}

	if len(toDelete) == 0 {
		return false
	}

	for _, p := range toReemit {
		c.clock = max(c.clock, c.calculator.MaxSeenClock()) + 1
		newTS := txlog.TxTimestamp{Epoch: c.epoch, Clock: c.clock, ClientID: c.clientID, WallClock: time.Now().UnixMilli()}
		orig := p.originalKey
		if err := c.log.InsertTx(newTS.Key(), txlog.TxRecord{Ops: p.record.Ops, OriginalTxKey: &orig}); err != nil {
			logrus.WithField("err", err).Error("engine: failed to re-emit missed transaction")
		}
	}
	c.log.RemoveTxs(toDelete)
	return true
}
