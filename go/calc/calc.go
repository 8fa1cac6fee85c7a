// Package calc implements the incremental state calculator: it derives a
// document's current value from a SortedLogCache of transactions, keeping
// the previously computed value and reusing it when possible instead of
// replaying the whole log on every call.
package calc

import (
	"github.com/sirupsen/logrus"

	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/reconcile"
	"github.com/docreplica/synclog/go/txlog"
	"github.com/docreplica/synclog/go/value"
)

// lastAppliedIndex has three meaningful states, matching the log's index
// space at the moment cachedState was produced:
//   - noneApplied: cachedState is the base checkpoint's state verbatim; no
//     log entry has been folded into it yet.
//   - fullRecompute: the cache is invalid and calculateState must replay
//     every entry in the log from the base state.
//   - any n >= 0: cachedState already reflects entries[0..n] inclusive;
//     calculateState only needs to apply entries[n+1:].
const (
	noneApplied   = -1
	fullRecompute = -2
)

// StateCalculator derives a document value from a log, memoizing the
// result between calls and invalidating (or shrinking) that memo whenever
// the log or its base checkpoint changes.
type StateCalculator struct {
	log   *txlog.SortedLogCache
	base  value.Value
	valid func(value.Value) bool

	cachedState      value.Value
	lastAppliedIndex int

	appliedDedupKeys map[txlog.TxTimestampKey]bool
	maxSeenClock     int64
}

// New returns a calculator over log, starting from base as the state of an
// empty log. valid, if non-nil, is consulted after every transaction's ops
// are applied; a transaction it rejects is treated exactly like one whose
// ops failed to apply.
func New(log *txlog.SortedLogCache, base value.Value, valid func(value.Value) bool) *StateCalculator {
	return &StateCalculator{
		log:              log,
		base:             base,
		valid:            valid,
		cachedState:      base,
		lastAppliedIndex: noneApplied,
		appliedDedupKeys: make(map[txlog.TxTimestampKey]bool),
	}
}

// MaxSeenClock returns the highest Lamport clock value observed across any
// transaction folded into the current state, used to seed a client's next
// outgoing clock after a rehydrate.
func (c *StateCalculator) MaxSeenClock() int64 { return c.maxSeenClock }

// Append notifies the calculator that a transaction was inserted at the
// tail of the log, i.e. with a timestamp greater than every entry already
// folded into cachedState. This is the common case — a freshly emitted
// local transaction, or a remote one delivered in order — and requires no
// invalidation at all: CalculateState will simply pick it up on its next
// call via lastAppliedIndex.
func (c *StateCalculator) Append() {}

// Invalidate forces a full recompute on the next CalculateState call. Use
// this whenever a transaction is inserted out of timestamp order relative
// to what's already memoized (a re-emitted or rehydrated transaction with
// an earlier timestamp than the calculator has already applied), or
// whenever entries are removed from the log (pruning, rebase).
func (c *StateCalculator) Invalidate() {
	c.lastAppliedIndex = fullRecompute
}

// SetBaseCheckpoint rebases the calculator onto a new starting state,
// forcing a full recompute since everything previously memoized assumed
// the old base.
func (c *StateCalculator) SetBaseCheckpoint(base value.Value) {
	c.base = base
	c.lastAppliedIndex = fullRecompute
}

// RebuildFromMap forces a full recompute, for use after the log itself was
// rebuilt wholesale (see txlog.SortedLogCache.RebuildFromMap).
func (c *StateCalculator) RebuildFromMap() {
	c.lastAppliedIndex = fullRecompute
}

// CalculateState returns the document's current value, replaying only the
// log entries not already reflected in the memoized state, plus a lazy
// accessor for the ops that produced the delta from the state this same
// calculator returned last call. On the common incremental path that's
// simply the flattened ops of the transactions just applied (this includes
// the very first call, which replays the log incrementally from the base);
// after a full recompute (SetBaseCheckpoint, Invalidate, RebuildFromMap) there is
// no "just applied" transaction list to flatten, since every transaction in
// the log was replayed from the new base, so the accessor instead reconciles
// the prior and new states directly. That reconcile walks both value trees
// and is only worth paying for if a caller actually asks, so it is deferred
// into the returned closure rather than computed unconditionally.
func (c *StateCalculator) CalculateState() (value.Value, func() []ops.Op) {
	entries := c.log.Entries()

	wasFullRecompute := c.lastAppliedIndex == fullRecompute
	priorState := c.cachedState

	start := 0
	switch {
	case wasFullRecompute:
		c.cachedState = c.base
		c.appliedDedupKeys = make(map[txlog.TxTimestampKey]bool)
		c.maxSeenClock = 0
		start = 0
	case c.lastAppliedIndex == noneApplied:
		start = 0
	default:
		start = c.lastAppliedIndex + 1
	}

	state := c.cachedState
	var appliedOps []ops.Op
	for i := start; i < len(entries); i++ {
		entry := entries[i]
		dedupKey := entry.DedupKey()
		if c.appliedDedupKeys[dedupKey] {
			continue
		}

		result, err := ops.ApplyTxImmutable(state, entry.Record.Ops, c.valid)
		if err != nil {
			logrus.WithField("key", entry.Key).WithField("err", err).Debug("calc: transaction rejected during replay")
		} else {
			state = result
			if !wasFullRecompute {
				appliedOps = append(appliedOps, entry.Record.Ops...)
			}
		}
		c.appliedDedupKeys[dedupKey] = true

		if ts, err := entry.Timestamp(); err == nil && ts.Clock > c.maxSeenClock {
			c.maxSeenClock = ts.Clock
		}
	}

	c.cachedState = state
	c.lastAppliedIndex = len(entries) - 1

	finalState := state
	getAppliedOps := func() []ops.Op {
		if !wasFullRecompute {
			return appliedOps
		}
		diffOps, err := reconcile.Compute(priorState, finalState)
		if err != nil {
			logrus.WithField("err", err).Debug("calc: reconcile diff failed after full recompute")
			return nil
		}
		return diffOps
	}

	return state, getAppliedOps
}
