// Package engine wires the log, calculator, checkpoint store, and external
// map adapter into the controller surface a client actually calls: emit,
// subscribe, reconcileState, compact, and dispose, plus a handful of
// observability queries mirroring what the teacher exposes off its
// consumer.Store (RestoreCheckpoint/StartCommit/BuildHints) for operational
// introspection.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/docreplica/synclog/go/checkpoint"
	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/reconcile"
	"github.com/docreplica/synclog/go/syncmap"
	"github.com/docreplica/synclog/go/txlog"
	"github.com/docreplica/synclog/go/value"
)

// RetentionWindow is the default bound on how far back, in wall-clock
// time, Compact and UpdateState keep a client's watermark and a
// finalized-epoch transaction around before treating it as ancient.
// Config.RetentionWindow overrides it per Controller.
const RetentionWindow = 24 * time.Hour

// Infinite disables retention-based pruning entirely: nothing is ever
// treated as ancient, and watermarks are never pruned for staleness.
const Infinite time.Duration = -1

// Controller is one client's view of a replicated document: its own
// transaction log, a memoized state calculator over that log, and the set
// of checkpoints it knows about. Multiple Controllers, one per client,
// converge when a caller forwards each one's transactions to the others'
// UpdateState (see sync.go) and checkpoints to RestoreCheckpoint. A
// configured syncmap.Map only receives published transactions and
// checkpoint watermarks; the Controller never reads from it.
type Controller struct {
	mu sync.Mutex

	clientID        string
	epoch           int64
	clock           int64
	validate        func(value.Value) bool
	retentionWindow time.Duration

	log         *txlog.SortedLogCache
	calculator  calculator
	checkpoints map[checkpoint.Key]checkpoint.Record

	store syncmap.Map

	subscribers map[int]func(value.Value, []ops.Op)
	nextSubID   int

	reconcileCache *lru.Cache[string, []ops.Op]

	metrics  *Metrics
	disposed bool
}

// calculator is the subset of calc.StateCalculator the controller needs,
// factored out so tests can substitute a fake.
type calculator interface {
	CalculateState() (value.Value, func() []ops.Op)
	Append()
	Invalidate()
	SetBaseCheckpoint(value.Value)
	MaxSeenClock() int64
}

// Config configures a new Controller.
type Config struct {
	ClientID        string
	Epoch           int64
	Base            value.Value
	Validate        func(value.Value) bool
	Store           syncmap.Map   // optional; nil runs purely in-process
	Metrics         *Metrics      // optional; NewMetrics() if nil
	RetentionWindow time.Duration // zero uses RetentionWindow; Infinite disables pruning
}

// New constructs a Controller. Returns a FatalUsageError if ClientID
// contains ';', since that character is the field separator in every
// TxTimestampKey and CheckpointKey this controller will ever produce.
func New(cfg Config) (*Controller, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = randomClientID()
	}
	if strings.Contains(clientID, ";") {
		return nil, ops.Fatalf("engine.New", "clientId %q must not contain ';'", clientID)
	}
	cache, err := lru.New[string, []ops.Op](256)
	if err != nil {
		return nil, fmt.Errorf("engine: building reconcile cache: %w", err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	retentionWindow := cfg.RetentionWindow
	if retentionWindow == 0 {
		retentionWindow = RetentionWindow
	}

	log := txlog.NewSortedLogCache()
	return &Controller{
		clientID:        clientID,
		epoch:           cfg.Epoch,
		validate:        cfg.Validate,
		retentionWindow: retentionWindow,
		log:             log,
		calculator:      newCalc(log, cfg.Base, cfg.Validate),
		checkpoints:     make(map[checkpoint.Key]checkpoint.Record),
		store:           cfg.Store,
		subscribers:     make(map[int]func(value.Value, []ops.Op)),
		reconcileCache:  cache,
		metrics:         metrics,
	}, nil
}

// retentionMsLocked returns the controller's retention window in
// milliseconds, or -1 if retention-based pruning is disabled. Must be
// called with c.mu held.
func (c *Controller) retentionMsLocked() int64 {
	if c.retentionWindow == Infinite {
		return -1
	}
	return int64(c.retentionWindow / time.Millisecond)
}

func (c *Controller) requireNotDisposed(op string) error {
	if c.disposed {
		return ops.Fatalf(op, "controller is disposed")
	}
	return nil
}

// Emit appends a new transaction authored by this client to the log and
// returns the key it was stored under. txOps is applied atomically: if any
// op fails, or validate rejects the result, the transaction still enters
// the log (so peers can see and reason about the rejection) but contributes
// nothing to derived state.
func (c *Controller) Emit(txOps []ops.Op) (txlog.TxTimestampKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireNotDisposed("Emit"); err != nil {
		return "", err
	}

	c.clock = max(c.clock, c.calculator.MaxSeenClock()) + 1
	ts := txlog.TxTimestamp{
		Epoch:     c.epoch,
		Clock:     c.clock,
		ClientID:  c.clientID,
		WallClock: time.Now().UnixMilli(),
	}
	key := ts.Key()

	if err := c.log.InsertTx(key, txlog.TxRecord{Ops: txOps}); err != nil {
		return "", err
	}
	c.calculator.Append()
	c.reconcileCache.Purge()
	c.metrics.TxEmitted.Inc()

	state, getAppliedOps := c.calculator.CalculateState()
	c.publishTx(key, txOps)
	if appliedOps := getAppliedOps(); len(appliedOps) > 0 {
		c.notify(state, appliedOps)
	}
	return key, nil
}

// Subscribe registers fn and calls it once with the current state on a new
// goroutine (so that call may run after Subscribe returns), with a nil ops
// slice, since there is no prior state to diff against. fn is called again,
// synchronously, every time Emit, UpdateState, or ReconcileState actually changes
// the state, with the ops that produced the new state from the previous
// one. The returned function unregisters fn.
func (c *Controller) Subscribe(fn func(value.Value, []ops.Op)) (unsubscribe func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireNotDisposed("Subscribe"); err != nil {
		return nil, err
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	state, _ := c.calculator.CalculateState()

	go fn(state, nil)

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}, nil
}

func (c *Controller) notify(state value.Value, appliedOps []ops.Op) {
	for _, fn := range c.subscribers {
		fn(state, appliedOps)
	}
}

// State returns the controller's current derived value.
func (c *Controller) State() (value.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireNotDisposed("State"); err != nil {
		return value.Value{}, err
	}
	state, _ := c.calculator.CalculateState()
	return state, nil
}

// ReconcileState computes the ops needed to converge the current state to
// target, emits them as a single transaction if any are needed, and
// returns them. Identical (current, target) pairs reuse a memoized diff
// instead of recomputing it — see reconcile_cache.go.
func (c *Controller) ReconcileState(target value.Value) ([]ops.Op, error) {
	c.mu.Lock()
	if err := c.requireNotDisposed("ReconcileState"); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	current, _ := c.calculator.CalculateState()
	c.mu.Unlock()

	c.metrics.ReconcileCalls.Inc()

	diffOps, err := c.computeReconcileCached(current, target)
	if err != nil {
		return nil, err
	}
	if len(diffOps) == 0 {
		return nil, nil
	}
	if _, err := c.Emit(diffOps); err != nil {
		return nil, err
	}
	return diffOps, nil
}

func (c *Controller) computeReconcileCached(current, target value.Value) ([]ops.Op, error) {
	key, err := reconcileCacheKey(current, target)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.reconcileCache.Get(key); ok {
		c.metrics.ReconcileCacheHits.Inc()
		return cached, nil
	}

	diffOps, err := reconcile.Compute(current, target)
	if err != nil {
		return nil, err
	}
	c.reconcileCache.Add(key, diffOps)
	return diffOps, nil
}

// Dispose marks the controller unusable. After Dispose, every method that
// returns an error (Emit, Subscribe, State, ReconcileState, UpdateState,
// Compact, RestoreCheckpoint) returns a FatalUsageError. Record, IsLogEmpty
// and the GetActiveEpoch* queries do not check for disposal and keep
// answering from the controller's last state. Dispose itself may be called
// again.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.subscribers = nil
}

// Record returns the TxRecord stored under key in this controller's own
// log, for a caller that needs to forward a locally authored (or
// previously received) transaction to another peer's UpdateState without
// going through a shared syncmap.Map transport.
func (c *Controller) Record(key txlog.TxTimestampKey) (txlog.TxRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.log.Get(key)
	if !ok {
		return txlog.TxRecord{}, false
	}
	return e.Record, true
}

// IsLogEmpty reports whether the controller's log currently holds any
// transactions.
func (c *Controller) IsLogEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Len() == 0
}

// GetActiveEpoch returns the epoch this controller is currently emitting
// into.
func (c *Controller) GetActiveEpoch() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// GetActiveEpochTxCount returns the number of transactions in the log
// belonging to the active epoch.
func (c *Controller) GetActiveEpochTxCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeEpochTxCountLocked()
}

// GetActiveEpochStartTime returns the wall-clock time, as Unix
// milliseconds, of the earliest transaction in the active epoch, or 0 if
// the active epoch has no transactions yet.
func (c *Controller) GetActiveEpochStartTime() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeEpochStartTimeLocked()
}

func (c *Controller) publishTx(key txlog.TxTimestampKey, txOps []ops.Op) {
	if c.store == nil {
		return
	}
	data, err := ops.MarshalOps(txOps)
	if err != nil {
		logrus.WithField("key", key).WithField("err", err).Error("engine: failed to marshal transaction for publish")
		return
	}
	if err := c.store.Set(context.Background(), "tx/"+string(key), data); err != nil {
		logrus.WithField("key", key).WithField("err", err).Error("engine: failed to publish transaction")
	}
}
