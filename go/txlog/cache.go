package txlog

import "sort"

// SortedLogCache holds a transaction log's entries in timestamp order,
// alongside a hash index for O(1) membership checks and a "base checkpoint"
// marker describing the state the log is layered on top of.
//
// Ordering is by each entry's own Key, not its dedup key: a re-emitted
// transaction takes its place in the log at its new timestamp, even though
// calc and checkpoint logic dedup it against the original.
type SortedLogCache struct {
	entries []*SortedTxEntry
	index   map[TxTimestampKey]*SortedTxEntry

	baseEpoch        int64
	baseTxCount      int64
	baseMinWallClock int64
}

// NewSortedLogCache returns an empty cache with no base checkpoint set.
func NewSortedLogCache() *SortedLogCache {
	return &SortedLogCache{index: make(map[TxTimestampKey]*SortedTxEntry)}
}

// Len reports the number of transactions currently held.
func (c *SortedLogCache) Len() int { return len(c.entries) }

// Entries returns the cache's entries in ascending timestamp order. The
// returned slice must not be mutated by the caller.
func (c *SortedLogCache) Entries() []*SortedTxEntry { return c.entries }

// Has reports whether key is present in the log.
func (c *SortedLogCache) Has(key TxTimestampKey) bool {
	_, ok := c.index[key]
	return ok
}

// Get returns the entry stored under key, if any.
func (c *SortedLogCache) Get(key TxTimestampKey) (*SortedTxEntry, bool) {
	e, ok := c.index[key]
	return e, ok
}

// BaseCheckpoint returns the epoch, transaction count, and minimum wall
// clock of the checkpoint this log is layered on top of.
func (c *SortedLogCache) BaseCheckpoint() (epoch, txCount, minWallClock int64) {
	return c.baseEpoch, c.baseTxCount, c.baseMinWallClock
}

// SetBaseCheckpoint records the checkpoint the log's entries are layered on
// top of, for BaseCheckpoint to report. calc and the engine do not read it
// back: a full recompute always walks the whole log, and the engine
// classifies ancient transactions from its own checkpoint records.
func (c *SortedLogCache) SetBaseCheckpoint(epoch, txCount, minWallClock int64) {
	c.baseEpoch = epoch
	c.baseTxCount = txCount
	c.baseMinWallClock = minWallClock
}

// InsertTx inserts record under key, maintaining timestamp order. If key is
// already present, the existing entry is replaced in place. Returns an
// error only if key fails to parse.
func (c *SortedLogCache) InsertTx(key TxTimestampKey, record TxRecord) error {
	entry := NewSortedTxEntry(key, record)
	ts, err := entry.Timestamp()
	if err != nil {
		return err
	}

	if existing, ok := c.index[key]; ok {
		existing.Record = record
		existing.originalTS = nil
		c.index[key] = existing
		return nil
	}

	i := sort.Search(len(c.entries), func(i int) bool {
		other, _ := c.entries[i].Timestamp()
		return Compare(other, ts) >= 0
	})
	c.entries = append(c.entries, nil)
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = entry
	c.index[key] = entry
	return nil
}

// RemoveTxs removes every entry whose key is in keys.
func (c *SortedLogCache) RemoveTxs(keys []TxTimestampKey) {
	if len(keys) == 0 {
		return
	}
	remove := make(map[TxTimestampKey]bool, len(keys))
	for _, k := range keys {
		remove[k] = true
		delete(c.index, k)
	}
	kept := c.entries[:0]
	for _, e := range c.entries {
		if !remove[e.Key] {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

// RebuildFromMap discards all current entries and repopulates the cache
// from records, re-sorting from scratch, for a caller that replaces the log
// wholesale. The engine does not call it.
func (c *SortedLogCache) RebuildFromMap(records map[TxTimestampKey]TxRecord) error {
	c.entries = nil
	c.index = make(map[TxTimestampKey]*SortedTxEntry, len(records))
	for key, record := range records {
		if err := c.InsertTx(key, record); err != nil {
			return err
		}
	}
	return nil
}
