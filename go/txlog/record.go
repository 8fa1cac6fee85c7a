package txlog

import "github.com/docreplica/synclog/go/ops"

// TxRecord is the durable payload of a logged transaction: the ops it
// applied, plus (for a transaction that was re-emitted after a sync
// rehydrate, rather than newly authored) the key it originally carried
// before re-emission. OriginalTxKey is what lets a receiving peer recognize
// "I've already applied this transaction, just under an earlier timestamp"
// and skip it instead of double-applying.
type TxRecord struct {
	Ops           []ops.Op
	OriginalTxKey *TxTimestampKey
}

// SortedTxEntry pairs a TxRecord with the key it is currently stored under,
// lazily parsing and caching both that key's timestamp and (if present) the
// original key's timestamp, since SortedLogCache re-reads them on every
// comparison during insert/search.
type SortedTxEntry struct {
	Key    TxTimestampKey
	Record TxRecord

	ts         *TxTimestamp
	originalTS *TxTimestamp
}

// NewSortedTxEntry wraps a (key, record) pair for insertion into a
// SortedLogCache.
func NewSortedTxEntry(key TxTimestampKey, record TxRecord) *SortedTxEntry {
	return &SortedTxEntry{Key: key, Record: record}
}

// Timestamp returns (and caches) the parsed form of e.Key.
func (e *SortedTxEntry) Timestamp() (TxTimestamp, error) {
	if e.ts == nil {
		ts, err := ParseTxTimestampKey(e.Key)
		if err != nil {
			return TxTimestamp{}, err
		}
		e.ts = &ts
	}
	return *e.ts, nil
}

// DedupKey returns the key this entry should be deduplicated under: its
// OriginalTxKey if it was re-emitted, otherwise its own Key.
func (e *SortedTxEntry) DedupKey() TxTimestampKey {
	if e.Record.OriginalTxKey != nil {
		return *e.Record.OriginalTxKey
	}
	return e.Key
}

// DedupTimestamp parses (and caches) the timestamp of DedupKey().
func (e *SortedTxEntry) DedupTimestamp() (TxTimestamp, error) {
	if e.Record.OriginalTxKey == nil {
		return e.Timestamp()
	}
	if e.originalTS == nil {
		ts, err := ParseTxTimestampKey(*e.Record.OriginalTxKey)
		if err != nil {
			return TxTimestamp{}, err
		}
		e.originalTS = &ts
	}
	return *e.originalTS, nil
}
