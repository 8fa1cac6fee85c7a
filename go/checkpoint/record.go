package checkpoint

import "github.com/docreplica/synclog/go/value"

// Record is a single checkpoint: the document state as of (Epoch, TxCount)
// transactions applied, plus a side-channel Watermarks blob carrying
// whatever per-client progress metadata the caller wants folded across
// checkpoints (e.g. "last wall clock seen per clientId"), and MinWallClock,
// the oldest transaction timestamp folded into State — the figure pruning
// uses to decide how far back the log still needs to retain entries.
type Record struct {
	Epoch        int64
	TxCount      int64
	ClientID     string
	State        value.Value
	Watermarks   []byte
	MinWallClock int64
}

// Key returns the canonical Key identifying r.
func (r Record) Key() Key {
	return Key{Epoch: r.Epoch, TxCount: r.TxCount, ClientID: r.ClientID}
}

// Create builds a Record, the sole constructor so every field stays
// consistent with its Key.
func Create(state value.Value, epoch, txCount int64, clientID string, minWallClock int64, watermarks []byte) Record {
	return Record{
		Epoch:        epoch,
		TxCount:      txCount,
		ClientID:     clientID,
		State:        state,
		Watermarks:   watermarks,
		MinWallClock: minWallClock,
	}
}
