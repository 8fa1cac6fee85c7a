// Package txlog implements the sorted, deduplicating transaction log that
// backs a replicated document's op history: each transaction is keyed by a
// TxTimestamp and held in a SortedLogCache ordered for deterministic replay
// and indexed for O(1) membership checks during sync.
package txlog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docreplica/synclog/go/ops"
)

// TxTimestamp totally orders transactions within an epoch. clientId
// tie-breaks transactions sharing a clock value (concurrent, causally
// unordered writes from different clients); wallClock carries no ordering
// weight at all — it exists purely so checkpoint pruning can estimate how
// old a transaction is in real time.
type TxTimestamp struct {
	Epoch     int64
	Clock     int64
	ClientID  string
	WallClock int64
}

// TxTimestampKey is the canonical "epoch;clock;clientId;wallClock" string
// form used as a map key and wire key throughout the log and checkpoint
// stores.
type TxTimestampKey string

// Key formats t as its canonical TxTimestampKey.
func (t TxTimestamp) Key() TxTimestampKey {
	return TxTimestampKey(fmt.Sprintf("%d;%d;%s;%d", t.Epoch, t.Clock, t.ClientID, t.WallClock))
}

// ParseTxTimestampKey parses the "epoch;clock;clientId;wallClock" form
// produced by Key. A clientId containing ';' can never round-trip through
// this format, which is why engine.New rejects such clientIds as a
// FatalUsageError rather than silently mis-parsing them later.
func ParseTxTimestampKey(key TxTimestampKey) (TxTimestamp, error) {
	parts := strings.Split(string(key), ";")
	if len(parts) != 4 {
		return TxTimestamp{}, ops.Fatalf("txlog", "malformed transaction key %q", key)
	}
	epoch, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return TxTimestamp{}, ops.Fatalf("txlog", "malformed epoch in key %q: %w", key, err)
	}
	clock, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return TxTimestamp{}, ops.Fatalf("txlog", "malformed clock in key %q: %w", key, err)
	}
	wallClock, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return TxTimestamp{}, ops.Fatalf("txlog", "malformed wallClock in key %q: %w", key, err)
	}
	return TxTimestamp{Epoch: epoch, Clock: clock, ClientID: parts[2], WallClock: wallClock}, nil
}

// Compare orders timestamps by (Epoch, Clock, ClientID), ignoring
// WallClock. Returns -1, 0, or 1.
func Compare(a, b TxTimestamp) int {
	if a.Epoch != b.Epoch {
		return cmpInt64(a.Epoch, b.Epoch)
	}
	if a.Clock != b.Clock {
		return cmpInt64(a.Clock, b.Clock)
	}
	return strings.Compare(a.ClientID, b.ClientID)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
