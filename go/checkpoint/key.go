// Package checkpoint implements epoch-scoped checkpoint records: the
// snapshots a log periodically folds its applied transactions into, so a
// peer can bound replay to "since the last checkpoint" instead of
// replaying the document's entire history.
package checkpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docreplica/synclog/go/ops"
)

// Key is the canonical "epoch;txCount;clientId" identity of a checkpoint:
// the epoch it was produced in, how many transactions from that epoch it
// folds in, and which client produced it (multiple clients may each
// publish a checkpoint for the same epoch and txCount; ClientID
// tie-breaks which one is canonical, see FinalizedEpochAndCanonical).
type Key struct {
	Epoch    int64
	TxCount  int64
	ClientID string
}

// String formats k as its canonical key string.
func (k Key) String() string {
	return fmt.Sprintf("%d;%d;%s", k.Epoch, k.TxCount, k.ClientID)
}

// ParseKey parses the "epoch;txCount;clientId" form produced by String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ";", 3)
	if len(parts) != 3 {
		return Key{}, ops.Fatalf("checkpoint", "malformed checkpoint key %q", s)
	}
	epoch, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Key{}, ops.Fatalf("checkpoint", "malformed epoch in key %q: %w", s, err)
	}
	txCount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Key{}, ops.Fatalf("checkpoint", "malformed txCount in key %q: %w", s, err)
	}
	return Key{Epoch: epoch, TxCount: txCount, ClientID: parts[2]}, nil
}
