package engine

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/docreplica/synclog/go/value"
)

// reconcileCacheKey builds the memoization key for a (current, target)
// reconcile pair: both serialized to canonical JSON and hashed together, so
// repeated ReconcileState calls against an unchanged pair skip recomputing
// the diff even though current and target are fresh Go values each time.
func reconcileCacheKey(current, target value.Value) (string, error) {
	c, err := value.Marshal(current)
	if err != nil {
		return "", err
	}
	t, err := value.Marshal(target)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(c)
	h.Write([]byte{0})
	h.Write(t)
	return hex.EncodeToString(h.Sum(nil)), nil
}
