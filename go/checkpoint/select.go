package checkpoint

// FinalizedEpochAndCanonical picks the checkpoint every peer should treat
// as ground truth: the highest epoch with at least one checkpoint, and
// within that epoch the record with the greatest TxCount (it folds in the
// most history), tie-broken by the lexicographically smallest ClientID so
// every peer resolves concurrent checkpoint writers to the same canonical
// record without further coordination.
func FinalizedEpochAndCanonical(records map[Key]Record) (epoch int64, canonical Key, ok bool) {
	if len(records) == 0 {
		return -1, Key{}, false
	}

	epoch = -1
	for k := range records {
		if k.Epoch > epoch {
			epoch = k.Epoch
		}
	}

	var best Record
	found := false
	for k, r := range records {
		if k.Epoch != epoch {
			continue
		}
		if !found ||
			r.TxCount > best.TxCount ||
			(r.TxCount == best.TxCount && r.ClientID < best.ClientID) {
			best = r
			found = true
		}
	}
	if !found {
		return 0, Key{}, false
	}
	return epoch, best.Key(), true
}
