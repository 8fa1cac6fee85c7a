package checkpoint

// Prune keeps only the canonical checkpoint for finalizedEpoch and deletes
// every other entry, including other candidates competing for the same
// epoch and any checkpoint from an earlier epoch. Since finalizedEpoch is
// by definition the highest epoch any checkpoint carries
// (FinalizedEpochAndCanonical), there is nothing useful left to retain
// once that epoch's canonical record is chosen: an earlier epoch's
// checkpoint can never become canonical again, and a losing competitor at
// finalizedEpoch was already superseded the moment it lost the tie-break.
func Prune(records map[Key]Record, finalizedEpoch int64) map[Key]Record {
	_, canonical, ok := FinalizedEpochAndCanonical(records)
	if !ok || canonical.Epoch != finalizedEpoch {
		return records
	}
	return map[Key]Record{canonical: records[canonical]}
}
