package checkpoint

import jsonpatch "github.com/evanphx/json-patch/v5"

// ReduceWatermarks combines two checkpoints' Watermarks side channels into
// one, the same way a driver checkpoint's extension blob is folded across
// transactions: both blobs are RFC 7396 JSON merge patches, and combining
// them means producing a single merge patch that has the same effect as
// applying them in sequence. An empty prior blob is treated as "{}".
func ReduceWatermarks(prior, next []byte) ([]byte, error) {
	if len(prior) == 0 {
		return next, nil
	}
	if len(next) == 0 {
		return prior, nil
	}
	return jsonpatch.MergeMergePatches(prior, next)
}

// ApplyWatermarks applies a merge-patch Watermarks blob onto base, the
// document-shaped JSON whose fields the watermark side channel tracks
// (e.g. {"clients": {"c1": 42}}).
func ApplyWatermarks(base, patch []byte) ([]byte, error) {
	if len(patch) == 0 {
		return base, nil
	}
	if len(base) == 0 {
		base = []byte("{}")
	}
	return jsonpatch.MergePatch(base, patch)
}
