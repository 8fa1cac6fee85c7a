package checkpoint

import "encoding/json"

// Watermark is one client's progress as folded into a checkpoint: the
// highest Lamport clock from that client already reflected in the
// checkpoint's State, and the wall-clock time of that transaction, which
// retention pruning uses to decide when the client's entry itself can be
// forgotten.
type Watermark struct {
	MaxClock     int64 `json:"maxClock"`
	MaxWallClock int64 `json:"maxWallClock"`
}

type watermarksDoc struct {
	Clients map[string]Watermark `json:"clients"`
}

// ParseWatermarks decodes a checkpoint's Watermarks side channel into a
// per-client map. A nil or empty blob parses as an empty map.
func ParseWatermarks(data []byte) (map[string]Watermark, error) {
	if len(data) == 0 {
		return map[string]Watermark{}, nil
	}
	var doc watermarksDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Clients == nil {
		doc.Clients = map[string]Watermark{}
	}
	return doc.Clients, nil
}

// BuildWatermarks encodes a full per-client watermark map as the
// document-shaped JSON ApplyWatermarks expects as its base.
func BuildWatermarks(clients map[string]Watermark) ([]byte, error) {
	return json.Marshal(watermarksDoc{Clients: clients})
}

// BuildWatermarkIncrease encodes a merge patch touching only the clients
// whose watermark genuinely advances relative to prior — the patch
// ApplyWatermarks needs to fold those increases into prior without
// clobbering any other client's entry, since an RFC 7396 merge patch
// replaces whatever keys it names.
func BuildWatermarkIncrease(prior map[string]Watermark, advanced map[string]Watermark) ([]byte, error) {
	patch := make(map[string]Watermark, len(advanced))
	for clientID, w := range advanced {
		if existing, ok := prior[clientID]; !ok || w.MaxClock > existing.MaxClock {
			patch[clientID] = w
		}
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return json.Marshal(watermarksDoc{Clients: patch})
}

// PruneStale drops any client watermark whose MaxWallClock is older than
// referenceTime by more than retentionWindowMs.
func PruneStale(clients map[string]Watermark, referenceTime, retentionWindowMs int64) map[string]Watermark {
	if retentionWindowMs <= 0 || referenceTime <= 0 {
		return clients
	}
	kept := make(map[string]Watermark, len(clients))
	for clientID, w := range clients {
		if referenceTime-w.MaxWallClock > retentionWindowMs {
			continue
		}
		kept[clientID] = w
	}
	return kept
}

// Covered reports whether watermarks already folds in every transaction up
// to and including clock from clientID.
func Covered(clients map[string]Watermark, clientID string, clock int64) bool {
	w, ok := clients[clientID]
	return ok && w.MaxClock >= clock
}
