package search

// MergeOfferEntities copies src over dst one level deep: later values win per
// key and keys missing from src are kept. dst may be nil.
func MergeOfferEntities(dst, src map[string]OfferEntity) map[string]OfferEntity {
	if dst == nil {
		dst = make(map[string]OfferEntity, len(src))
	}
	for id, e := range src {
		dst[id] = e
	}
	return dst
}

func MergeHotelEntities(dst, src map[string]Hotel) map[string]Hotel {
	if dst == nil {
		dst = make(map[string]Hotel, len(src))
	}
	for id, h := range src {
		dst[id] = h
	}
	return dst
}

// AppendUnique returns ids followed by the entries of more not seen before,
// keeping first-seen order. The input slice is not modified.
func AppendUnique(ids []string, more ...string) []string {
	out := make([]string, 0, len(ids)+len(more))
	seen := make(map[string]struct{}, len(ids)+len(more))
	for _, id := range append(ids[:len(ids):len(ids)], more...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// OfferState is how a hotel's offers should be presented.
type OfferState string

const (
	OfferAvailable   OfferState = "available"
	OfferPending     OfferState = "pending"
	OfferUnavailable OfferState = "unavailable"
)

// StateOf keeps hotels without offers pending until the owning scope is
// complete; only then are they reported unavailable.
func StateOf(entity *OfferEntity, isComplete bool) OfferState {
	if entity != nil && entity.Available() {
		return OfferAvailable
	}
	if !isComplete {
		return OfferPending
	}
	return OfferUnavailable
}
