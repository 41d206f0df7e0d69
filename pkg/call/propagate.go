package call

// Propagate forward-fills omitted parameters across an ordered batch.
// Consecutive specs of the same type form an inheritance chain: a spec
// lacking a key copies the nearest preceding same-type value; when both the
// preceding and the current value are maps they are shallow-merged with the
// current spec's keys winning. A type change breaks the chain, so nothing
// crosses the boundary. Values are only added, never removed or overwritten.
func Propagate(batch []*Spec) {
	seen := map[string]bool{}
	for _, spec := range batch {
		for k := range spec.Params {
			seen[k] = true
		}
	}
	for key := range seen {
		propagateKey(batch, key)
	}
}

// propagateKey fills one key across adjacent same-type pairs. Filling in
// batch order lets a value cascade through an entire run even when only its
// first spec defines it.
func propagateKey(batch []*Spec, key string) {
	for x := 1; x < len(batch); x++ {
		prev, cur := batch[x-1], batch[x]
		if cur.Type != prev.Type {
			continue
		}
		prevVal, prevOK := prev.Params[key]
		curVal, curOK := cur.Params[key]

		prevMap, prevIsMap := prevVal.(map[string]any)
		curMap, curIsMap := curVal.(map[string]any)

		switch {
		case prevIsMap && curIsMap:
			merged := make(map[string]any, len(prevMap)+len(curMap))
			for k, v := range prevMap {
				merged[k] = v
			}
			for k, v := range curMap {
				merged[k] = v
			}
			cur.Params[key] = merged
		case curOK && !empty(curVal):
			// existing non-map values are never overwritten
		case prevOK && !empty(prevVal):
			cur.Params[key] = prevVal
		}
	}
}
