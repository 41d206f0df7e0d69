package call

// Project narrows a decoded response body to the given top-level field
// names. A nil or empty keep set returns the body unchanged; unknown names
// are ignored. The input map is never modified.
func Project(body map[string]any, keep []string) map[string]any {
	if len(keep) == 0 {
		return body
	}
	out := make(map[string]any, len(keep))
	for _, field := range keep {
		if v, ok := body[field]; ok {
			out[field] = v
		}
	}
	return out
}
