package attributes

// MergeAttributes unions two attribute maps. Keys present in both get the
// existing values followed by new values from additional, without
// duplicates. Neither input is modified.
func MergeAttributes(existing, additional AttributeMap) AttributeMap {
	merged := make(AttributeMap, len(existing)+len(additional))
	for _, key := range existing.Keys() {
		merged[key] = appendUnique(nil, existing[key]...)
	}
	for _, key := range additional.Keys() {
		merged[key] = appendUnique(merged[key], additional[key]...)
	}
	return merged
}
