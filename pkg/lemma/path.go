package lemma

// BuildReasoningPath returns the transitive dependencies of the lemma
// at id over the given view, excluding id itself and deduplicated, in
// an order where every surviving dependency of an entry appears before
// the entry. Dependencies outside [0, owner id) are skipped, so the
// scan stays bounded to the view even when the pool keeps growing
// underneath the caller. With verifiedOnly, only verified lemmas are
// traversed and reported.
func BuildReasoningPath(view []Lemma, id int, verifiedOnly bool) []int {
	if id < 0 || id >= len(view) {
		return nil
	}

	seen := make(map[int]bool, len(view))
	var path []int

	var visit func(cur int)
	visit = func(cur int) {
		for _, dep := range view[cur].Dependencies {
			if dep < 0 || dep >= cur {
				continue
			}
			if seen[dep] {
				continue
			}
			if verifiedOnly && view[dep].Status != StatusVerified {
				continue
			}
			seen[dep] = true
			visit(dep)
			path = append(path, dep)
		}
	}
	visit(id)

	return path
}
