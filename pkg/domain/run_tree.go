package domain

// RunPredicate selects runs during tree traversal.
type RunPredicate func(*Run) bool

// ByName matches runs whose Name equals name exactly.
func ByName(name string) RunPredicate {
	return func(r *Run) bool { return r.Name == name }
}

// ByRunType matches runs of the given type.
func ByRunType(t RunType) RunPredicate {
	return func(r *Run) bool { return r.RunType == t }
}

// ByStatus matches runs in the given lifecycle state.
func ByStatus(s RunStatus) RunPredicate {
	return func(r *Run) bool { return r.Status == s }
}

// FindDescendant searches the run's descendants breadth-first and returns
// the first match. The receiver itself is never considered. Shallower
// matches win over deeper ones; within a depth, child insertion order
// decides. The second return value is false when nothing matches, so absence
// is an answer rather than an error.
func (r *Run) FindDescendant(match RunPredicate) (*Run, bool) {
	if r == nil || match == nil {
		return nil, false
	}
	queue := make([]*Run, 0, len(r.ChildRuns))
	queue = append(queue, r.ChildRuns...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}
		if match(current) {
			return current, true
		}
		queue = append(queue, current.ChildRuns...)
	}
	return nil, false
}

// FindDescendantByName is shorthand for FindDescendant(ByName(name)).
func (r *Run) FindDescendantByName(name string) (*Run, bool) {
	return r.FindDescendant(ByName(name))
}

// Descendants returns all descendants in breadth-first order. The receiver
// is excluded. The slice is freshly allocated; callers may mutate it.
func (r *Run) Descendants() []*Run {
	if r == nil {
		return nil
	}
	var out []*Run
	queue := make([]*Run, 0, len(r.ChildRuns))
	queue = append(queue, r.ChildRuns...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}
		out = append(out, current)
		queue = append(queue, current.ChildRuns...)
	}
	return out
}

// CountDescendants returns the number of descendants matching the predicate.
// A nil predicate counts every descendant.
func (r *Run) CountDescendants(match RunPredicate) int {
	n := 0
	for _, d := range r.Descendants() {
		if match == nil || match(d) {
			n++
		}
	}
	return n
}
