package shared

// BatchItemError pairs an entity id with the error it produced.
type BatchItemError struct {
	ID  int64
	Err error
}

// BatchResult reports the outcome of a bulk operation item by item. Partial
// completion is observable: callers must treat any Failed entries as overall
// failure and retry after inspecting them.
type BatchResult struct {
	Succeeded []int64
	Failed    []BatchItemError
}

// OK reports whether every item succeeded.
func (r BatchResult) OK() bool {
	return len(r.Failed) == 0
}
