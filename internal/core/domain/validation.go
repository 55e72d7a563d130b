package domain

// FilterError lists the problems found in one filter. Nested is only set
// for merge filters and mirrors the shape of the child list.
type FilterError struct {
	Errors      []string      `json:"errors"`
	Nested      []FilterError `json:"nestedErrors,omitempty"`
	FilterIndex int           `json:"filterIndex"`
}

// ValidationReport maps tab ids to the erroring filters of that tab. Tabs
// without errors are absent.
type ValidationReport map[string][]FilterError

func (r ValidationReport) IsEmpty() bool {
	return len(r) == 0
}

// TabIDs returns the ids of the erroring tabs
func (r ValidationReport) TabIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	return ids
}

// CountErrors returns the total number of messages, nested ones included
func (r ValidationReport) CountErrors() int {
	total := 0
	for _, errs := range r {
		total += countFilterErrors(errs)
	}
	return total
}

func countFilterErrors(errs []FilterError) int {
	n := 0
	for _, e := range errs {
		n += len(e.Errors) + countFilterErrors(e.Nested)
	}
	return n
}
