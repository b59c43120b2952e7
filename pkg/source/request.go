package source

// PageRequest describes one page fetch: a 1-based page number plus
// arbitrary filter parameters (date ranges, entity IDs, free-form query
// params). Constructed fresh per call; never mutated after construction.
type PageRequest struct {
	Page    int
	Filters map[string]string
}

// NewPageRequest builds a request for the given page, copying the filter
// map so later mutation by the caller cannot leak into an in-flight fetch.
func NewPageRequest(page int, filters map[string]string) PageRequest {
	copied := make(map[string]string, len(filters))
	for k, v := range filters {
		copied[k] = v
	}
	return PageRequest{Page: page, Filters: copied}
}
