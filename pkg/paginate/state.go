package paginate

// State identifies where the driver's state machine is, or how it ended.
type State string

const (
	// StateFetching and StateEvaluating are the two transient states; they
	// only appear in logs, never in an Outcome.
	StateFetching   State = "fetching"
	StateEvaluating State = "evaluating"

	// DoneExhausted is the normal end of the paginated sequence.
	DoneExhausted State = "done_exhausted"

	// DoneSafetyCap means the page-count ceiling stopped the run. Partial
	// results are returned as a success; the cap is a runaway guard, not
	// an error.
	DoneSafetyCap State = "done_safety_cap"

	// DoneError means a page failed with something other than an
	// end-of-data signal. The run aborts with partial records.
	DoneError State = "done_error"

	// DoneQuota means the quota counter refused the run before any
	// network call was made.
	DoneQuota State = "done_quota"
)

// collectionState is the driver's running state, local to one collection.
type collectionState struct {
	page         int
	records      []map[string]any
	emptyStreak  int
	pagesFetched int
}

// Outcome is the result of one collection run.
type Outcome struct {
	// Records holds every accumulated raw record, in page order.
	// Duplicates are possible and not deduplicated here; that is a
	// normalizer concern when it matters.
	Records []map[string]any

	// State is the terminal state the run ended in.
	State State

	// PagesFetched counts fetch attempts, including the failed one on
	// DoneError.
	PagesFetched int

	// Err is set on DoneError and DoneQuota. On DoneError the accumulated
	// records are still present; the caller decides whether partial data
	// is usable.
	Err error
}

// Success reports whether the run terminated normally. DoneSafetyCap
// counts as success: the partial snapshot is complete up to the cap.
func (o Outcome) Success() bool {
	return o.State == DoneExhausted || o.State == DoneSafetyCap
}

// Failed reports the inverse of Success.
func (o Outcome) Failed() bool {
	return !o.Success()
}
