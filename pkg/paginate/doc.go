// Package paginate implements the sequential pagination driver shared by
// every source collector.
//
// Pages are fetched strictly in increasing order, one at a time, because
// the stop conditions depend on the immediately preceding page's fill
// level. The driver stops on the first of:
//
//   - an explicit total-page count reported by the source envelope
//   - a streak of consecutive empty pages (under-filled pages count
//     toward the streak, or stop immediately when the source is
//     configured that way)
//   - a 404/410 from the source, reclassified as normal exhaustion
//   - the safety cap on page count (a runaway-loop guard; partial
//     results are still a success)
//   - any other transport failure, which aborts the run with whatever
//     was accumulated (one failed page is fatal; there is no per-page
//     retry, matching the production pipeline on purpose)
//
// Example usage:
//
//	driver := paginate.NewDriver(cfg, fetch.New(cfg), gate, counter)
//	outcome := driver.CollectAll(ctx, map[string]string{"data_inicio": "2025-01-01"})
//	if outcome.Failed() {
//	    // partial records may still be present
//	}
package paginate
