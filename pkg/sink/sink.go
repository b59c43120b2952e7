// Package sink delivers a normalized table to the destination warehouse
// with full-replace semantics: the destination table is overwritten with
// the snapshot, never merged. The collection core must therefore hand it
// a complete, self-consistent snapshot each run.
package sink

import (
	"context"

	"github.com/go-gota/gota/dataframe"
)

// Sink replaces a destination table with a snapshot.
//
// Callers preserve the pipeline's write asymmetry on purpose: nothing is
// written when zero records were accumulated (the destination keeps its
// previous value), but a partial snapshot IS written when some pages
// succeeded before a failure and the caller decides the partial data is
// usable.
type Sink interface {
	Replace(ctx context.Context, table string, df dataframe.DataFrame) error
}
