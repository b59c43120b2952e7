package normalize

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Bookkeeping columns added to every normalized table.
const (
	ColumnSource      = "source"
	ColumnProcessedAt = "processed_at"
)

// dateLayouts are the formats accepted for KindDate fields, in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// Normalize maps the raw records through the mapping and returns a flat
// dataframe, one column per rule plus the source tag and processed_at
// capture timestamp. A record that fails coercion degrades field by field
// (zero for numbers, empty for dates); it never aborts the batch. No
// deduplication and no cross-record validation happen here.
func Normalize(records []map[string]any, mapping Mapping, sourceTag string, now time.Time) dataframe.DataFrame {
	columns := make([]series.Series, 0, len(mapping)+2)

	for _, rule := range mapping {
		columns = append(columns, buildColumn(records, rule))
	}

	tags := make([]string, len(records))
	stamps := make([]string, len(records))
	stamp := now.UTC().Format(time.RFC3339)
	for i := range records {
		tags[i] = sourceTag
		stamps[i] = stamp
	}
	columns = append(columns,
		series.New(tags, series.String, ColumnSource),
		series.New(stamps, series.String, ColumnProcessedAt),
	)

	return dataframe.New(columns...)
}

// buildColumn coerces one field across all records into a series.
func buildColumn(records []map[string]any, rule Rule) series.Series {
	name := rule.Column()

	switch rule.Kind {
	case KindNumber, KindCurrency:
		values := make([]float64, len(records))
		for i, rec := range records {
			raw := lookup(rec, rule)
			if rule.Kind == KindCurrency {
				values[i] = ParseCurrency(raw)
			} else {
				values[i] = parseNumber(raw)
			}
		}
		return series.New(values, series.Float, name)

	case KindDate:
		values := make([]string, len(records))
		for i, rec := range records {
			values[i] = parseDate(lookup(rec, rule))
		}
		return series.New(values, series.String, name)

	case KindDerive:
		values := make([]string, len(records))
		for i, rec := range records {
			values[i] = stringify(rule.Derive(rec))
		}
		return series.New(values, series.String, name)

	default:
		values := make([]string, len(records))
		for i, rec := range records {
			values[i] = stringify(lookup(rec, rule))
		}
		return series.New(values, series.String, name)
	}
}

// lookup reads the rule's raw field, falling back to the output column
// name so re-normalizing already-normalized rows is a no-op rather than a
// wipe.
func lookup(rec map[string]any, rule Rule) any {
	if v, ok := rec[rule.Source]; ok {
		return v
	}
	return rec[rule.Column()]
}

// parseDate re-emits any accepted date format as ISO 2006-01-02;
// malformed input degrades to empty.
func parseDate(v any) string {
	switch value := v.(type) {
	case time.Time:
		return value.Format("2006-01-02")
	case string:
		if value == "" {
			return ""
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t.Format("2006-01-02")
			}
		}
		return ""
	default:
		return ""
	}
}

// stringify renders a raw value as a text cell.
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		// JSON numbers decode as float64; keep integers unfractioned.
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
