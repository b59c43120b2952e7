// Package normalize turns the raw accumulated records of one source into
// a flat tabular shape ready for the sink. The per-source field mappings
// are data, not code: adding a source means adding a mapping table, not
// another copy-pasted function.
package normalize

// Kind selects the coercion applied to a mapped field.
type Kind string

const (
	// KindString passes the value through as text.
	KindString Kind = "string"

	// KindNumber parses a plain numeric value; malformed coerces to 0.
	KindNumber Kind = "number"

	// KindCurrency parses Brazilian-format money strings ("R$ 1.234,56",
	// "1.234.567,89", "1234.56"); malformed coerces to 0.
	KindCurrency Kind = "currency"

	// KindDate parses a date and re-emits it as ISO "2006-01-02";
	// malformed degrades to empty, never aborting the batch.
	KindDate Kind = "date"

	// KindDerive computes the value from the whole record.
	KindDerive Kind = "derive"
)

// Rule maps one raw field to one output column.
type Rule struct {
	// Source is the raw field name in the upstream record.
	Source string

	// Rename is the output column name; empty keeps Source.
	Rename string

	// Kind selects the coercion.
	Kind Kind

	// Derive computes the value for KindDerive rules. It receives the raw
	// record and returns the column value.
	Derive func(record map[string]any) any
}

// Column returns the output column name for the rule.
func (r Rule) Column() string {
	if r.Rename != "" {
		return r.Rename
	}
	return r.Source
}

// Mapping is the ordered set of rules for one source. Order defines the
// output column order.
type Mapping []Rule
