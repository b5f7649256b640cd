package domain

// PatternSpec is an uncompiled extraction pattern as loaded from
// configuration. Order within a field's list is its priority.
type PatternSpec struct {
	// Field is the metadata field the pattern fills.
	Field Field `toml:"field"`

	// Expr is a regular expression. The first capture group is the
	// value; without a group the whole match is used.
	Expr string `toml:"expr"`

	// Layout names the surface date format matched by Expr.
	// Required for date patterns, ignored otherwise.
	Layout string `toml:"layout,omitempty"`
}
