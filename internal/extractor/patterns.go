package extractor

import (
	"fmt"
	"regexp"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Rule is a compiled pattern for one field.
type Rule struct {
	Field  domain.Field
	Expr   *regexp.Regexp
	Layout DateLayout
}

// value returns the capture used as the candidate value.
func (r Rule) value(match []string) string {
	if len(match) > 1 {
		return match[1]
	}
	return match[0]
}

// Ruleset holds the ordered rules for every field.
type Ruleset struct {
	rules map[domain.Field][]Rule
}

// For returns the rules of a field in priority order.
func (s *Ruleset) For(f domain.Field) []Rule {
	return s.rules[f]
}

// Specs returns the ruleset as uncompiled specs, grouped by field in
// output order.
func (s *Ruleset) Specs() []domain.PatternSpec {
	var specs []domain.PatternSpec
	for _, f := range domain.Fields {
		for _, r := range s.rules[f] {
			specs = append(specs, domain.PatternSpec{
				Field:  f,
				Expr:   r.Expr.String(),
				Layout: string(r.Layout),
			})
		}
	}
	return specs
}

// Default pattern table. Order within a field is priority.
var defaultSpecs = []domain.PatternSpec{
	// Digit runs are bounded so a date is never cut out of a longer number.
	{Field: domain.FieldDate, Expr: `(?:^|\D)(\d{4}-\d{2}-\d{2})(?:\D|$)`, Layout: string(LayoutISO)},
	{Field: domain.FieldDate, Expr: `(?:^|\D)(\d{4}_\d{2}_\d{2})(?:\D|$)`, Layout: string(LayoutISOUnderscore)},
	{Field: domain.FieldDate, Expr: `(?:^|\D)(\d{2}-\d{2}-\d{4})(?:\D|$)`, Layout: string(LayoutUS)},
	{Field: domain.FieldDate, Expr: `(?:^|\D)(\d{2}_\d{2}_\d{4})(?:\D|$)`, Layout: string(LayoutUSUnderscore)},
	{Field: domain.FieldDate, Expr: `(?:^|\D)(\d{8})(?:\D|$)`, Layout: string(LayoutCompact)},

	{Field: domain.FieldDealership, Expr: `(?i)(?:^|[-_ ])(?:dealer|client|customer)[-_ ]?([A-Za-z0-9]+)`},
	{Field: domain.FieldDealership, Expr: `(?i)^([A-Za-z]+)[-_ ](?:proof|mailer|direct|campaign|offer|promo)`},

	{Field: domain.FieldVersion, Expr: `(?i)(?:^|[-_ ])(?:proof|version)[-_ ]?v?(\d{1,3})(?:[-_ ]|$)`},
	{Field: domain.FieldVersion, Expr: `(?i)(?:^|[-_ ])v(\d{1,3})(?:[-_ ]|$)`},
	{Field: domain.FieldVersion, Expr: `(?i)(?:^|[-_ ])r(\d{1,3})(?:[-_ ]|$)`},

	{Field: domain.FieldCampaign, Expr: `(?i)(?:^|[-_ ])(?:campaign|offer|promo)[-_ ]?([A-Za-z][A-Za-z0-9]*)`},
	{Field: domain.FieldCampaign, Expr: `(?:^|[-_ ])([A-Z]{3,}\d{2,4})(?:[-_ ]|$)`},

	{Field: domain.FieldRegion, Expr: `(?i)(?:^|[-_ ])(?:state|region)[-_ ]?([A-Za-z]{2})(?:[-_ ]|$)`},
	{Field: domain.FieldRegion, Expr: `(?:^|[-_ ])([A-Z]{2})(?:[-_ ]|$)`},

	{Field: domain.FieldModel, Expr: `(?i)(?:^|[-_ ])(?:model|vehicle)[-_ ]?([A-Za-z0-9]+)`},
	{
		Field: domain.FieldModel,
		Expr:  `(?i)(?:^|[-_ ])(civic|accord|cr-?v|pilot|forester|outback|camry|corolla|rav4|f-?150|silverado)(?:[-_ ]|$)`,
	},
}

// DefaultSpecs returns a copy of the built-in pattern table.
func DefaultSpecs() []domain.PatternSpec {
	specs := make([]domain.PatternSpec, len(defaultSpecs))
	copy(specs, defaultSpecs)
	return specs
}

// DefaultRuleset compiles the built-in pattern table.
func DefaultRuleset() *Ruleset {
	rs, err := Compile(defaultSpecs)
	if err != nil {
		panic(fmt.Sprintf("extractor: default patterns: %v", err))
	}
	return rs
}

// Compile validates and compiles specs, keeping their order.
func Compile(specs []domain.PatternSpec) (*Ruleset, error) {
	rs := &Ruleset{rules: make(map[domain.Field][]Rule)}
	for i, spec := range specs {
		rule, err := compileSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, spec.Field, err)
		}
		rs.rules[rule.Field] = append(rs.rules[rule.Field], rule)
	}
	return rs, nil
}

// Merge overlays override specs onto base. A field named by any
// override loses all of its base patterns; other fields keep theirs.
func Merge(base, overrides []domain.PatternSpec) []domain.PatternSpec {
	replaced := make(map[domain.Field]bool)
	for _, o := range overrides {
		replaced[o.Field] = true
	}

	merged := make([]domain.PatternSpec, 0, len(base)+len(overrides))
	for _, b := range base {
		if !replaced[b.Field] {
			merged = append(merged, b)
		}
	}
	return append(merged, overrides...)
}

func compileSpec(spec domain.PatternSpec) (Rule, error) {
	if !spec.Field.IsValid() {
		return Rule{}, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, spec.Field)
	}
	re, err := regexp.Compile(spec.Expr)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if re.NumSubexp() > 1 {
		return Rule{}, fmt.Errorf("%w: at most one capture group allowed", domain.ErrInvalidInput)
	}

	rule := Rule{Field: spec.Field, Expr: re}
	if spec.Field == domain.FieldDate {
		layout, err := ParseDateLayout(spec.Layout)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		rule.Layout = layout
	}
	return rule, nil
}
