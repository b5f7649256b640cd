package extractor

import (
	"path"
	"strings"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Extractor maps file names and folder paths to metadata records.
// It is safe for concurrent use.
type Extractor struct {
	rules *Ruleset
}

// New creates an extractor. A nil ruleset uses the default table.
func New(rules *Ruleset) *Extractor {
	if rules == nil {
		rules = DefaultRuleset()
	}
	return &Extractor{rules: rules}
}

// Rules returns the ruleset in use.
func (e *Extractor) Rules() *Ruleset {
	return e.rules
}

// Extract derives a metadata record from a file name and the folder
// names leading to it, outermost first.
func (e *Extractor) Extract(name string, parentPath []string) domain.MetadataRecord {
	targets := make([]string, 0, len(parentPath)+1)
	targets = append(targets, StripExtension(name))
	for i := len(parentPath) - 1; i >= 0; i-- {
		targets = append(targets, parentPath[i])
	}

	values := make(map[domain.Field]string, len(domain.Fields))
	for _, f := range domain.Fields {
		if v, ok := e.extractField(f, targets); ok {
			values[f] = v
		}
	}
	return domain.NewMetadataRecord(values)
}

func (e *Extractor) extractField(f domain.Field, targets []string) (string, bool) {
	rules := e.rules.For(f)
	for _, target := range targets {
		for _, rule := range rules {
			if v, ok := matchRule(rule, target); ok {
				return v, true
			}
		}
	}
	return "", false
}

// matchRule returns the first acceptable candidate of rule in target.
// Date candidates that fail calendar validation are skipped in favour
// of later occurrences.
func matchRule(rule Rule, target string) (string, bool) {
	if rule.Field != domain.FieldDate {
		m := rule.Expr.FindStringSubmatch(target)
		if m == nil {
			return "", false
		}
		v := rule.value(m)
		return v, v != ""
	}

	// Resume right after a rejected candidate so its trailing separator
	// can still bound the next one.
	for offset := 0; offset < len(target); {
		loc := rule.Expr.FindStringSubmatchIndex(target[offset:])
		if loc == nil {
			break
		}
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		if end == 0 {
			break
		}
		if v, ok := NormalizeDate(target[offset+start:offset+end], rule.Layout); ok {
			return v, true
		}
		offset += end
	}
	return "", false
}

// StripExtension removes the final extension from a file name.
// Dotfiles keep their name.
func StripExtension(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
