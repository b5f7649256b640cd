package app

import (
	"fmt"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// InitPatterns writes the effective pattern table to the patterns file
// so it can be edited. An existing file is kept unless force is set.
func (a *App) InitPatterns(force bool) (string, error) {
	if a.patterns.Exists() && !force {
		return "", fmt.Errorf("%w: %s already exists", domain.ErrInvalidInput, a.patterns.Location())
	}
	if err := a.patterns.Save(a.metadata.Patterns()); err != nil {
		return "", err
	}
	a.log.Info().Str("path", a.patterns.Location()).Msg("Pattern table written")
	return a.patterns.Location(), nil
}
