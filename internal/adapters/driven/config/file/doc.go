// Package file provides file-based implementations of driven port interfaces.
// These adapters read user-editable files from the proofscan data directory.
//
// Adapters:
//   - PromptStore: text/template prompts, one file per prompt
//   - PatternStore: TOML extraction pattern overrides
package file
