// Package extractor derives metadata from file names and folder paths.
//
// Each metadata field has an ordered list of regular expressions. The
// extension is stripped from the file name, then for every field the
// list is tried against the name first and against each parent folder
// from innermost to outermost. The first pattern that yields an
// acceptable value wins; a field with no accepted match is absent.
//
// Date matches are validated by NormalizeDate and stored in the
// canonical YYYY-MM-DD form. A date whose parts are out of calendar
// range is rejected and the search continues.
//
// Extraction is pure: no I/O, no shared mutable state, and the same
// input always yields the same record.
package extractor
