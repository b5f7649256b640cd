// Package domain defines the core business entities for proofscan.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - FileDescriptor: A file found while walking a folder tree
//   - MetadataRecord: Fields derived from a file's name and path
//   - CouponInfo: Structured offers extracted by a language model
//   - OutputRow: The flattened record written to a sink
//   - RunSummary: Counters reported when a run completes
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
