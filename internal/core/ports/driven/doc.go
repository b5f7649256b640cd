// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a run to start:
//
//   - FolderLister: Lists the children of a folder, one page at a time (Google Drive)
//   - RowSink: Appends output rows to a tabular destination (Sheets, XLSX, Postgres)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ContentFetcher: Downloads file bytes. Without it, enrichment is metadata-only.
//   - LLMService: Language model inference. Without it, coupon info is absent.
//   - PromptStore: Prompt templates. Without it, the embedded prompt is used.
//   - PatternStore: Pattern overrides. Without it, the default table is used.
//   - SpoolStore: Local persistence for undelivered rows.
//   - RunStore: Local persistence for run summaries.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
