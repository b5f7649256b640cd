// Package google provides shared infrastructure for the Drive and Sheets
// clients:
//   - credential loading for service accounts and installed-app clients
//   - a token.json store that keeps refreshed tokens
//   - service factories with a rate-limited transport
//   - classification of Google API errors for retries
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/drive.readonly
//   - https://www.googleapis.com/auth/spreadsheets
package google
