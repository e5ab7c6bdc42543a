// Package hub is a minimal client for the Hugging Face Hub HTTP API.
//
// It covers exactly what pushing a dataset needs:
//   - Repo creation (POST /api/repos/create)
//   - Preupload negotiation (regular vs LFS upload mode)
//   - Git LFS object upload (batch negotiation + storage PUT)
//   - NDJSON commits (POST /api/datasets/{repo}/commit/{revision})
//   - File download via resolve URLs
//
// Errors from the Hub are surfaced unchanged as *APIError; the client
// never retries.
package hub
