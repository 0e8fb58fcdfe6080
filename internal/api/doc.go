// Package api provides the JSON REST API server for the workbench.
//
// # Architecture
//
// The API server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// The banner (GET /) and health probe (GET /api/health) bypass the
// middleware stack via a top-level mux, ensuring they remain fast and
// unmetered.
//
// # Endpoints
//
// Documents:
//   - POST   /api/upload               - multipart upload, extract text
//   - GET    /api/documents            - list documents, newest first
//   - GET    /api/documents/{id}       - document with text preview
//   - DELETE /api/documents/{id}       - delete document and its chunks
//   - GET    /api/documents/{id}/chunks - latest chunking run
//
// Pipeline:
//   - POST /api/chunk       - split a document under one strategy
//   - POST /api/embed       - embed the chunk run, report diagnostics
//   - POST /api/collections - chunk vectors into a backend collection
//
// Collections:
//   - GET    /api/collections              - list (?backend= selects one)
//   - GET    /api/collections/{name}/stats - counts, dimension, provenance
//   - DELETE /api/collections/{name}       - drop collection and its fit
//
// Retrieval and generation:
//   - POST /api/search  - ranked chunks, no generation
//   - POST /api/query   - one provider answers over retrieved context
//   - POST /api/compare - several providers answer over shared context
//   - GET  /api/history - recent query/compare invocations
//
// Discovery:
//   - GET /api/strategies - chunking strategy names
//   - GET /api/models     - embedding models and the default
//   - GET /api/backends   - vector store backends and the default
//   - GET /api/providers  - registered LLM providers and their models
//
// # Collection catalog
//
// Indexing records (backend, collection) to (model, lexical fit id,
// source document). Searches and queries resolve their embedding model
// through this catalog so the question is embedded into the same space
// the collection was built in; requests may still override the model
// explicitly on /api/search.
//
// # Error Handling
//
// Errors use a flat envelope:
//
//	{"error": "<code>", "message": "<detail>"}
//
// Domain errors map onto statuses: validation 400, not found 404,
// dimension mismatch 409, configuration 422, provider failure 502.
// Internal errors answer 500 with details only in the server log.
//
// # Security
//
// The middleware stack enforces:
//   - Per-IP rate limiting (token bucket, configurable rate and burst)
//   - CORS with explicit origin allowlist
//   - Security headers (CSP, X-Frame-Options, nosniff)
//   - Upload and request body size caps
package api
