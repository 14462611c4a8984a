// Package api exposes the completion service over HTTP.
//
// Routes:
//
//	POST /api/llm/send-message   {"Prompt", "Provider", "Model"} -> {"response": "..."}
//	GET  /api/llm/info           status, allowed providers and models
//	GET  /healthz                liveness
//
// Both completion routes also answer in any letter case, and send-message
// also answers as SendMessage, so /api/Llm/SendMessage and /api/Llm/Info
// keep working.
//
// Failed completions map to 503 (provider unreachable), 504 (timeout) or
// 500. Validation errors are 400. Every error body is
// {"error": "...", "details": "..."}.
package api
