// Package debugserver serves the diagnostic HTTP endpoints of a running
// Delphi process:
//
//	GET  /healthz               liveness
//	GET  /metrics               Prometheus metrics
//	GET  /surfaces              open surfaces and manager stats (JSON)
//	GET  /surfaces/{id}         committed tree as page markup (?format=json for info)
//	POST /surfaces/{id}/dump    write a debug dump, respond with its location
//
// The server is meant for a loopback address. Cross-origin requests are
// refused unless AllowedOrigins is set.
package debugserver
