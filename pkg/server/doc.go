// Package server is the download redirect service.
//
// Routes:
//
//	GET /                   302 to the download directory
//	GET /embulk-latest.jar  302 (or a meta-refresh page) to the latest jar
//	GET /update             run the catalog update, streaming its log
//	GET /healthz            liveness
//	GET /metrics            Prometheus metrics, when configured
//
// Only one update runs at a time per process; a request arriving while one is
// in progress gets 409 Conflict. An update keeps running when the client that
// started it disconnects.
package server
