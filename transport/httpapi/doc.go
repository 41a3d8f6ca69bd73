// Package httpapi carries gateway messages over HTTP.
//
// One binary request message is POSTed to /v1/request as the raw body; the
// reply body is the encoded response message. Gateway denials are ordinary
// 200 replies with Successful=false; HTTP status codes only describe the
// transport (oversized body, rate limit, wrong method).
//
// /healthz reports store reachability and /metrics serves the Prometheus
// exposition when a metrics handler is configured.
package httpapi
