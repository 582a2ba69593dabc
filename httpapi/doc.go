// Package httpapi serves the relay over HTTP with a chi router.
//
// Routes:
//
//	GET  /authorize        307 redirect to the identity provider
//	GET  /oauth2callback   completes login and sets the access_token cookie
//	GET  /user             returns the identity carried by the cookie
//	POST /logout           clears the cookie (and revokes it when enabled)
//	GET  /healthz          liveness
//	GET  /metrics          Prometheus exposition, when a handler is configured
//
// Every response carries an X-Correlation-ID header. Error responses are
// JSON objects written by a single presenter.
package httpapi
