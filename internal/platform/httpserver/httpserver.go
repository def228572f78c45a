// Package httpserver owns http.Server construction so connection timeouts
// live in one place. Per-request deadlines are the timeout middleware's job.
package httpserver

import (
	"net/http"
	"time"
)

// New returns the server for the given handler. Header reads are bounded so
// a slow client cannot hold a connection open before routing; idle keep-alive
// connections are recycled.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
