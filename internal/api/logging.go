package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loggerWithRequest returns the global logger tagged with request identifiers.
func loggerWithRequest(r *http.Request) *zerolog.Logger {
	if r == nil {
		return &log.Logger
	}

	logger := log.With().
		Str("request_id", GetRequestID(r)).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Logger()
	return &logger
}
