package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS allows the listed origins on every route. An origin may carry one
// wildcard, e.g. https://*.ikiraha.rw.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	options := cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:       []string{"Authorization", "Content-Type", "X-Requested-With", requestIDHeader},
		ExposedHeaders:       []string{requestIDHeader, "Retry-After"},
		MaxAge:               3600,
		OptionsSuccessStatus: http.StatusNoContent,
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		options.Logger = corsLogger{}
	}

	return cors.New(options).Handler
}

type corsLogger struct{}

func (corsLogger) Printf(format string, args ...any) {
	slog.Debug(strings.TrimPrefix(fmt.Sprintf(format, args...), "[cors] "), "component", "cors")
}
