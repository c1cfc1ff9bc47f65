package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ikiraha-api/internal/middleware"
	"ikiraha-api/internal/model"
	"ikiraha-api/internal/service"
	"ikiraha-api/pkg/apierror"
)

const maxBodyBytes = 1 << 20

// requestContext carries the caller IP through to service events.
func requestContext(r *http.Request) context.Context {
	return service.WithClientIP(r.Context(), middleware.ClientIP(r))
}

// decodeJSON reads an optional JSON body; an empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierror.New("PAYLOAD_TOO_LARGE", "Request body too large", "", http.StatusRequestEntityTooLarge)
	}
	return apierror.BadRequest("Invalid JSON body", "")
}

func currentUser(r *http.Request) (model.TokenValidation, error) {
	validation, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		return model.TokenValidation{}, model.ErrUnauthorized
	}
	return validation, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("Invalid "+name, raw)
	}
	return id, nil
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
