package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

type ErrorResponse struct {
	Error         string         `json:"error"`
	Kind          core.ErrorKind `json:"kind,omitempty"`
	CorrelationID string         `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: w.Header().Get("X-Correlation-ID"),
	}
	JSON(w, r, resp, status)
}

// Err maps a tagged core error to its HTTP status. Untagged errors present as
// a provider error: fail closed, no transport detail leaks to the caller.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	kind := core.KindProviderError
	msg := short
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		kind = coreErr.Kind
		msg = short + ": " + coreErr.Msg
	}

	resp := ErrorResponse{
		Error:         msg,
		Kind:          kind,
		CorrelationID: w.Header().Get("X-Correlation-ID"),
	}
	JSON(w, r, resp, statusFor(kind))
}

func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindInvalidCredential:
		return http.StatusUnauthorized
	case core.KindNotAuthorized:
		return http.StatusForbidden
	case core.KindMissingArgument, core.KindUnsupportedProduct:
		return http.StatusBadRequest
	case core.KindNotFound, core.KindTaskNotFound, core.KindContainerNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
