package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "wealth/pkg/domain-errors"
	"wealth/pkg/requestcontext"
)

// Validatable is implemented by request types that check their own fields.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that trim or canonicalize fields before validation.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes then validates req.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the JSON body into T and runs PrepareRequest on it.
// On failure it writes the error response and returns false.
//
//	req, ok := httputil.DecodeAndPrepare[startRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if err := PrepareRequest(&req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}

	return &req, true
}
