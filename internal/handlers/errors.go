package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sevasangh/portal-api/internal/core"
)

// httpError maps the core error taxonomy onto HTTP status errors at
// the API boundary. Anything unrecognized is a 500.
func httpError(err error) error {
	var (
		validation *core.ValidationError
		ineligible *core.IneligibleError
		capacity   *core.CapacityExceededError
		invalid    *core.InvalidStateTransitionError
		signature  *core.SignatureInvalidError
		mismatch   *core.AmountMismatchError
		notFound   *core.NotFoundError
		conflict   *core.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &ineligible):
		return huma.Error403Forbidden(err.Error())
	case errors.As(err, &capacity):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &invalid):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &signature):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &mismatch):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &notFound):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &conflict):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError("internal error: " + err.Error())
	}
}
