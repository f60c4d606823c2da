package quote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/printquote/internal/common"
)

// Failure kinds. Every error returned by Service.Quote is a *common.AppError that
// wraps exactly one of these, so callers can branch with errors.Is.
var (
	ErrInvalidInput        = errors.New("quote: invalid input")
	ErrUnreadableModel     = errors.New("quote: unreadable model")
	ErrModelTooLarge       = errors.New("quote: model too large")
	ErrUpstreamUnavailable = errors.New("quote: upstream unavailable")
	ErrConfiguration       = errors.New("quote: configuration error")
	ErrInternal            = errors.New("quote: internal error")
)

type kind struct {
	code   string
	status int
}

var kinds = map[error]kind{
	ErrInvalidInput:        {common.CodeInvalidInput, http.StatusBadRequest},
	ErrUnreadableModel:     {common.CodeUnreadableModel, http.StatusUnprocessableEntity},
	ErrModelTooLarge:       {common.CodeModelTooLarge, http.StatusUnprocessableEntity},
	ErrUpstreamUnavailable: {common.CodeUpstreamUnavailable, http.StatusServiceUnavailable},
	ErrConfiguration:       {common.CodeConfiguration, http.StatusInternalServerError},
	ErrInternal:            {common.CodeInternal, http.StatusInternalServerError},
}

func fail(sentinel error, message string, cause error) *common.AppError {
	k := kinds[sentinel]
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return common.NewAppError(k.code, message, k.status, err)
}

// resultLabel converts an error into the metric label used for quote outcomes.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := common.AsAppError(err); ok && appErr.Code != "" {
		return strings.ToLower(appErr.Code)
	}
	return "internal"
}
