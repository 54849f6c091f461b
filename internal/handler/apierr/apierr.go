// Package apierr maps service errors to HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/account"
	"github.com/zhouzirui/syntra/backend/internal/service/ai"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
	"github.com/zhouzirui/syntra/backend/pkg/utils"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, chatService.ErrNoUser):
		return http.StatusUnauthorized
	case errors.Is(err, chatService.ErrEmptyMessage),
		errors.Is(err, chat.ErrUnknownTier),
		errors.Is(err, account.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrUpgradeRequired),
		errors.Is(err, account.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, account.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, stream.ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, ai.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error. Unexpected errors are logged and their
// text is not exposed.
func Respond(w http.ResponseWriter, err error) {
	status := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		message = http.StatusText(status)
	}
	utils.RespondError(w, status, message)
}
