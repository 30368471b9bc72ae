package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/UsersApp/internal/apperror"
	applog "github.com/GoArmGo/UsersApp/internal/logger"
)

// MsgInternalError — сообщение клиенту для любой неклассифицированной ошибки
const MsgInternalError = "An error occurred while processing your request."

// apiFunc — обработчик, возвращающий ошибку вместо записи ответа об ошибке
type apiFunc func(w http.ResponseWriter, r *http.Request) error

// Handle превращает apiFunc в http.HandlerFunc, ошибки уходят в WriteError
func Handle(logger *slog.Logger, fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			WriteError(w, r, err, logger)
		}
	}
}

// WriteError — единственное место, где ошибка становится HTTP-ответом.
// *apperror.Error отображается по Kind, всё остальное даёт 500 без подробностей.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	log := applog.FromContext(r.Context(), logger)

	status := http.StatusInternalServerError
	message := MsgInternalError
	var details any

	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
		status = statusFor(appErr.Kind)
		message = appErr.Message
		details = appErr.Details
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	respondWithJSON(w, status, errorResponse(message, details), logger)
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindBadRequest:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
