package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIResponse — общий конверт всех JSON-ответов API.
// Незаданные поля сериализуются как null.
type APIResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
	Errors  any     `json:"errors"`
}

func successResponse(data any, message string) APIResponse {
	resp := APIResponse{Success: true, Data: data}
	if message != "" {
		resp.Message = &message
	}
	return resp
}

func errorResponse(message string, details any) APIResponse {
	return APIResponse{Success: false, Message: &message, Errors: details}
}

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}
