package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoArmGo/UsersApp/internal/apperror"
	"github.com/GoArmGo/UsersApp/internal/domain"
	"github.com/GoArmGo/UsersApp/internal/usecase"
	"github.com/GoArmGo/UsersApp/internal/validation"
	"github.com/go-chi/chi/v5"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgInvalidUserID = "Invalid user id"
	msgUserCreated   = "User created successfully"
	msgUserUpdated   = "User updated successfully"
	msgUserDeleted   = "User deleted successfully"

	maxBodyBytes = 1 << 20
)

// UserHandler — обработчик HTTP-запросов для работы с пользователями.
// Ошибки не пишет сам, а возвращает в WriteError.
type UserHandler struct {
	userUseCase usecase.UserUseCase
	validator   *validation.Validator
	logger      *slog.Logger
}

// NewUserHandler создаёт новый экземпляр UserHandler.
func NewUserHandler(uc usecase.UserUseCase, validator *validation.Validator, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userUseCase: uc,
		validator:   validator,
		logger:      logger,
	}
}

// ListUsers — GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.userUseCase.ListUsers(r.Context())
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusOK, successResponse(users, ""), h.logger)
	return nil
}

// GetUser — GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}

	user, err := h.userUseCase.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	if user == nil {
		return userNotFound(id)
	}

	respondWithJSON(w, http.StatusOK, successResponse(user, ""), h.logger)
	return nil
}

// CreateUser — POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) error {
	var payload domain.CreateUserPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		return err
	}
	if err := h.validator.ValidateCreate(payload); err != nil {
		return err
	}

	user, err := h.userUseCase.CreateUser(r.Context(), payload)
	if err != nil {
		return err
	}

	w.Header().Set("Location", fmt.Sprintf("/api/users/%d", user.ID))
	respondWithJSON(w, http.StatusCreated, successResponse(user, msgUserCreated), h.logger)
	return nil
}

// UpdateUser — PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}

	var payload domain.UpdateUserPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		return err
	}
	if err := h.validator.ValidateUpdate(payload); err != nil {
		return err
	}

	user, err := h.userUseCase.UpdateUser(r.Context(), id, payload)
	if err != nil {
		return err
	}
	if user == nil {
		return userNotFound(id)
	}

	respondWithJSON(w, http.StatusOK, successResponse(user, msgUserUpdated), h.logger)
	return nil
}

// DeleteUser — DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}

	deleted, err := h.userUseCase.DeleteUser(r.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return userNotFound(id)
	}

	respondWithJSON(w, http.StatusOK, successResponse(true, msgUserDeleted), h.logger)
	return nil
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperror.BadRequest(msgInvalidUserID, nil)
	}
	return id, nil
}

func userNotFound(id int64) error {
	return apperror.NotFound(fmt.Sprintf("User with ID %d not found", id))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		return &apperror.Error{Kind: apperror.KindBadRequest, Message: msgInvalidBody, Err: err}
	}
	return nil
}
