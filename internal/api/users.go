package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"modelserve/internal/storage"
)

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.Username == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "username and email are required"})
		return
	}

	id := uuid.New()
	user := storage.User{
		ID:       hex.EncodeToString(id[:]),
		Username: req.Username,
		Email:    req.Email,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to create user")
		writeJSON(w, http.StatusConflict, map[string]string{"message": "user could not be created"})
		return
	}

	log.Debug().Str("user", user.ID).Str("email", user.Email).Msg("created user")
	writeJSON(w, http.StatusCreated, user)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user does not exist"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) modifyUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"id": id, "message": "user does not exist"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if err := h.store.UpdateUser(r.Context(), *user); err != nil {
		log.Error().Err(err).Str("user", id).Msg("failed to update user")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "user could not be updated"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "user could not be deleted"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "user deleted successfully"})
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, users)
}
