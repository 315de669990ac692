package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claycutter/internal/model"
	"claycutter/internal/mw"
	"claycutter/internal/service"
)

// UserStore is the slice of UserService the admin endpoints need.
type UserStore interface {
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id string, in service.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id, actorID string) error
}

func ListUsersHandler(userSvc UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if users == nil {
			users = []model.User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func UpdateUserHandler(userSvc UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.UserUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		user, err := userSvc.Update(r.Context(), chi.URLParam(r, "userID"), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func DeleteUserHandler(userSvc UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := userSvc.Delete(r.Context(), chi.URLParam(r, "userID"), actor.ID); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
	}
}
