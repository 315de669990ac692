package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"claycutter/internal/model"
	"claycutter/internal/service"
)

type Registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
}

func RegisterHandler(authSvc Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		user, err := authSvc.Register(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}
