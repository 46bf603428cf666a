package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

// ============================================================
// Profile — /v1/users/{userId}/profile
// ============================================================

func getProfileHandler(svc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Get(r.Context(), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func updateProfileHandler(svc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ProfileRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		u, err := svc.UpdateProfile(r.Context(), UserIDFromContext(r.Context()), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
