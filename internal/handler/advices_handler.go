package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

// ============================================================
// Advices — /v1/users/{userId}/advices
// ============================================================

type adviceTaskResponse struct {
	TaskID string `json:"taskId"`
}

func requestAdviceHandler(svc *service.AdviceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.AdviceRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		taskID, err := svc.RequestAdvice(r.Context(), UserIDFromContext(r.Context()), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, adviceTaskResponse{TaskID: taskID})
	}
}

func recentAdvicesHandler(svc *service.AdviceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		advices, err := svc.Recent(r.Context(), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, advices)
	}
}
