package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

// ============================================================
// Reminders — /v1/users/{userId}/reminders
// ============================================================

func listRemindersHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reminders, err := svc.List(r.Context(), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, reminders)
	}
}

func getReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rem, err := svc.Get(r.Context(), UserIDFromContext(r.Context()), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rem)
	}
}

func createReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ReminderRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rem, err := svc.Create(r.Context(), UserIDFromContext(r.Context()), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rem)
	}
}

func updateReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.ReminderRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rem, err := svc.Update(r.Context(), UserIDFromContext(r.Context()), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rem)
	}
}

func deleteReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Delete(r.Context(), UserIDFromContext(r.Context()), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /v1/users/{userId}/reminders/upcoming?days=
func upcomingRemindersHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{Field: "days", Message: "must be an integer"}, logger)
				return
			}
			days = parsed
		}
		occurrences, err := svc.Upcoming(r.Context(), UserIDFromContext(r.Context()), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, occurrences)
	}
}
