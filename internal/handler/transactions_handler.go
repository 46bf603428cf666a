package handler

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

const maxImageBytes = 10 << 20 // 10 MiB

// ============================================================
// Transactions — /v1/users/{userId}/transactions
// ============================================================

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txs, err := svc.List(r.Context(), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func getTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		t, err := svc.Get(r.Context(), UserIDFromContext(r.Context()), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func createTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.TransactionRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		t, err := svc.Create(r.Context(), UserIDFromContext(r.Context()), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func updateTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.TransactionRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		t, err := svc.Update(r.Context(), UserIDFromContext(r.Context()), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func deleteTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
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

func filterTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseTransactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		txs, err := svc.Filter(r.Context(), UserIDFromContext(r.Context()), f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		t, ok := domain.ParseTransactionType(v)
		if !ok {
			return f, &domain.ErrValidation{Field: "type", Message: "must be INCOME, EXPENSE or TRANSFER"}
		}
		f.Type = &t
	}
	if v := q.Get("accountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, &domain.ErrValidation{Field: "accountId", Message: "must be an integer"}
		}
		f.AccountID = &id
	}
	if v := q.Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, &domain.ErrValidation{Field: "categoryId", Message: "must be an integer"}
		}
		f.CategoryID = &id
	}
	if v := q.Get("dateFrom"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return f, &domain.ErrValidation{Field: "dateFrom", Message: "must be YYYY-MM-DD"}
		}
		f.DateFrom = &d
	}
	if v := q.Get("dateTo"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return f, &domain.ErrValidation{Field: "dateTo", Message: "must be YYYY-MM-DD"}
		}
		f.DateTo = &d
	}
	return f, nil
}

// GET /v1/users/{userId}/transactions/statistics?months=
func statisticsHandler(svc *service.StatisticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months, err := strconv.Atoi(r.URL.Query().Get("months"))
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "months", Message: "must be 1, 3, 6 or 12"}, logger)
			return
		}
		report, err := svc.Stats(r.Context(), UserIDFromContext(r.Context()), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// POST /v1/users/{userId}/transactions/photo?accountId= (multipart "file")
func uploadPhotoHandler(svc *service.OcrService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := strconv.ParseInt(r.URL.Query().Get("accountId"), 10, 64)
		if err != nil || accountID <= 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "accountId", Message: "must be a positive integer"}, logger)
			return
		}

		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "file", Message: "invalid multipart form"}, logger)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "file", Message: "is required"}, logger)
			return
		}
		defer file.Close()

		image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		taskID, err := svc.SendImage(r.Context(), UserIDFromContext(r.Context()), accountID, image)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.OcrTaskResponse{TaskID: taskID})
	}
}
