package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var ocrTracer = otel.Tracer("service/ocr")

// OcrService coordinates the receipt-recognition pipeline: it issues
// tasks to the OCR worker and materialises recognised items as ledger
// transactions when results arrive.
type OcrService struct {
	store      port.Store
	publisher  port.Publisher
	ledger     *LedgerService
	queueImage string
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewOcrService creates the OCR pipeline coordinator.
func NewOcrService(store port.Store, publisher port.Publisher, ledger *LedgerService, queueImage string, metrics *observability.Metrics, logger *zap.Logger) *OcrService {
	return &OcrService{
		store:      store,
		publisher:  publisher,
		ledger:     ledger,
		queueImage: queueImage,
		metrics:    metrics,
		logger:     logger,
	}
}

// SendImage accepts a receipt image for recognition. It persists a
// correlation row keyed by a fresh UUID, then publishes the image with
// the user's visible category names. A publish failure propagates as an
// infrastructure error; the orphaned correlation row is harmless.
func (s *OcrService) SendImage(ctx context.Context, userID, accountID int64, image []byte) (string, error) {
	ctx, span := ocrTracer.Start(ctx, "OcrService.SendImage")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	account, err := s.store.Accounts().GetByIDAndUser(ctx, accountID, userID)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return "", &domain.ErrNotFound{Resource: "account", ID: strconv.FormatInt(accountID, 10)}
	}

	categories, err := s.store.Categories().ListVisible(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	task := &domain.OcrTask{
		TaskID:    uuid.New(),
		UserID:    userID,
		AccountID: accountID,
	}
	if err := s.store.OcrTasks().Create(ctx, task); err != nil {
		return "", fmt.Errorf("create ocr task: %w", err)
	}

	msg := domain.OcrTaskMessage{
		TaskID:     task.TaskID.String(),
		ImageB64:   base64.StdEncoding.EncodeToString(image),
		Categories: names,
	}
	if err := s.publisher.Publish(ctx, s.queueImage, msg); err != nil {
		return "", err
	}

	s.logger.Info("ocr task issued",
		zap.String("task_id", task.TaskID.String()),
		zap.Int64("user_id", userID),
		zap.Int64("account_id", accountID),
	)
	return task.TaskID.String(), nil
}

// HandleResult processes one message from the parsed queue. Malformed or
// unmatched messages are logged and dropped; a failure of one item never
// aborts the rest of the batch. On successful ingest the correlation row
// is deleted, so a redelivered result is a no-op.
func (s *OcrService) HandleResult(ctx context.Context, body []byte) error {
	ctx, span := ocrTracer.Start(ctx, "OcrService.HandleResult")
	defer span.End()

	var msg domain.OcrResultMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Warn("ocr result: malformed payload", zap.Error(err))
		return nil
	}

	if !strings.EqualFold(msg.Status, "SUCCESS") {
		s.logger.Warn("ocr result: task failed",
			zap.String("task_id", msg.TaskID),
			zap.String("status", msg.Status),
			zap.String("error", msg.Error),
		)
		return nil
	}
	if msg.Data == nil || len(msg.Data.Items) == 0 {
		s.logger.Warn("ocr result: no items", zap.String("task_id", msg.TaskID))
		return nil
	}

	taskID, err := uuid.Parse(msg.TaskID)
	if err != nil {
		s.logger.Warn("ocr result: invalid task id", zap.String("task_id", msg.TaskID))
		return nil
	}
	task, err := s.store.OcrTasks().Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get ocr task: %w", err)
	}
	if task == nil {
		s.logger.Warn("ocr result: unknown task", zap.String("task_id", msg.TaskID))
		return nil
	}

	index, err := s.categoryIndex(ctx, task.UserID)
	if err != nil {
		return err
	}

	processed, skipped := 0, 0
	for _, item := range msg.Data.Items {
		if err := s.ingestItem(ctx, task, item, index); err != nil {
			skipped++
			s.metrics.IncrOcrItem("skipped")
			s.logger.Warn("ocr result: item skipped",
				zap.String("task_id", msg.TaskID),
				zap.String("item", item.Name),
				zap.Error(err),
			)
		} else {
			processed++
			s.metrics.IncrOcrItem("processed")
		}
	}

	if err := s.store.OcrTasks().Delete(ctx, taskID); err != nil {
		s.logger.Error("ocr result: delete task failed",
			zap.String("task_id", msg.TaskID),
			zap.Error(err),
		)
	}

	s.logger.Info("ocr result ingested",
		zap.String("task_id", msg.TaskID),
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
	)
	return nil
}

// categoryIndex maps lowercase visible category names to ids; when names
// collide the first one wins.
func (s *OcrService) categoryIndex(ctx context.Context, userID int64) (map[string]int64, error) {
	categories, err := s.store.Categories().ListVisible(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	index := make(map[string]int64, len(categories))
	for _, c := range categories {
		key := strings.ToLower(c.Name)
		if _, ok := index[key]; !ok {
			index[key] = c.ID
		}
	}
	return index, nil
}

func (s *OcrService) ingestItem(ctx context.Context, task *domain.OcrTask, item domain.OcrResultItem, index map[string]int64) error {
	txType, ok := domain.ParseTransactionType(item.TransactionType)
	if !ok {
		txType = domain.TransactionExpense
	}
	amount := item.Price.Abs()
	date := domain.Today()
	if item.TransactionDate != nil {
		date = *item.TransactionDate
	}
	description := item.Description
	if description == "" {
		description = item.Name
	}

	req := &domain.TransactionRequest{
		Type:        &txType,
		AccountID:   &task.AccountID,
		Amount:      &amount,
		Description: &description,
		Date:        &date,
	}
	if item.Category != "" {
		if id, ok := index[strings.ToLower(item.Category)]; ok {
			req.CategoryID = &id
		}
	}

	_, err := s.ledger.Create(ctx, task.UserID, req)
	return err
}
