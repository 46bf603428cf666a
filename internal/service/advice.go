package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var adviceTracer = otel.Tracer("service/advice")

// AdviceService coordinates the AI advice pipeline. The outbound task id
// encodes the user id so the inbound result can be correlated without a
// lookup table.
type AdviceService struct {
	store      port.Store
	publisher  port.Publisher
	queueTasks string
	logger     *zap.Logger
}

// NewAdviceService creates the advice pipeline coordinator.
func NewAdviceService(store port.Store, publisher port.Publisher, queueTasks string, logger *zap.Logger) *AdviceService {
	return &AdviceService{
		store:      store,
		publisher:  publisher,
		queueTasks: queueTasks,
		logger:     logger,
	}
}

// EncodeTaskID packs the user id and a millisecond timestamp into an
// opaque base64url token without padding.
func EncodeTaskID(userID int64, now time.Time) string {
	raw := fmt.Sprintf("user_%d_%d", userID, now.UnixMilli())
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeTaskID recovers the user id from a task id produced by
// EncodeTaskID.
func DecodeTaskID(taskID string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(taskID, "="))
	if err != nil {
		return 0, fmt.Errorf("decode task id: %w", err)
	}
	parts := strings.Split(string(raw), "_")
	if len(parts) < 2 || parts[0] != "user" {
		return 0, fmt.Errorf("malformed task id: %q", string(raw))
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed user id in task id: %w", err)
	}
	return userID, nil
}

// RequestAdvice gathers the last three calendar months of statistics and
// publishes an advice task. Returns the task id.
func (s *AdviceService) RequestAdvice(ctx context.Context, userID int64, req *domain.AdviceRequest) (string, error) {
	ctx, span := adviceTracer.Start(ctx, "AdviceService.RequestAdvice")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if strings.TrimSpace(req.Goal) == "" {
		return "", &domain.ErrValidation{Field: "goal", Message: "is required"}
	}

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return "", &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(userID, 10)}
	}

	stats, err := s.monthlyStats(ctx, userID)
	if err != nil {
		return "", err
	}

	taskID := EncodeTaskID(userID, time.Now())
	msg := domain.AdviceTaskMessage{
		TaskID: taskID,
		Goal: domain.AdviceGoal{
			Name:       req.Goal,
			TargetDate: req.TargetDate,
		},
		MonthlyStats: stats,
	}
	if err := s.publisher.Publish(ctx, s.queueTasks, msg); err != nil {
		return "", err
	}

	s.logger.Info("advice task issued",
		zap.String("task_id", taskID),
		zap.Int64("user_id", userID),
	)
	return taskID, nil
}

// monthlyStats aggregates the current month and the two before it,
// keyed "YYYY-MM".
func (s *AdviceService) monthlyStats(ctx context.Context, userID int64) (map[string]domain.MonthlyStat, error) {
	today := domain.Today()
	firstOfMonth := domain.NewDate(today.Year(), today.Month(), 1)

	out := make(map[string]domain.MonthlyStat, 3)
	for i := 0; i < 3; i++ {
		start := firstOfMonth.AddMonths(-i)
		end := start.AddMonths(1).AddDays(-1)

		txs, err := s.store.Transactions().Filter(ctx, userID, domain.TransactionFilter{
			DateFrom: &start,
			DateTo:   &end,
		})
		if err != nil {
			return nil, fmt.Errorf("load transactions for %s: %w", start.MonthKey(), err)
		}

		expenses := partition(txs, domain.TransactionExpense)
		incomes := partition(txs, domain.TransactionIncome)
		out[start.MonthKey()] = domain.MonthlyStat{
			ExpensesByCategory: sumByCategory(expenses),
			IncomeBySource:     sumByCategory(incomes),
			AverageByCategory:  avgPerCategory(expenses),
		}
	}
	return out, nil
}

// HandleResult processes one message from the advice-results queue.
// Failed, empty, undecodable or duplicate results are logged and
// dropped; a valid result persists the advice with its ordered items in
// one database transaction.
func (s *AdviceService) HandleResult(ctx context.Context, body []byte) error {
	ctx, span := adviceTracer.Start(ctx, "AdviceService.HandleResult")
	defer span.End()

	var msg domain.AdviceResultMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Warn("advice result: malformed payload", zap.Error(err))
		return nil
	}

	if !strings.EqualFold(msg.Status, "SUCCESS") {
		s.logger.Warn("advice result: task failed",
			zap.String("task_id", msg.TaskID),
			zap.String("status", msg.Status),
		)
		return nil
	}
	if len(msg.Advice) == 0 {
		s.logger.Warn("advice result: no items", zap.String("task_id", msg.TaskID))
		return nil
	}

	userID, err := DecodeTaskID(msg.TaskID)
	if err != nil {
		s.logger.Warn("advice result: undecodable task id",
			zap.String("task_id", msg.TaskID),
			zap.Error(err),
		)
		return nil
	}

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		s.logger.Warn("advice result: unknown user",
			zap.String("task_id", msg.TaskID),
			zap.Int64("user_id", userID),
		)
		return nil
	}

	existing, err := s.store.Advices().GetByTaskID(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("get advice: %w", err)
	}
	if existing != nil {
		s.logger.Warn("advice result: duplicate task id, dropped",
			zap.String("task_id", msg.TaskID),
		)
		return nil
	}

	advice := &domain.Advice{
		UserID: userID,
		TaskID: msg.TaskID,
		Goal:   msg.Goal,
	}
	for _, item := range msg.Advice {
		advice.Items = append(advice.Items, domain.AdviceItem{
			ItemOrder:   item.ID,
			Title:       item.Title,
			Priority:    item.Priority,
			Description: item.Description,
		})
	}

	err = s.store.Transact(ctx, func(tx port.Store) error {
		return tx.Advices().Create(ctx, advice)
	})
	if err != nil {
		return fmt.Errorf("persist advice: %w", err)
	}

	s.logger.Info("advice persisted",
		zap.String("task_id", msg.TaskID),
		zap.Int64("user_id", userID),
		zap.Int("items", len(advice.Items)),
	)
	return nil
}

// Recent returns the user's advices from the last 30 days, items in
// item order.
func (s *AdviceService) Recent(ctx context.Context, userID int64) ([]domain.Advice, error) {
	ctx, span := adviceTracer.Start(ctx, "AdviceService.Recent")
	defer span.End()

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(userID, 10)}
	}

	since := time.Now().AddDate(0, 0, -30)
	return s.store.Advices().ListRecent(ctx, userID, since)
}
