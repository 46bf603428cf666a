package service

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var reminderTracer = otel.Tracer("service/reminders")

// ReminderService manages recurring payment reminders and calculates
// upcoming occurrences.
type ReminderService struct {
	store  port.Store
	logger *zap.Logger
}

// NewReminderService creates the reminder service.
func NewReminderService(store port.Store, logger *zap.Logger) *ReminderService {
	return &ReminderService{store: store, logger: logger}
}

func (s *ReminderService) List(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.List")
	defer span.End()

	return s.store.Reminders().ListByUser(ctx, userID)
}

func (s *ReminderService) Get(ctx context.Context, userID, id int64) (*domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Get")
	defer span.End()

	r, err := s.store.Reminders().GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	if r == nil {
		return nil, &domain.ErrNotFound{Resource: "reminder", ID: strconv.FormatInt(id, 10)}
	}
	return r, nil
}

func (s *ReminderService) Create(ctx context.Context, userID int64, req *domain.ReminderRequest) (*domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Create")
	defer span.End()

	if req.Title == nil || *req.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "is required"}
	}
	if req.Amount == nil || !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if req.Recurrence == nil {
		return nil, &domain.ErrValidation{Field: "recurrence", Message: "is required"}
	}

	r := &domain.Reminder{
		UserID:     userID,
		AccountID:  req.AccountID,
		Title:      *req.Title,
		Amount:     *req.Amount,
		Recurrence: *req.Recurrence,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
		IsActive:   true,
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.UseLastDay != nil {
		r.UseLastDay = *req.UseLastDay
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}

	if err := validateRecurrence(r); err != nil {
		return nil, err
	}
	if err := s.store.Reminders().Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	s.logger.Info("reminder created",
		zap.Int64("user_id", userID),
		zap.Int64("reminder_id", r.ID),
	)
	return r, nil
}

func (s *ReminderService) Update(ctx context.Context, userID, id int64, req *domain.ReminderRequest) (*domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Update")
	defer span.End()

	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
		}
		r.Title = *req.Title
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.AccountID != nil {
		r.AccountID = req.AccountID
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
		}
		r.Amount = *req.Amount
	}
	if req.Recurrence != nil {
		r.Recurrence = *req.Recurrence
	}
	if req.DayOfWeek != nil {
		r.DayOfWeek = req.DayOfWeek
	}
	if req.DayOfMonth != nil {
		r.DayOfMonth = req.DayOfMonth
	}
	if req.UseLastDay != nil {
		r.UseLastDay = *req.UseLastDay
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}

	if err := validateRecurrence(r); err != nil {
		return nil, err
	}
	if err := s.store.Reminders().Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, userID, id int64) error {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Delete")
	defer span.End()

	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Reminders().Delete(ctx, r); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// Upcoming walks the calendar from today over the given number of days
// and collects the occurrences of the user's active reminders.
func (s *ReminderService) Upcoming(ctx context.Context, userID int64, days int) ([]domain.ReminderOccurrence, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Upcoming")
	defer span.End()

	if days < 1 || days > 365 {
		return nil, &domain.ErrValidation{Field: "days", Message: "must be between 1 and 365"}
	}

	reminders, err := s.store.Reminders().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	today := domain.Today()
	var out []domain.ReminderOccurrence
	for offset := 0; offset < days; offset++ {
		day := today.AddDays(offset)
		for _, r := range reminders {
			if r.IsActive && occursOn(&r, day) {
				out = append(out, domain.ReminderOccurrence{
					ReminderID: r.ID,
					Title:      r.Title,
					Amount:     r.Amount,
					DueDate:    day,
				})
			}
		}
	}
	return out, nil
}

// validateRecurrence enforces the per-recurrence field requirements:
// WEEKLY needs a weekday, MONTHLY needs exactly one of a day-of-month in
// [1,30] or the last-day flag.
func validateRecurrence(r *domain.Reminder) error {
	switch r.Recurrence {
	case domain.RecurrenceDaily:
		return nil
	case domain.RecurrenceWeekly:
		if r.DayOfWeek == nil || *r.DayOfWeek < 1 || *r.DayOfWeek > 7 {
			return &domain.ErrValidation{Field: "dayOfWeek", Message: "must be 1 (Monday) to 7 (Sunday) for weekly reminders"}
		}
		return nil
	case domain.RecurrenceMonthly:
		hasDay := r.DayOfMonth != nil
		if hasDay == r.UseLastDay {
			return &domain.ErrValidation{Field: "dayOfMonth", Message: "monthly reminders need either dayOfMonth or useLastDay"}
		}
		if hasDay && (*r.DayOfMonth < 1 || *r.DayOfMonth > 30) {
			return &domain.ErrValidation{Field: "dayOfMonth", Message: "must be between 1 and 30"}
		}
		return nil
	}
	return &domain.ErrValidation{Field: "recurrence", Message: "must be DAILY, WEEKLY or MONTHLY"}
}

func occursOn(r *domain.Reminder, day domain.Date) bool {
	switch r.Recurrence {
	case domain.RecurrenceDaily:
		return true
	case domain.RecurrenceWeekly:
		iso := int(day.Weekday())
		if iso == 0 {
			iso = 7
		}
		return r.DayOfWeek != nil && *r.DayOfWeek == iso
	case domain.RecurrenceMonthly:
		if r.UseLastDay {
			return day.AddDays(1).Day() == 1
		}
		return r.DayOfMonth != nil && day.Day() == *r.DayOfMonth
	}
	return false
}
