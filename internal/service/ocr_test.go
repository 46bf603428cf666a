package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
)

func testOcr(store *memStore, pub *mockPublisher) *OcrService {
	return NewOcrService(store, pub, testLedger(store), "ocr-images", observability.NewMetrics(), zap.NewNop())
}

func ocrResultBody(t *testing.T, msg domain.OcrResultMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestSendImagePublishesTask(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "1000.00")
	store.addCategory(30, nil, "Food")
	store.addCategory(31, ptr(int64(1)), "Hobby")
	pub := &mockPublisher{}
	svc := testOcr(store, pub)

	taskID, err := svc.SendImage(context.Background(), 1, 10, []byte("fake-image"))
	if err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	parsed, err := uuid.Parse(taskID)
	if err != nil {
		t.Fatalf("task id %q is not a UUID: %v", taskID, err)
	}
	if store.ocrTasks[parsed] == nil {
		t.Error("correlation row was not persisted")
	}

	if len(pub.messages) != 1 || pub.messages[0].queue != "ocr-images" {
		t.Fatalf("published %+v, want one message on ocr-images", pub.messages)
	}
	msg := pub.messages[0].body.(domain.OcrTaskMessage)
	if msg.TaskID != taskID {
		t.Errorf("message task id = %q, want %q", msg.TaskID, taskID)
	}
	if msg.ImageB64 != "ZmFrZS1pbWFnZQ==" {
		t.Errorf("image not base64 encoded: %q", msg.ImageB64)
	}
	if len(msg.Categories) != 2 {
		t.Errorf("categories = %v, want both visible names", msg.Categories)
	}
}

func TestSendImageForeignAccount(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addUser(2)
	store.addAccount(10, 2, "1000.00")
	pub := &mockPublisher{}
	svc := testOcr(store, pub)

	_, err := svc.SendImage(context.Background(), 1, 10, []byte("img"))
	var notFoundErr *domain.ErrNotFound
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(pub.messages) != 0 {
		t.Error("nothing may be published for a rejected image")
	}
}

func TestSendImagePublishFailure(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "1000.00")
	pub := &mockPublisher{err: &domain.ErrCircuitOpen{Service: "rabbitmq"}}
	svc := testOcr(store, pub)

	_, err := svc.SendImage(context.Background(), 1, 10, []byte("img"))
	var circuitErr *domain.ErrCircuitOpen
	if !errors.As(err, &circuitErr) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestHandleResultIngestsItems(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "1000.00")
	store.addCategory(30, nil, "Products")
	svc := testOcr(store, &mockPublisher{})

	taskID := uuid.New()
	store.ocrTasks[taskID] = &domain.OcrTask{TaskID: taskID, UserID: 1, AccountID: 10}

	body := ocrResultBody(t, domain.OcrResultMessage{
		TaskID: taskID.String(),
		Status: "SUCCESS",
		Data: &domain.OcrResultData{Items: []domain.OcrResultItem{
			{
				Name:            "Milk",
				Price:           money("95.00"),
				TransactionDate: ptr(date("2025-10-12")),
				Category:        "products",
			},
		}},
	})
	if err := svc.HandleResult(context.Background(), body); err != nil {
		t.Fatalf("HandleResult: %v", err)
	}

	if len(store.transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(store.transactions))
	}
	var tx *domain.Transaction
	for _, v := range store.transactions {
		tx = v
	}
	if tx.Type != domain.TransactionExpense {
		t.Errorf("type = %s, want EXPENSE", tx.Type)
	}
	if !tx.Amount.Equal(money("95.00")) {
		t.Errorf("amount = %s, want 95.00", tx.Amount)
	}
	if !tx.Date.Equal(date("2025-10-12").Time) {
		t.Errorf("date = %s, want 2025-10-12", tx.Date)
	}
	if tx.Description != "Milk" {
		t.Errorf("description = %q, want item name fallback", tx.Description)
	}
	if tx.CategoryID == nil || *tx.CategoryID != 30 {
		t.Errorf("categoryID = %v, want case-insensitive match to 30", tx.CategoryID)
	}
	assertBalance(t, store, 10, "905.00")

	if _, ok := store.ocrTasks[taskID]; ok {
		t.Error("correlation row must be deleted after ingest")
	}
}

func TestHandleResultRedeliveryIsNoop(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "1000.00")
	svc := testOcr(store, &mockPublisher{})

	taskID := uuid.New()
	store.ocrTasks[taskID] = &domain.OcrTask{TaskID: taskID, UserID: 1, AccountID: 10}

	body := ocrResultBody(t, domain.OcrResultMessage{
		TaskID: taskID.String(),
		Status: "SUCCESS",
		Data: &domain.OcrResultData{Items: []domain.OcrResultItem{
			{Name: "Milk", Price: money("95.00")},
		}},
	})
	if err := svc.HandleResult(context.Background(), body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleResult(context.Background(), body); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if len(store.transactions) != 1 {
		t.Errorf("got %d transactions, want 1 after redelivery", len(store.transactions))
	}
	assertBalance(t, store, 10, "905.00")
}

func TestHandleResultDropsNonSuccess(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "1000.00")
	svc := testOcr(store, &mockPublisher{})

	taskID := uuid.New()
	store.ocrTasks[taskID] = &domain.OcrTask{TaskID: taskID, UserID: 1, AccountID: 10}

	body := ocrResultBody(t, domain.OcrResultMessage{
		TaskID: taskID.String(),
		Status: "FAILED",
		Error:  "unreadable image",
	})
	if err := svc.HandleResult(context.Background(), body); err != nil {
		t.Fatalf("HandleResult: %v", err)
	}
	if len(store.transactions) != 0 {
		t.Error("failed result must not create transactions")
	}
	if _, ok := store.ocrTasks[taskID]; !ok {
		t.Error("failed result must keep the correlation row")
	}
}

func TestHandleResultDropsBadInput(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	svc := testOcr(store, &mockPublisher{})

	item := domain.OcrResultItem{Name: "Milk", Price: money("1.00")}
	tests := []struct {
		name string
		body []byte
	}{
		{"malformed json", []byte("{not json")},
		{"empty items", ocrResultBody(t, domain.OcrResultMessage{
			TaskID: uuid.NewString(), Status: "SUCCESS", Data: &domain.OcrResultData{},
		})},
		{"invalid task id", ocrResultBody(t, domain.OcrResultMessage{
			TaskID: "not-a-uuid", Status: "SUCCESS",
			Data: &domain.OcrResultData{Items: []domain.OcrResultItem{item}},
		})},
		{"unknown task", ocrResultBody(t, domain.OcrResultMessage{
			TaskID: uuid.NewString(), Status: "SUCCESS",
			Data: &domain.OcrResultData{Items: []domain.OcrResultItem{item}},
		})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.HandleResult(context.Background(), tc.body); err != nil {
				t.Errorf("HandleResult: %v, want drop without error", err)
			}
		})
	}
	if len(store.transactions) != 0 {
		t.Error("dropped results must not create transactions")
	}
}

func TestHandleResultItemFailureDoesNotAbortBatch(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "100.00")
	svc := testOcr(store, &mockPublisher{})

	taskID := uuid.New()
	store.ocrTasks[taskID] = &domain.OcrTask{TaskID: taskID, UserID: 1, AccountID: 10}

	// The second item overdraws the account and must be skipped; the
	// first and third still land.
	body := ocrResultBody(t, domain.OcrResultMessage{
		TaskID: taskID.String(),
		Status: "SUCCESS",
		Data: &domain.OcrResultData{Items: []domain.OcrResultItem{
			{Name: "Bread", Price: money("30.00")},
			{Name: "Caviar", Price: money("500.00")},
			{Name: "Milk", Price: money("20.00")},
		}},
	})
	if err := svc.HandleResult(context.Background(), body); err != nil {
		t.Fatalf("HandleResult: %v", err)
	}

	if len(store.transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(store.transactions))
	}
	assertBalance(t, store, 10, "50.00")
	if _, ok := store.ocrTasks[taskID]; ok {
		t.Error("correlation row must be deleted even with skipped items")
	}
}

func TestHandleResultNegativePriceBecomesAbsolute(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "100.00")
	svc := testOcr(store, &mockPublisher{})

	taskID := uuid.New()
	store.ocrTasks[taskID] = &domain.OcrTask{TaskID: taskID, UserID: 1, AccountID: 10}

	body := ocrResultBody(t, domain.OcrResultMessage{
		TaskID: taskID.String(),
		Status: "SUCCESS",
		Data: &domain.OcrResultData{Items: []domain.OcrResultItem{
			{Name: "Refund line", Price: money("-25.00")},
		}},
	})
	if err := svc.HandleResult(context.Background(), body); err != nil {
		t.Fatalf("HandleResult: %v", err)
	}
	assertBalance(t, store, 10, "75.00")
}
