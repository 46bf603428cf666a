package rabbit

import (
	"context"
	"errors"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

// DisabledPublisher stands in when the broker subsystem is switched off.
// Every publish fails with an infrastructure error.
type DisabledPublisher struct{}

func (DisabledPublisher) Publish(ctx context.Context, queue string, body any) error {
	return &domain.ErrExternalService{
		Service: "rabbitmq",
		Err:     errors.New("message bus is disabled"),
	}
}
