// Package bus carries realtime messages between service instances.
package bus

import (
	"context"

	"github.com/yungbote/gonasi-backend/internal/realtime"
)

// Bus publishes messages and forwards every message published by any instance
// (this one included) to onMsg.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
