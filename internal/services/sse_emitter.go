package services

import (
	"context"

	"github.com/tracebind/passport-backend/internal/realtime"
	"github.com/tracebind/passport-backend/internal/realtime/bus"
)

// SSEEmitter abstracts where workflow events go: straight into the local hub
// on single-instance deployments, through the redis bus when fanning out
// across instances.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}
