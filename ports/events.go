package ports

import (
	"context"

	"github.com/sparksclub/walletauth/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, session *core.Session) error
	PublishLogout(ctx context.Context, address string, sessionID string) error
}
