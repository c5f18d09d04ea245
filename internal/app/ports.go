package app

import (
	"context"

	"github.com/dkeye/Chat/internal/domain"
)

// MessageStore is the durable message log.
type MessageStore interface {
	Save(ctx context.Context, msg domain.Message) error
	Conversation(ctx context.Context, a, b string) ([]domain.Message, error)
	Latest(ctx context.Context, a, b string) (domain.Message, bool, error)
}

// IdentityStore resolves identities by username.
type IdentityStore interface {
	Get(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// AttachmentStore keeps binary attachments out of line.
type AttachmentStore interface {
	Save(ctx context.Context, data []byte, format string) (domain.Attachment, error)
	Remove(name string) error
}
