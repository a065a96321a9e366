package interfaces

import (
	"context"

	"linebridge/internal/entities"
)

// AIClient generates reply text from a prompt, optionally grounded on an
// image attachment.
type AIClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// ReplySender delivers one outbound text message addressed by a single-use
// reply token. A second send with the same token fails at the platform.
type ReplySender interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ContentFetcher retrieves attachment bytes for a platform message id.
type ContentFetcher interface {
	Fetch(ctx context.Context, messageID string) (data []byte, mimeType string, err error)
}

// ObjectStore uploads attachment content to durable storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// MessageRecorder appends one row to the durable message log.
type MessageRecorder interface {
	Append(ctx context.Context, rec entities.MessageRecord) error
}
