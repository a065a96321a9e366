package infrastructure

import (
	"context"
	"fmt"
	"io"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// LineClient wraps the LINE messaging API (replies) and blob API
// (attachment content) behind the dispatcher's ports.
type LineClient struct {
	api  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

// NewLineClient accepts an empty channel token: the clients still construct,
// and every outbound call then fails at the platform instead of at startup.
func NewLineClient(channelToken string) (*LineClient, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("messaging api: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("blob api: %w", err)
	}
	return &LineClient{api: api, blob: blob}, nil
}

// Reply sends one text message against a single-use reply token.
func (l *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	_, err := l.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	return err
}

// Fetch downloads the attachment bytes for a message id.
func (l *LineClient) Fetch(ctx context.Context, messageID string) ([]byte, string, error) {
	resp, err := l.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}
