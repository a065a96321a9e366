package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"linebridge/internal/entities"
	"linebridge/internal/usecases"

	"github.com/gin-gonic/gin"
)

const testChannelSecret = "test-channel-secret"

type stubAI struct{}

func (stubAI) GenerateText(_ context.Context, prompt string) (string, error) {
	return "ตอบ: " + prompt, nil
}

func (stubAI) GenerateVision(context.Context, string, []byte, string) (string, error) {
	return "แมว", nil
}

type stubSender struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubSender) Reply(_ context.Context, replyToken, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, replyToken)
	return nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) ([]byte, string, error) {
	return []byte{0xFF, 0xD8}, "image/jpeg", nil
}

type stubStore struct{}

func (stubStore) Put(context.Context, string, []byte, string) error { return nil }
func (stubStore) PublicURL(key string) string                       { return "https://storage.test/" + key }

type stubRecorder struct {
	mu      sync.Mutex
	records []entities.MessageRecord
}

func (s *stubRecorder) Append(_ context.Context, rec entities.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sender := &stubSender{}
	dispatcher := usecases.NewDispatcher(stubAI{}, sender, stubFetcher{}, stubStore{}, &stubRecorder{}, usecases.PersistOverride, nil)
	h := NewHandler(dispatcher, testChannelSecret, nil)

	r := gin.New()
	r.GET("/", h.Liveness)
	r.POST("/webhook", h.HandleWebhook)
	return r, sender
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postDelivery(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-line-signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLiveness(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "hello world, กันตินันท์" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	r, sender := newTestRouter(t)

	body := []byte(`{"destination":"D1","events":[]}`)
	w := postDelivery(r, body, "bogus-signature")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(sender.calls) != 0 {
		t.Fatal("no event may reach the dispatcher on a rejected delivery")
	}
}

func TestWebhookBatchWithUnsupportedEvent(t *testing.T) {
	r, sender := newTestRouter(t)

	body := []byte(`{
		"destination": "D1",
		"events": [
			{
				"type": "message",
				"mode": "active",
				"timestamp": 1660000000000,
				"webhookEventId": "W1",
				"deliveryContext": {"isRedelivery": false},
				"replyToken": "T1",
				"source": {"type": "user", "userId": "U1"},
				"message": {"type": "text", "id": "M1", "text": "สวัสดี"}
			},
			{
				"type": "follow",
				"mode": "active",
				"timestamp": 1660000000001,
				"webhookEventId": "W2",
				"deliveryContext": {"isRedelivery": false},
				"replyToken": "T2",
				"source": {"type": "user", "userId": "U2"}
			},
			{
				"type": "message",
				"mode": "active",
				"timestamp": 1660000000002,
				"webhookEventId": "W3",
				"deliveryContext": {"isRedelivery": false},
				"replyToken": "T3",
				"source": {"type": "user", "userId": "U3"},
				"message": {"type": "image", "id": "M3", "contentProvider": {"type": "line"}}
			}
		]
	}`)
	w := postDelivery(r, body, sign(testChannelSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var outcomes []entities.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcomes); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}

	skipped := 0
	for _, o := range outcomes {
		if o.Status == entities.StatusSkipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want exactly 1", skipped)
	}
	// The follow event at index 1 keeps its placeholder position.
	if outcomes[1].Status != entities.StatusSkipped {
		t.Fatalf("outcomes[1] = %+v, want skipped in input order", outcomes[1])
	}
	if len(sender.calls) != 2 {
		t.Fatalf("reply calls = %d, want one per supported event", len(sender.calls))
	}
}

func TestWebhookEmptyDelivery(t *testing.T) {
	r, _ := newTestRouter(t)

	body := []byte(`{"destination":"D1","events":[]}`)
	w := postDelivery(r, body, sign(testChannelSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Fatalf("body = %q, want empty outcome array", w.Body.String())
	}
}
