package http

import (
	"log/slog"
	"net/http"
	"sync"

	"linebridge/internal/entities"
	"linebridge/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

type Handler struct {
	dispatcher    *usecases.Dispatcher
	channelSecret string
	logger        *slog.Logger
}

func NewHandler(dispatcher *usecases.Dispatcher, channelSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dispatcher:    dispatcher,
		channelSecret: channelSecret,
		logger:        logger,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, auth *usecases.AuthUsecase, admin *AdminHandler, middleware *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size

	// Public Routes
	r.GET("/", h.Liveness)
	r.POST("/webhook", h.HandleWebhook)

	r.POST("/api/auth/login", func(c *gin.Context) {
		var loginReq struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&loginReq); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	// Protected message-log routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		api.GET("/records", admin.ListRecords)
		api.GET("/stats", admin.GetStats)
	}
}

// Liveness mirrors the upstream greeting endpoint.
func (h *Handler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, "hello world, กันตินันท์")
}

// HandleWebhook accepts one LINE delivery, dispatches every event
// concurrently, and answers with one outcome per event in input order.
// Signature verification happens inside ParseRequest before any event
// reaches the dispatcher.
func (h *Handler) HandleWebhook(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if err == webhook.ErrInvalidSignature {
			h.logger.Warn("webhook signature rejected")
		} else {
			h.logger.Warn("webhook parse failed", "error", err)
		}
		c.Status(http.StatusBadRequest)
		return
	}

	defer func() {
		// Dispatch never panics by contract; this guards the aggregation
		// itself so one delivery cannot take the process down.
		if r := recover(); r != nil {
			h.logger.Error("webhook aggregation panic", "panic", r)
			c.Status(http.StatusInternalServerError)
		}
	}()

	deliveryID := uuid.NewString()
	outcomes := make([]entities.Outcome, len(cb.Events))

	var wg sync.WaitGroup
	for i, raw := range cb.Events {
		wg.Add(1)
		go func(i int, ev entities.InboundEvent) {
			defer wg.Done()
			outcomes[i] = h.dispatcher.Dispatch(c.Request.Context(), ev)
		}(i, toInboundEvent(raw))
	}
	wg.Wait()

	h.logger.Info("delivery handled", "delivery_id", deliveryID, "events", len(cb.Events))
	c.JSON(http.StatusOK, outcomes)
}

// toInboundEvent reduces a platform event to the dispatcher's input shape.
// Anything that is not a text or image message comes back as unsupported.
func toInboundEvent(raw webhook.EventInterface) entities.InboundEvent {
	me, ok := raw.(webhook.MessageEvent)
	if !ok {
		return entities.InboundEvent{Kind: entities.KindUnsupported}
	}

	ev := entities.InboundEvent{Kind: entities.KindUnsupported, ReplyToken: me.ReplyToken}
	if src, ok := me.Source.(webhook.UserSource); ok {
		ev.UserID = src.UserId
	}

	switch msg := me.Message.(type) {
	case webhook.TextMessageContent:
		ev.Kind = entities.KindText
		ev.MessageID = msg.Id
		ev.Text = msg.Text
	case webhook.ImageMessageContent:
		ev.Kind = entities.KindImage
		ev.MessageID = msg.Id
	}
	return ev
}
