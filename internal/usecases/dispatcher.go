package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"linebridge/internal/entities"
	"linebridge/internal/interfaces"
)

// Fault taxonomy for one dispatch. Every adapter fault is converted into a
// user-visible fallback reply inside the dispatcher; none escapes it.
var (
	ErrContentFetch  = errors.New("content fetch failed")
	ErrUpload        = errors.New("storage upload failed")
	ErrInference     = errors.New("inference failed")
	ErrPersistence   = errors.New("persistence failed")
	ErrReplyDelivery = errors.New("reply delivery failed")
)

// Fixed fallback strings. The sender always receives some text for a text
// or image event, never silence.
const (
	ReplyApology      = "ขออภัยค่ะ ระบบไม่สามารถตอบกลับได้ในขณะนี้ 🙏"
	ReplySaveFailed   = "ขออภัยค่ะ ระบบไม่สามารถบันทึกข้อความของคุณได้"
	ReplyUploadFailed = "ขออภัยค่ะ ไม่สามารถอัปโหลดรูปภาพได้"
	ReplyImageFailed  = "ขออภัยค่ะ ไม่สามารถประมวลผลรูปภาพได้"

	imageReplyPrefix = "🔍 ผลการวิเคราะห์รูปภาพ: "
	visionPrompt     = "รูปนี้คือรูปอะไร ตอบเป็นคำสั้นๆ ภาษาไทย"
)

// PersistPolicy decides what the user sees when the message-log write fails
// after a successful inference call.
type PersistPolicy string

const (
	// PersistOverride replies with the save-failure string, discarding the
	// computed answer. Matches the upstream service's behavior.
	PersistOverride PersistPolicy = "override"
	// PersistReplyAnyway sends the computed answer and only logs the fault.
	PersistReplyAnyway PersistPolicy = "reply-anyway"
)

// Dispatcher routes one inbound event to exactly one terminal outcome.
// All collaborators are injected so tests can substitute fakes.
type Dispatcher struct {
	ai       interfaces.AIClient
	sender   interfaces.ReplySender
	fetcher  interfaces.ContentFetcher
	store    interfaces.ObjectStore
	recorder interfaces.MessageRecorder
	policy   PersistPolicy
	logger   *slog.Logger
}

func NewDispatcher(
	ai interfaces.AIClient,
	sender interfaces.ReplySender,
	fetcher interfaces.ContentFetcher,
	store interfaces.ObjectStore,
	recorder interfaces.MessageRecorder,
	policy PersistPolicy,
	logger *slog.Logger,
) *Dispatcher {
	if policy != PersistReplyAnyway {
		policy = PersistOverride
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ai:       ai,
		sender:   sender,
		fetcher:  fetcher,
		store:    store,
		recorder: recorder,
		policy:   policy,
		logger:   logger,
	}
}

// Dispatch produces one Outcome per event and never lets a fault escape:
// adapter errors become fallback replies, and a panic inside a handling
// path is caught and reported as a failed outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev entities.InboundEvent) (out entities.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panic", "message_id", ev.MessageID, "panic", r)
			out = entities.Outcome{Status: entities.StatusFailed, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	switch ev.Kind {
	case entities.KindText:
		return d.handleText(ctx, ev)
	case entities.KindImage:
		return d.handleImage(ctx, ev)
	default:
		return entities.Outcome{Status: entities.StatusSkipped}
	}
}

func (d *Dispatcher) handleText(ctx context.Context, ev entities.InboundEvent) entities.Outcome {
	replyText, err := d.ai.GenerateText(ctx, ev.Text)
	if err != nil || replyText == "" {
		// Recoverable: the apology becomes the reply and the persisted
		// reply content.
		d.logger.Warn("inference failed", "message_id", ev.MessageID, "error", err)
		replyText = ReplyApology
	}
	replyText = truncateReply(sanitizeText(replyText))

	rec := entities.MessageRecord{
		UserID:       ev.UserID,
		MessageID:    ev.MessageID,
		Kind:         string(entities.KindText),
		Content:      sanitizeText(ev.Text),
		ReplyToken:   ev.ReplyToken,
		ReplyContent: replyText,
	}
	if err := d.recorder.Append(ctx, rec); err != nil {
		d.logger.Error("persistence failed", "message_id", ev.MessageID, "error", err)
		if d.policy == PersistOverride {
			replyText = ReplySaveFailed
		}
	}

	// Exactly one reply per text event, whichever branch was taken.
	if err := d.sender.Reply(ctx, ev.ReplyToken, replyText); err != nil {
		d.logger.Error("reply delivery failed", "message_id", ev.MessageID, "error", err)
		return entities.Outcome{Status: entities.StatusFailed, Reason: ErrReplyDelivery.Error()}
	}
	return entities.Outcome{Status: entities.StatusReplied}
}

func (d *Dispatcher) handleImage(ctx context.Context, ev entities.InboundEvent) entities.Outcome {
	data, mimeType, err := d.fetcher.Fetch(ctx, ev.MessageID)
	if err != nil {
		d.logger.Warn("content fetch failed", "message_id", ev.MessageID, "error", err)
		return d.failWith(ctx, ev, ReplyImageFailed, ErrContentFetch)
	}

	key := attachmentKey(ev.MessageID, mimeType)
	if err := d.store.Put(ctx, key, data, mimeType); err != nil {
		// Stop here: no inference on content we could not store.
		d.logger.Warn("storage upload failed", "message_id", ev.MessageID, "key", key, "error", err)
		return d.failWith(ctx, ev, ReplyUploadFailed, ErrUpload)
	}
	d.logger.Info("attachment stored", "message_id", ev.MessageID, "address", d.store.PublicURL(key))

	label, err := d.ai.GenerateVision(ctx, visionPrompt, data, mimeType)
	if err != nil || label == "" {
		d.logger.Warn("vision inference failed", "message_id", ev.MessageID, "error", err)
		return d.failWith(ctx, ev, ReplyImageFailed, ErrInference)
	}
	label = sanitizeText(strings.TrimSpace(label))

	rec := entities.MessageRecord{
		UserID:       ev.UserID,
		MessageID:    ev.MessageID,
		Kind:         string(entities.KindImage),
		Content:      label,
		ReplyToken:   ev.ReplyToken,
		ReplyContent: imageReplyPrefix + label,
	}
	if err := d.recorder.Append(ctx, rec); err != nil {
		// Best effort for image events; the answer still goes out.
		d.logger.Error("persistence failed", "message_id", ev.MessageID, "error", err)
	}

	if err := d.sender.Reply(ctx, ev.ReplyToken, truncateReply(imageReplyPrefix+label)); err != nil {
		d.logger.Error("reply delivery failed", "message_id", ev.MessageID, "error", err)
		return entities.Outcome{Status: entities.StatusFailed, Reason: ErrReplyDelivery.Error()}
	}
	return entities.Outcome{Status: entities.StatusReplied}
}

// failWith sends the fallback reply for a faulted image path. The dispatch
// still completes; only a failed fallback delivery is left unrecovered.
func (d *Dispatcher) failWith(ctx context.Context, ev entities.InboundEvent, fallback string, cause error) entities.Outcome {
	if err := d.sender.Reply(ctx, ev.ReplyToken, fallback); err != nil {
		d.logger.Error("fallback reply delivery failed", "message_id", ev.MessageID, "error", err)
		return entities.Outcome{Status: entities.StatusFailed, Reason: ErrReplyDelivery.Error()}
	}
	return entities.Outcome{Status: entities.StatusFailed, Reason: cause.Error()}
}

// attachmentKey derives the storage key for an attachment from its message
// id. Deterministic: a re-delivered message overwrites its own object.
func attachmentKey(messageID, mimeType string) string {
	ext := "bin"
	switch mimeType {
	case "image/jpeg":
		ext = "jpg"
	case "image/png":
		ext = "png"
	case "image/gif":
		ext = "gif"
	}
	return "attachments/" + messageID + "." + ext
}
