package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
)

// ErrNothingToSend is returned when the input holds neither text nor attachments.
var ErrNothingToSend = errors.New("nothing to send")

// SendState is the lifecycle of one send.
type SendState string

// Send lifecycle: Pending moves to exactly one of Confirmed or Failed.
const (
	SendPending   SendState = "pending"
	SendConfirmed SendState = "confirmed"
	SendFailed    SendState = "failed"
)

// Sender writes a message into a thread. *Client implements it.
type Sender interface {
	Send(ctx context.Context, threadID string, msg Outgoing) (dto.MessageResponse, error)
}

// Delivery tracks one send through its lifecycle.
type Delivery struct {
	ID        string
	ThreadID  string
	Outgoing  Outgoing
	State     SendState
	Message   *dto.MessageResponse
	Err       error
	StartedAt time.Time
}

// Composer holds the input of one chat screen and sends it optimistically:
// the input clears before the write and, if the write fails, is overwritten
// with exactly what was sent. The sent message is never appended locally;
// it shows up through the thread's live view. Failed sends are not retried.
type Composer struct {
	mu          sync.Mutex
	sender      Sender
	threadID    string
	input       string
	attachments []dto.AttachmentPayload
	onChange    func(Delivery)
	logger      zerolog.Logger
}

// NewComposer creates a composer bound to one thread.
func NewComposer(sender Sender, threadID string, logger zerolog.Logger) *Composer {
	return &Composer{
		sender:   sender,
		threadID: threadID,
		logger:   logger.With().Str("component", "chat_composer").Str("thread_id", threadID).Logger(),
	}
}

// OnChange registers a callback invoked on every state transition.
func (c *Composer) OnChange(fn func(Delivery)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetInput replaces the current input text.
func (c *Composer) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the current input text.
func (c *Composer) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Attach queues an attachment for the next send.
func (c *Composer) Attach(attachment dto.AttachmentPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments = append(c.attachments, attachment)
}

// Attachments returns the queued attachments.
func (c *Composer) Attachments() []dto.AttachmentPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dto.AttachmentPayload, len(c.attachments))
	copy(out, c.attachments)
	return out
}

// Send sends the current input. Whitespace-only text without attachments is
// rejected before any write and leaves the input untouched.
func (c *Composer) Send(ctx context.Context) (Delivery, error) {
	c.mu.Lock()
	text := c.input
	attachments := c.attachments
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		c.mu.Unlock()
		return Delivery{}, ErrNothingToSend
	}
	c.input = ""
	c.attachments = nil
	onChange := c.onChange
	c.mu.Unlock()

	delivery := Delivery{
		ID:        uuid.NewString(),
		ThreadID:  c.threadID,
		Outgoing:  Outgoing{Text: text, Attachments: attachments},
		State:     SendPending,
		StartedAt: time.Now().UTC(),
	}
	notify(onChange, delivery)

	message, err := c.sender.Send(ctx, c.threadID, delivery.Outgoing)
	if err != nil {
		c.mu.Lock()
		c.input = text
		c.attachments = attachments
		c.mu.Unlock()

		c.logger.Error().Err(err).Str("delivery_id", delivery.ID).Msg("failed to send message")
		delivery.State = SendFailed
		delivery.Err = err
		notify(onChange, delivery)
		return delivery, err
	}

	delivery.State = SendConfirmed
	delivery.Message = &message
	notify(onChange, delivery)
	return delivery, nil
}

func notify(fn func(Delivery), delivery Delivery) {
	if fn != nil {
		fn(delivery)
	}
}
