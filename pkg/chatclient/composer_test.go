package chatclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homefix-api/internal/dto"
)

type fakeSender struct {
	mu       sync.Mutex
	err      error
	sent     []Outgoing
	inputAt  []string
	composer *Composer
	inFlight func()
}

func (f *fakeSender) Send(_ context.Context, threadID string, msg Outgoing) (dto.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.composer != nil {
		f.inputAt = append(f.inputAt, f.composer.Input())
	}
	if f.inFlight != nil {
		f.inFlight()
	}
	if f.err != nil {
		return dto.MessageResponse{}, f.err
	}
	return dto.MessageResponse{ID: uint(len(f.sent)), ThreadID: threadID, Text: msg.Text}, nil
}

func TestComposerClearsInputBeforeWriteAndConfirms(t *testing.T) {
	sender := &fakeSender{}
	composer := NewComposer(sender, "u1_u2", zerolog.Nop())
	sender.composer = composer

	var states []SendState
	composer.OnChange(func(d Delivery) { states = append(states, d.State) })

	composer.SetInput("Hello")
	delivery, err := composer.Send(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{""}, sender.inputAt)
	require.Equal(t, []SendState{SendPending, SendConfirmed}, states)
	require.Equal(t, SendConfirmed, delivery.State)
	require.NotNil(t, delivery.Message)
	require.Equal(t, "Hello", delivery.Message.Text)
	require.Empty(t, composer.Input())
}

func TestComposerRestoresExactTextOnFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	composer := NewComposer(sender, "u1_u2", zerolog.Nop())

	var states []SendState
	composer.OnChange(func(d Delivery) { states = append(states, d.State) })

	composer.SetInput("  Hello there \n")
	composer.Attach(dto.AttachmentPayload{URL: "https://cdn.example.com/a.png"})
	delivery, err := composer.Send(context.Background())
	require.Error(t, err)

	require.Equal(t, SendFailed, delivery.State)
	require.Equal(t, []SendState{SendPending, SendFailed}, states)
	require.Equal(t, "  Hello there \n", composer.Input())
	require.Len(t, composer.Attachments(), 1)
	require.Len(t, sender.sent, 1, "failed sends are not retried")
}

func TestComposerFailureOverwritesTextTypedDuringSend(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	composer := NewComposer(sender, "u1_u2", zerolog.Nop())
	sender.inFlight = func() {
		composer.SetInput("typed meanwhile")
		composer.Attach(dto.AttachmentPayload{URL: "https://cdn.example.com/late.png"})
	}

	composer.SetInput("Is 9am ok?")
	_, err := composer.Send(context.Background())
	require.Error(t, err)

	require.Equal(t, "Is 9am ok?", composer.Input())
	require.Empty(t, composer.Attachments())
}

func TestComposerRejectsWhitespaceWithoutWriting(t *testing.T) {
	sender := &fakeSender{}
	composer := NewComposer(sender, "u1_u2", zerolog.Nop())

	composer.SetInput(" \t ")
	_, err := composer.Send(context.Background())
	require.ErrorIs(t, err, ErrNothingToSend)
	require.Empty(t, sender.sent)
	require.Equal(t, " \t ", composer.Input())
}

func TestComposerSendsAttachmentOnly(t *testing.T) {
	sender := &fakeSender{}
	composer := NewComposer(sender, "u1_u2", zerolog.Nop())

	composer.Attach(dto.AttachmentPayload{URL: "https://cdn.example.com/a.png", MimeType: "image/png"})
	delivery, err := composer.Send(context.Background())
	require.NoError(t, err)
	require.Equal(t, SendConfirmed, delivery.State)
	require.Len(t, sender.sent[0].Attachments, 1)
	require.Empty(t, composer.Attachments())
}
