package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuolot/showroom-assist-service/internal/service/dto"
)

func bindTestHandler() *QueueEventHandler {
	return &QueueEventHandler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestBindDecodesPayload(t *testing.T) {
	var got *dto.QueueChangedV1
	fn := func(_ context.Context, payload *dto.QueueChangedV1) error {
		got = payload
		return nil
	}

	msg := message.NewMessage(watermill.NewUUID(),
		[]byte(`{"id":"ev-1","change":"claimed","shopperId":"s7","salesRepId":"rep-2","occurredAt":1748771100000}`))
	err := Bind(bindTestHandler(), fn)(msg)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "claimed", got.Change)
	assert.Equal(t, "s7", got.ShopperID)
	assert.Equal(t, "rep-2", got.SalesRepID)
	assert.EqualValues(t, 1748771100000, got.OccurredAt)
}

func TestBindAcksPoisonPayloads(t *testing.T) {
	called := false
	fn := func(_ context.Context, _ *dto.QueueChangedV1) error {
		called = true
		return nil
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{broken json`))
	err := Bind(bindTestHandler(), fn)(msg)

	assert.NoError(t, err, "undecodable payloads must be ACKed, not redelivered forever")
	assert.False(t, called)
}

func TestBindPropagatesDomainErrors(t *testing.T) {
	boom := errors.New("store rejected the mutation")
	fn := func(_ context.Context, _ *dto.QueueChangedV1) error { return boom }

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	err := Bind(bindTestHandler(), fn)(msg)

	assert.ErrorIs(t, err, boom)
}

func TestBindRecoversPanics(t *testing.T) {
	fn := func(_ context.Context, _ *dto.QueueChangedV1) error {
		panic("handler blew up")
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	handler := Bind(bindTestHandler(), fn)

	var err error
	require.NotPanics(t, func() { err = handler(msg) })
	assert.NoError(t, err)
}
