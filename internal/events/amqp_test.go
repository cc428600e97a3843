package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	kind       string
	durable    bool
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name)
	f.kind = kind
	f.durable = durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPPublisher(ch, "bl.custody", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"bl.custody"}, ch.declared)
	assert.Equal(t, "topic", ch.kind)
	assert.True(t, ch.durable)

	event := NewCustodyEvent(EventTransferAccepted, "7", "cid-1", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0xabc", 12)
	event.DocumentHash = "0x01"
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "bl.custody", got.exchange)
	assert.Equal(t, "bl.transfer_accepted", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, event.ID.String(), got.msg.MessageId)

	var decoded CustodyEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, event.TokenID, decoded.TokenID)
	assert.Equal(t, event.DocumentHash, decoded.DocumentHash)
	assert.Equal(t, EventTransferAccepted, decoded.Type)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_Errors(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newAMQPPublisher(ch, "bl.custody", discardLogger())
	require.Error(t, err)
	assert.True(t, ch.closed, "channel should be closed when the exchange cannot be declared")

	ch = &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := newAMQPPublisher(ch, "bl.custody", discardLogger())
	require.NoError(t, err)
	err = p.Publish(context.Background(), NewCustodyEvent(EventMinted, "1", "cid", "0x0", "0x1", 1))
	assert.ErrorContains(t, err, "failed to publish minted event")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), CustodyEvent{}))
	assert.NoError(t, p.Close())
}
