package mq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/services/mq"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	closed     int
	publishErr error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name+"/"+kind)
	if !durable {
		return errors.New("exchange must be durable")
	}
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}

func TestPublisher_Notify(t *testing.T) {
	ch := &fakeChannel{}
	p, err := mq.NewPublisher(func() (mq.Channel, error) { return ch, nil }, "match.events")
	require.NoError(t, err)
	assert.Equal(t, []string{"match.events/topic"}, ch.declared)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := models.NewMatchEvent(models.EventProposalDispatched, models.MatchKindMutual, 9,
		models.MatchStatusPending, []int64{1, 2}, []int64{1, 2}, at)
	require.NoError(t, p.Notify(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "match.events", got.exchange)
	assert.Equal(t, "match.mutual.proposal_dispatched", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, event.EventID, got.msg.MessageId)
	assert.Equal(t, at, got.msg.Timestamp)

	var payload mq.EventPayload
	require.NoError(t, json.Unmarshal(got.msg.Body, &payload))
	assert.Equal(t, "proposal_dispatched", payload.EventType)

	var decoded models.MatchEvent
	require.NoError(t, json.Unmarshal(payload.Data, &decoded))
	assert.Equal(t, int64(9), decoded.MatchID)
	assert.Equal(t, 2, ch.closed, "setup and publish channels are both closed")
}

func TestPublisher_Errors(t *testing.T) {
	_, err := mq.NewPublisher(func() (mq.Channel, error) { return nil, amqp.ErrClosed }, "x")
	assert.ErrorIs(t, err, amqp.ErrClosed)

	ch := &fakeChannel{publishErr: errors.New("nack")}
	p, err := mq.NewPublisher(func() (mq.Channel, error) { return ch, nil }, "x")
	require.NoError(t, err)

	event := models.NewMatchEvent(models.EventMatchRejected, models.MatchKindSequential, 1,
		models.MatchStatusRejected, []int64{1, 2}, []int64{2}, time.Now())
	err = p.Notify(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.sequential.match_rejected")

	assert.NoError(t, p.Close(), "a publisher without a connection closes cleanly")
}
