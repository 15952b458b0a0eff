package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"

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
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishBookingEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisherWithChannel(DefaultExchange, ch)

	link := "https://meet.example/abc"
	b := &models.Booking{ID: 4, StudentID: 9, Date: "2026-11-03", Time: "10:00", Status: models.BookingStatusApproved, MeetLink: &link}
	at := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	evt := models.NewBookingEvent(models.BookingEventApproved, b, 2, at)

	require.NoError(t, p.PublishBookingEvent(context.Background(), evt))
	require.Len(t, ch.sent, 1)

	got := ch.sent[0]
	assert.Equal(t, "mindbridge.bookings", got.exchange)
	assert.Equal(t, "booking.approved", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var decoded models.BookingEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, uint(4), decoded.BookingID)
	assert.Equal(t, models.BookingStatusApproved, decoded.Status)
	require.NotNil(t, decoded.MeetLink)
	assert.Equal(t, link, *decoded.MeetLink)
}

func TestPublishBookingEvent_Error(t *testing.T) {
	p := newPublisherWithChannel(DefaultExchange, &fakeChannel{err: errors.New("channel closed")})
	err := p.PublishBookingEvent(context.Background(), models.BookingEvent{Type: models.BookingEventCancelled})
	assert.ErrorContains(t, err, "booking.cancelled")
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisherWithChannel(DefaultExchange, ch)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestConnect_EmptyURLDiscards(t *testing.T) {
	pub, closeFn, err := Connect("", "")
	require.NoError(t, err)
	assert.IsType(t, Discard{}, pub)
	assert.NoError(t, pub.PublishBookingEvent(context.Background(), models.BookingEvent{}))
	assert.NoError(t, closeFn())
}
