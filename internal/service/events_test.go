package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
)

func TestFanoutPublisherReachesEverySink(t *testing.T) {
	t.Parallel()
	first := &spyPublisher{err: errors.New("amqp down")}
	second := &spyPublisher{}
	third := &spyPublisher{err: errors.New("kafka down")}

	err := FanoutPublisher{first, nil, second, third}.Publish(context.Background(), queue.ReservationEvent{Type: queue.EventReservationSeated})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{queue.EventReservationSeated}, second.types())
	assert.Len(t, third.types(), 1)

	assert.NoError(t, FanoutPublisher{second}.Publish(context.Background(), queue.ReservationEvent{}))
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), queue.ReservationEvent{}))
}
