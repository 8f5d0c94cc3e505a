package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/SergeiKhy/tinylink/internal/service"
	"github.com/SergeiKhy/tinylink/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventDispatcher_DeliversEvents(t *testing.T) {
	sink := mocks.NewMockEventSink()
	dispatcher := service.NewEventDispatcher([]service.EventSink{sink}, zap.NewNop())
	dispatcher.Start()

	ctx := context.Background()
	for _, code := range []string{"aaa111", "bbb222", "ccc333"} {
		require.NoError(t, dispatcher.Publish(ctx, models.NewLinkEvent(models.EventLinkCreated, code)))
	}

	// Stop доставляет всё, что осталось в буфере
	dispatcher.Stop()

	events := sink.Events()
	require.Len(t, events, 3)
	codes := map[string]bool{}
	for _, e := range events {
		codes[e.Code] = true
		assert.Equal(t, models.EventLinkCreated, e.Type)
	}
	assert.True(t, codes["aaa111"] && codes["bbb222"] && codes["ccc333"])
}

func TestEventDispatcher_RetriesFailedDelivery(t *testing.T) {
	sink := mocks.NewMockEventSink()
	sink.FailTimes = 2
	dispatcher := service.NewEventDispatcher([]service.EventSink{sink}, nil)
	dispatcher.Start()

	require.NoError(t, dispatcher.Publish(context.Background(), models.NewLinkEvent(models.EventLinkHit, "abc123")))

	assert.Eventually(t, func() bool {
		return len(sink.Events()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	dispatcher.Stop()

	assert.Equal(t, 3, sink.Calls())
}

func TestEventDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	sink := mocks.NewMockEventSink()
	sink.FailTimes = 100
	dispatcher := service.NewEventDispatcher([]service.EventSink{sink}, nil)
	dispatcher.Start()

	require.NoError(t, dispatcher.Publish(context.Background(), models.NewLinkEvent(models.EventLinkHit, "abc123")))
	dispatcher.Stop()

	assert.Equal(t, 3, sink.Calls())
	assert.Empty(t, sink.Events())
}

func TestEventDispatcher_PublishAfterStop(t *testing.T) {
	dispatcher := service.NewEventDispatcher(nil, nil)
	dispatcher.Start()
	dispatcher.Stop()
	dispatcher.Stop()

	err := dispatcher.Publish(context.Background(), models.NewLinkEvent(models.EventLinkDeleted, "abc123"))
	assert.ErrorIs(t, err, service.ErrDispatcherStopped)
}

func TestEventDispatcher_Stats(t *testing.T) {
	dispatcher := service.NewEventDispatcher(nil, nil)

	stats := dispatcher.Stats()
	assert.Equal(t, 1000, stats.BufferSize)
	assert.Equal(t, 0, stats.BufferUsed)
	assert.Equal(t, 2, stats.WorkerCount)
}

// TestEventDispatcher_WithLinkService события реестра доходят до получателя
func TestEventDispatcher_WithLinkService(t *testing.T) {
	sink := mocks.NewMockEventSink()
	dispatcher := service.NewEventDispatcher([]service.EventSink{sink}, nil)
	dispatcher.Start()

	linkService := service.NewLinkService(mocks.NewMockLinkRepository(), dispatcher, nil)
	ctx := context.Background()

	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{TargetURL: "https://example.com"})
	require.NoError(t, err)
	_, err = linkService.RecordHit(ctx, link.Code)
	require.NoError(t, err)

	dispatcher.Stop()

	assert.Len(t, sink.Events(), 2)
}
