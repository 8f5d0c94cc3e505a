package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 2    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	maxRetries           = 3    // Максимальное количество попыток доставки
	deliveryTimeout      = 5 * time.Second
)

var ErrDispatcherStopped = errors.New("event dispatcher stopped")

// EventSink получатель событий (например, канал Redis)
type EventSink interface {
	Publish(ctx context.Context, event *models.LinkEvent) error
}

// EventDispatcher асинхронно доставляет события реестра получателям,
// не блокируя запросы
type EventDispatcher interface {
	Start()
	Stop()
	Publish(ctx context.Context, event *models.LinkEvent) error
	Stats() DispatcherStats
}

type eventDispatcher struct {
	sinks        []EventSink
	logger       *zap.Logger
	eventChannel chan *models.LinkEvent
	workerCount  int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	stopOnce     sync.Once
	retryDelay   time.Duration
}

// NewEventDispatcher создаёт диспетчер событий. Без получателей события только логируются.
func NewEventDispatcher(sinks []EventSink, logger *zap.Logger) EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &eventDispatcher{
		sinks:        sinks,
		logger:       logger,
		eventChannel: make(chan *models.LinkEvent, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		retryDelay:   100 * time.Millisecond,
	}
}

// Start запускает worker pool
func (d *eventDispatcher) Start() {
	d.logger.Info("Starting event dispatcher workers", zap.Int("count", d.workerCount))

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop останавливает воркеров; события, уже попавшие в буфер, доставляются
func (d *eventDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("Stopping event dispatcher...")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("Event dispatcher stopped")
	})
}

func (d *eventDispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("Event worker started", zap.Int("id", id))

	for {
		select {
		case <-d.ctx.Done():
			d.drain()
			d.logger.Debug("Event worker stopped", zap.Int("id", id))
			return

		case event := <-d.eventChannel:
			d.deliver(event)
		}
	}
}

func (d *eventDispatcher) drain() {
	for {
		select {
		case event := <-d.eventChannel:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver отправляет событие каждому получателю с retry логикой
func (d *eventDispatcher) deliver(event *models.LinkEvent) {
	d.logger.Debug("Link event",
		zap.String("id", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.String("code", event.Code),
	)

	for _, sink := range d.sinks {
		var err error
		for attempt := 1; attempt <= maxRetries; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			err = sink.Publish(ctx, event)
			cancel()
			if err == nil {
				break
			}
			if attempt < maxRetries {
				d.logger.Debug("Retrying event delivery",
					zap.String("code", event.Code),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				time.Sleep(time.Duration(attempt) * d.retryDelay)
			}
		}
		if err != nil {
			d.logger.Error("Failed to deliver event after all attempts",
				zap.String("type", string(event.Type)),
				zap.String("code", event.Code),
				zap.Error(err),
			)
		}
	}
}

// Publish ставит событие в очередь (неблокирующая операция)
func (d *eventDispatcher) Publish(ctx context.Context, event *models.LinkEvent) error {
	if d.ctx.Err() != nil {
		return ErrDispatcherStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.eventChannel <- event:
		return nil
	default:
		// Буфер заполнен: событие теряется, запрос не блокируется
		d.logger.Warn("Event buffer full, event dropped",
			zap.String("type", string(event.Type)),
			zap.String("code", event.Code),
		)
		return nil
	}
}

// Stats возвращает состояние буфера для мониторинга
func (d *eventDispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		BufferSize:  cap(d.eventChannel),
		BufferUsed:  len(d.eventChannel),
		WorkerCount: d.workerCount,
	}
}

type DispatcherStats struct {
	BufferSize  int `json:"buffer_size"`
	BufferUsed  int `json:"buffer_used"`
	WorkerCount int `json:"worker_count"`
}
