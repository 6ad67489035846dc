package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/metrics"
	"strangerly/backend/internal/models"

	"golang.org/x/sync/singleflight"
)

// HistoryOptions tunes the write queue and timeouts of a History.
type HistoryOptions struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	LoadTimeout  time.Duration
}

// History is the best-effort persistence facade used by the relay.
// Writes go through a bounded queue drained by background workers so relay
// never waits on the backend; reads fail open to an empty slice.
// A nil backend turns every call into a no-op.
type History struct {
	backend Backend
	opts    HistoryOptions

	jobs chan models.Message
	done chan struct{}
	wg   sync.WaitGroup
	sf   singleflight.Group

	startOnce sync.Once
	closeOnce sync.Once
}

func NewHistory(backend Backend, opts HistoryOptions) *History {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 2 * time.Second
	}
	return &History{
		backend: backend,
		opts:    opts,
		jobs:    make(chan models.Message, opts.QueueSize),
		done:    make(chan struct{}),
	}
}

// Enabled reports whether a backend is configured.
func (h *History) Enabled() bool {
	return h.backend != nil
}

// Start launches the write workers. Safe to call more than once.
func (h *History) Start() {
	if h.backend == nil {
		return
	}
	h.startOnce.Do(func() {
		for i := 0; i < h.opts.Workers; i++ {
			h.wg.Add(1)
			go h.worker()
		}
	})
}

// Close stops the workers after they flush what is already queued.
func (h *History) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

// Append queues a message stamped now.
func (h *History) Append(room, senderID, text string) {
	h.AppendMessage(models.Message{RoomID: room, SenderID: senderID, Text: text, Timestamp: models.NowMillis()})
}

// AppendMessage queues msg for persistence. It never blocks: when the queue
// is full or the store is closed the message is dropped and logged.
func (h *History) AppendMessage(msg models.Message) {
	if h.backend == nil {
		return
	}

	select {
	case <-h.done:
		metrics.HistoryWritesTotal.WithLabelValues("dropped").Inc()
		return
	default:
	}

	select {
	case h.jobs <- msg:
	default:
		metrics.HistoryWritesTotal.WithLabelValues("dropped").Inc()
		logger.L().Warn().Str(logger.FieldRoom, msg.RoomID).Msg("history queue full, message not persisted")
	}
}

// LoadRecent returns up to limit messages of room, oldest first. Concurrent
// loads of the same room and limit share one backend call.
func (h *History) LoadRecent(ctx context.Context, room string, limit int) []models.Message {
	if h.backend == nil || limit <= 0 {
		return []models.Message{}
	}

	key := fmt.Sprintf("%s|%d", room, limit)
	res, err, _ := h.sf.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.opts.LoadTimeout)
		defer cancel()
		return h.backend.RecentMessages(loadCtx, room, limit)
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str(logger.FieldRoom, room).Msg("history load failed")
		return []models.Message{}
	}

	msgs, _ := res.([]models.Message)
	if msgs == nil {
		return []models.Message{}
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (h *History) worker() {
	defer h.wg.Done()
	for {
		select {
		case msg := <-h.jobs:
			h.write(msg)
		case <-h.done:
			for {
				select {
				case msg := <-h.jobs:
					h.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (h *History) write(msg models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.WriteTimeout)
	defer cancel()

	if err := h.backend.SaveMessage(ctx, msg); err != nil {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
		logger.L().Error().Err(err).Str(logger.FieldRoom, msg.RoomID).Msg("history write failed")
		return
	}
	metrics.HistoryWritesTotal.WithLabelValues("ok").Inc()
}
