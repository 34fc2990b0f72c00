package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgertree/pkg/logger"
)

// ChangeHandler receives the distinct payloads (table names) of a burst
// of notifications.
type ChangeHandler func(ctx context.Context, tables []string)

// ChangeListener LISTENs on a PostgreSQL channel on a dedicated
// connection and calls handlers once per burst of notifications.
type ChangeListener struct {
	pool     *pgxpool.Pool
	channel  string
	debounce time.Duration

	handlers   []ChangeHandler
	handlersMu sync.RWMutex

	events chan string

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewChangeListener creates a listener. Notifications arriving within
// debounce of each other are delivered together.
func NewChangeListener(pool *pgxpool.Pool, channel string, debounce time.Duration) *ChangeListener {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &ChangeListener{
		pool:     pool,
		channel:  channel,
		debounce: debounce,
		events:   make(chan string, 1024),
	}
}

// OnChange registers a handler. Register handlers before Start.
func (l *ChangeListener) OnChange(h ChangeHandler) {
	l.handlersMu.Lock()
	defer l.handlersMu.Unlock()
	l.handlers = append(l.handlers, h)
}

// Start begins listening in the background.
func (l *ChangeListener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(2)
	go l.listenLoop()
	go l.dispatchLoop()
	logger.Info(l.ctx, "change listener started", "channel", l.channel)
}

// Stop stops listening and waits for the background goroutines.
func (l *ChangeListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "change listener stopped", "channel", l.channel)
}

func (l *ChangeListener) listenLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "channel", l.channel, "error", err)
			conn.Release()
			l.sleep(time.Second)
			continue
		}

		logger.Info(l.ctx, "listening for notifications", "channel", l.channel)
		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *ChangeListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		if l.ctx.Err() != nil {
			return
		}

		// Timeout lets shutdown be noticed without waiting for a notification.
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if conn.Conn().IsClosed() {
				logger.Warn(l.ctx, "LISTEN connection lost, reconnecting", "error", err)
				return
			}
			continue
		}

		logger.Debug(l.ctx, "received notification", "channel", n.Channel, "payload", n.Payload)
		select {
		case l.events <- n.Payload:
		default:
			logger.Warn(l.ctx, "notification buffer full, dropping", "payload", n.Payload)
		}
	}
}

func (l *ChangeListener) dispatchLoop() {
	defer l.wg.Done()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-l.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case p := <-l.events:
			pending[p] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(l.debounce)
				fire = timer.C
			}
		case <-fire:
			tables := make([]string, 0, len(pending))
			for t := range pending {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			clear(pending)
			timer, fire = nil, nil
			l.dispatch(tables)
		}
	}
}

func (l *ChangeListener) dispatch(tables []string) {
	l.handlersMu.RLock()
	handlers := make([]ChangeHandler, len(l.handlers))
	copy(handlers, l.handlers)
	l.handlersMu.RUnlock()

	for _, h := range handlers {
		h(l.ctx, tables)
	}
}

func (l *ChangeListener) sleep(d time.Duration) {
	select {
	case <-l.ctx.Done():
	case <-time.After(d):
	}
}
