package requests

import (
	"context"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
)

// Stream is an open feed of pending-request snapshots.
type Stream interface {
	// Updates is closed when the stream ends.
	Updates() <-chan Snapshot
	Close() error
}

// subscription streams pending-request snapshots for one client. The first
// value is the current state; a fresh snapshot follows every change. A slow
// reader only ever sees the latest snapshot. Close must be called.
type subscription struct {
	updates  chan Snapshot
	done     chan struct{}
	listener Listener
	load     func(context.Context) (*Snapshot, error)
	metrics  *metrics.RequestMetrics
	logg     *logger.Logger

	once     sync.Once
	closeErr error
	wg       sync.WaitGroup
}

// Subscribe starts listening before reading the initial snapshot so no change
// between the two is lost.
func (s *service) Subscribe(ctx context.Context, clientID string) (Stream, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "client id is required")
	}
	listener, err := s.feed.Listen(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to request changes")
	}
	initial, err := s.pendingSnapshot(ctx, clientID)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	s.metrics.SubscriberOpened()
	return startSubscription(ctx, listener, *initial, func(ctx context.Context) (*Snapshot, error) {
		return s.pendingSnapshot(ctx, clientID)
	}, s.metrics, s.logg), nil
}

// startSubscription streams initial and then the result of load after every
// signal on listener. The subscription owns listener and closes it.
func startSubscription(ctx context.Context, listener Listener, initial Snapshot, load func(context.Context) (*Snapshot, error), m *metrics.RequestMetrics, logg *logger.Logger) *subscription {
	sub := &subscription{
		updates:  make(chan Snapshot, 1),
		done:     make(chan struct{}),
		listener: listener,
		load:     load,
		metrics:  m,
		logg:     logg,
	}
	sub.wg.Add(1)
	go sub.run(ctx, initial)
	return sub
}

// Updates is closed when the subscription ends.
func (sub *subscription) Updates() <-chan Snapshot {
	return sub.updates
}

// Close stops the stream and waits for its goroutine. Safe to call twice.
func (sub *subscription) Close() error {
	sub.release()
	sub.wg.Wait()
	return sub.closeErr
}

func (sub *subscription) release() {
	sub.once.Do(func() {
		close(sub.done)
		sub.closeErr = sub.listener.Close()
		sub.metrics.SubscriberClosed()
	})
}

func (sub *subscription) run(ctx context.Context, initial Snapshot) {
	defer sub.wg.Done()
	defer close(sub.updates)
	defer sub.release()

	if !sub.deliver(ctx, initial) {
		return
	}
	changes := sub.listener.C()
	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			snap, err := sub.load(ctx)
			if err != nil {
				if sub.logg != nil {
					sub.logg.Error(ctx, "reload pending requests", err)
				}
				continue
			}
			if !sub.deliver(ctx, *snap) {
				return
			}
		}
	}
}

// deliver replaces an unread snapshot with snap.
func (sub *subscription) deliver(ctx context.Context, snap Snapshot) bool {
	select {
	case <-sub.updates:
	default:
	}
	select {
	case sub.updates <- snap:
		return true
	case <-sub.done:
		return false
	case <-ctx.Done():
		return false
	}
}
