package requests

import (
	"context"
	"sync"

	pkgredis "github.com/angelmondragon/acertamais-backend/pkg/redis"
)

const feedScope = "requests"

// ChangeFeed tells live subscribers that a client's requests changed. Notices
// carry no data; listeners re-read the store.
type ChangeFeed interface {
	Notify(ctx context.Context, clientID string) error
	Listen(ctx context.Context, clientID string) (Listener, error)
}

// Listener yields one signal per observed change. Bursts may be coalesced.
type Listener interface {
	C() <-chan struct{}
	Close() error
}

type redisPubSub interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string) (*pkgredis.Subscription, error)
	ChannelName(scope, id string) string
}

// RedisFeed carries change notices over redis pub/sub so every API replica
// sees writes made by the others.
type RedisFeed struct {
	client redisPubSub
}

func NewRedisFeed(client redisPubSub) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) Notify(ctx context.Context, clientID string) error {
	return f.client.Publish(ctx, f.client.ChannelName(feedScope, clientID), "changed")
}

// Listen returns once the redis subscription is confirmed, so a notice
// published after Listen returns is never missed.
func (f *RedisFeed) Listen(ctx context.Context, clientID string) (Listener, error) {
	sub, err := f.client.Subscribe(ctx, f.client.ChannelName(feedScope, clientID))
	if err != nil {
		return nil, err
	}
	l := &redisListener{sub: sub, signals: make(chan struct{}, 1), done: make(chan struct{})}
	go l.forward()
	return l, nil
}

type redisListener struct {
	sub     *pkgredis.Subscription
	signals chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (l *redisListener) forward() {
	defer close(l.signals)
	msgs := l.sub.Messages()
	for {
		select {
		case <-l.done:
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case l.signals <- struct{}{}:
			default:
			}
		}
	}
}

func (l *redisListener) C() <-chan struct{} {
	return l.signals
}

func (l *redisListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.sub.Close()
	})
	return err
}
