package requests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/db"
	"github.com/angelmondragon/acertamais-backend/pkg/db/dbtest"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox"
	pkgredis "github.com/angelmondragon/acertamais-backend/pkg/redis"
)

type stubLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released int
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: map[string]string{}}
}

func (l *stubLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", pkgredis.ErrLockHeld
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *stubLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.released++
	}
	return nil
}

func (l *stubLocker) LockKey(scope, id string) string {
	return "lock:" + scope + ":" + id
}

type memFeed struct {
	mu        sync.Mutex
	notices   []string
	listeners map[string][]*memListener
}

func newMemFeed() *memFeed {
	return &memFeed{listeners: map[string][]*memListener{}}
}

func (f *memFeed) Notify(_ context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, clientID)
	for _, l := range f.listeners[clientID] {
		select {
		case l.ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *memFeed) Listen(_ context.Context, clientID string) (Listener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &memListener{feed: f, clientID: clientID, ch: make(chan struct{}, 1)}
	f.listeners[clientID] = append(f.listeners[clientID], l)
	return l, nil
}

func (f *memFeed) noticeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

func (f *memFeed) listenerCount(clientID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[clientID])
}

type memListener struct {
	feed     *memFeed
	clientID string
	ch       chan struct{}
	closed   bool
}

func (l *memListener) C() <-chan struct{} { return l.ch }

func (l *memListener) Close() error {
	l.feed.mu.Lock()
	defer l.feed.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	kept := l.feed.listeners[l.clientID][:0]
	for _, other := range l.feed.listeners[l.clientID] {
		if other != l {
			kept = append(kept, other)
		}
	}
	l.feed.listeners[l.clientID] = kept
	close(l.ch)
	return nil
}

type stubVendors map[string]string

func (s stubVendors) VendorNames(_ context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if name, ok := s[id]; ok {
			out[id] = name
		} else {
			out[id] = "Empresa desconhecida"
		}
	}
	return out, nil
}

type fixture struct {
	svc    Service
	conn   *gorm.DB
	locks  *stubLocker
	feed   *memFeed
	cart   *cart.Repository
	outbox *outbox.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t, &models.CartItem{}, &models.ServiceRequest{}, &models.OutboxEvent{})
	f := &fixture{
		conn:   conn,
		locks:  newStubLocker(),
		feed:   newMemFeed(),
		cart:   cart.NewRepository(conn),
		outbox: outbox.NewRepository(conn),
	}
	svc, err := NewService(Deps{
		Requests: NewRepository(conn),
		Cart:     f.cart,
		Tx:       db.NewFromGorm(conn),
		Outbox:   outbox.NewService(f.outbox, nil),
		Locks:    f.locks,
		Feed:     f.feed,
		Vendors:  stubVendors{"V1": "Clínica Vida", "V2": "Academia Forte"},
		Config:   config.SubmissionConfig{LockTTL: time.Second},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) addItem(t *testing.T, userID, serviceID, vendorID, price string, qty int) models.CartItem {
	t.Helper()
	item := models.CartItem{
		ID:         uuid.New(),
		UserID:     userID,
		ServiceID:  serviceID,
		VendorID:   vendorID,
		Name:       "Service " + serviceID,
		UnitPrice:  decimal.RequireFromString(price),
		VendorName: "Vendor " + vendorID,
		Quantity:   qty,
	}
	require.NoError(t, f.cart.Create(context.Background(), &item))
	return item
}

func (f *fixture) cartSize(t *testing.T, userID string) int {
	t.Helper()
	rows, err := f.cart.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	return len(rows)
}

func (f *fixture) requestCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.ServiceRequest{}).Count(&n).Error)
	return n
}

func (f *fixture) events(t *testing.T) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Order("created_at ASC").Find(&rows).Error)
	return rows
}
