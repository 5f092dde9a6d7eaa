package requests

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
)

func TestSubmitCreatesPendingRequestAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)
	f.addItem(t, "uid-1", "B", "V1", "15.00", 2)

	res, err := f.svc.Submit(ctx, SubmitInput{ClientID: "uid-1", ClientName: "Maria"})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, enums.RequestStatusPending, res.Status)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("50.00")))

	assert.Zero(t, f.cartSize(t, "uid-1"))

	var stored models.ServiceRequest
	require.NoError(t, f.conn.First(&stored, "id = ?", res.RequestID).Error)
	assert.Equal(t, "V1", stored.VendorID)
	assert.Equal(t, "Maria", stored.ClientName)
	assert.True(t, stored.ContactConsent)
	assert.False(t, stored.IsDeleted)
	assert.False(t, stored.CreatedAt.IsZero())
	require.Len(t, stored.Lines, 2)
	for _, line := range stored.Lines {
		if line.ServiceID == "B" {
			assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("30.00")))
			assert.Equal(t, "Vendor V1", line.VendorName)
		}
	}
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("50")))

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventRequestCreated, events[0].EventType)
	assert.Equal(t, res.RequestID, events[0].AggregateID)

	assert.Equal(t, 1, f.feed.noticeCount())
	assert.Empty(t, f.locks.held)
	assert.Equal(t, 1, f.locks.released)
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitInput{ClientID: "uid-1", ClientName: "Maria"})
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.CodeOf(err))
	require.Zero(t, f.requestCount(t))
	require.Zero(t, f.feed.noticeCount())
	require.Empty(t, f.locks.held)
}

func TestSubmitRevalidatesSingleVendor(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)
	f.addItem(t, "uid-1", "C", "V2", "10.00", 1)

	_, err := f.svc.Submit(context.Background(), SubmitInput{ClientID: "uid-1"})
	require.ErrorIs(t, err, cart.ErrVendorConflict)
	require.Equal(t, 2, f.cartSize(t, "uid-1"))
	require.Zero(t, f.requestCount(t))
	require.Empty(t, f.events(t))
}

func TestSubmitReplaysIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)
	in := SubmitInput{ClientID: "uid-1", ClientName: "Maria", IdempotencyKey: "key-123"}

	first, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.RequestID, second.RequestID)
	require.True(t, second.Total.Equal(first.Total))

	require.EqualValues(t, 1, f.requestCount(t))
	require.Len(t, f.events(t), 1)
	require.Equal(t, 1, f.feed.noticeCount())

	f.addItem(t, "uid-1", "B", "V1", "15.00", 1)
	third, err := f.svc.Submit(ctx, SubmitInput{ClientID: "uid-1", IdempotencyKey: "key-456"})
	require.NoError(t, err)
	require.NotEqual(t, first.RequestID, third.RequestID)
}

func TestIdempotencyKeysAreScopedPerClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)
	f.addItem(t, "uid-2", "A", "V1", "20.00", 1)

	one, err := f.svc.Submit(ctx, SubmitInput{ClientID: "uid-1", IdempotencyKey: "same"})
	require.NoError(t, err)
	two, err := f.svc.Submit(ctx, SubmitInput{ClientID: "uid-2", IdempotencyKey: "same"})
	require.NoError(t, err)
	require.NotEqual(t, one.RequestID, two.RequestID)
	require.False(t, two.Replayed)
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)

	_, err := f.locks.AcquireLock(ctx, f.locks.LockKey(submitLockScope, "uid-1"), 0)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, SubmitInput{ClientID: "uid-1"})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	require.Equal(t, 1, f.cartSize(t, "uid-1"))
	require.Zero(t, f.requestCount(t))
}

func TestSubmitValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitInput{})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	long := make([]byte, MaxIdempotencyKeyLength+1)
	for i := range long {
		long[i] = 'k'
	}
	_, err = f.svc.Submit(context.Background(), SubmitInput{ClientID: "uid-1", IdempotencyKey: string(long)})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSubmitAcceptsKeyAtMaxLength(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 255, MaxIdempotencyKeyLength)

	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)
	key := strings.Repeat("k", MaxIdempotencyKeyLength)
	res, err := f.svc.Submit(context.Background(), SubmitInput{ClientID: "uid-1", ClientName: "Maria", IdempotencyKey: key})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.RequestID)
}

func TestSubmittedRequestIgnoresLaterCatalogChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "uid-1", "A", "V1", "20.00", 1)

	res, err := f.svc.Submit(ctx, SubmitInput{ClientID: "uid-1"})
	require.NoError(t, err)

	// The vendor disappears from the catalog after submission.
	f.svc.(*service).vendors = stubVendors{}

	view, err := f.svc.Get(ctx, "uid-1", res.RequestID)
	require.NoError(t, err)
	require.Equal(t, "Empresa desconhecida", view.VendorName)
	require.True(t, view.Total.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, view.Lines, 1)
	require.Equal(t, "Vendor V1", view.Lines[0].VendorName)
	require.True(t, view.Lines[0].UnitPrice.Equal(decimal.RequireFromString("20.00")))
}

func TestSnapshotLines(t *testing.T) {
	items := []models.CartItem{
		{ServiceID: "A", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ServiceID: "B", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1},
	}
	lines, total := SnapshotLines(items)
	require.Len(t, lines, 2)
	require.True(t, lines[0].LineTotal.Equal(decimal.RequireFromString("20.00")))
	require.True(t, total.Equal(decimal.RequireFromString("25.50")))
}
