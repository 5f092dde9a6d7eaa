package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
	"github.com/angelmondragon/acertamais-backend/pkg/types"
)

func (f *fixture) submit(t *testing.T, userID string) uuid.UUID {
	t.Helper()
	f.addItem(t, userID, "A", "V1", "20.00", 1)
	res, err := f.svc.Submit(context.Background(), SubmitInput{ClientID: userID, ClientName: "Maria"})
	require.NoError(t, err)
	return res.RequestID
}

func TestCancelIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, "uid-1")

	view, err := f.svc.Cancel(ctx, "uid-1", id)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusCancelled, view.Status)
	assert.NotNil(t, view.CancelledAt)

	again, err := f.svc.Cancel(ctx, "uid-1", id)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusCancelled, again.Status)

	var stored models.ServiceRequest
	require.NoError(t, f.conn.First(&stored, "id = ?", id).Error)
	assert.Equal(t, enums.RequestStatusCancelled, stored.Status)
	assert.True(t, stored.IsDeleted)

	var cancelled int
	for _, ev := range f.events(t) {
		if ev.EventType == enums.EventRequestCancelled {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 2, f.feed.noticeCount())
}

func TestCancelConfirmedIsStateConflict(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "uid-1")
	require.NoError(t, f.conn.Model(&models.ServiceRequest{}).Where("id = ?", id).Update("status", enums.RequestStatusConfirmed).Error)

	_, err := f.svc.Cancel(context.Background(), "uid-1", id)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestCancelOtherClientsRequestIsNotFound(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "uid-1")

	_, err := f.svc.Cancel(context.Background(), "uid-2", id)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	_, err = f.svc.Get(context.Background(), "uid-2", id)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	_, err = f.svc.Cancel(context.Background(), "uid-1", uuid.Nil)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListPendingExcludesCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.submit(t, "uid-1")
	drop := f.submit(t, "uid-1")
	f.submit(t, "uid-2")

	_, err := f.svc.Cancel(ctx, "uid-1", drop)
	require.NoError(t, err)

	snap, err := f.svc.ListPending(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, snap.Requests, 1)
	require.Equal(t, keep, snap.Requests[0].ID)
	require.Equal(t, "Vendor V1", snap.Requests[0].VendorName)
}

func TestSubscribeStreamsSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.submit(t, "uid-1")

	sub, err := f.svc.Subscribe(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, 1, f.feed.listenerCount("uid-1"))

	initial := receive(t, sub)
	require.Len(t, initial.Requests, 1)
	require.Equal(t, first, initial.Requests[0].ID)

	second := f.submit(t, "uid-1")
	snap := receive(t, sub)
	require.Len(t, snap.Requests, 2)
	require.Equal(t, second, snap.Requests[0].ID)

	_, err = f.svc.Cancel(ctx, "uid-1", first)
	require.NoError(t, err)
	snap = receive(t, sub)
	require.Len(t, snap.Requests, 1)
	require.Equal(t, second, snap.Requests[0].ID)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.Zero(t, f.feed.listenerCount("uid-1"))
	_, open := <-sub.Updates()
	require.False(t, open)
}

func TestSubscribeEndsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := f.svc.Subscribe(ctx, "uid-1")
	require.NoError(t, err)
	initial := receive(t, sub)
	require.Empty(t, initial.Requests)

	cancel()
	select {
	case _, open := <-sub.Updates():
		require.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end with its context")
	}
	require.NoError(t, sub.Close())
	require.Zero(t, f.feed.listenerCount("uid-1"))
}

func receive(t *testing.T, sub Stream) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "updates closed early")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestHistoryPagesConfirmedRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		vendor := "V1"
		if i == 2 {
			vendor = "gone"
		}
		require.NoError(t, f.conn.Create(&models.ServiceRequest{
			ID:             uuid.New(),
			ClientID:       "uid-1",
			ClientName:     "Maria",
			VendorID:       vendor,
			Lines:          types.RequestLines{},
			Total:          decimal.NewFromInt(int64(10 * (i + 1))),
			Status:         enums.RequestStatusConfirmed,
			ContactConsent: true,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}
	f.submit(t, "uid-1")

	page, err := f.svc.History(ctx, "uid-1", "", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Empresa desconhecida", page.Items[0].VendorName)
	require.Equal(t, "Clínica Vida", page.Items[1].VendorName)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.History(ctx, "uid-1", enums.RequestStatusConfirmed, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.Empty(t, next.NextCursor)
	require.True(t, next.Items[0].Total.Equal(decimal.NewFromInt(10)))

	pending, err := f.svc.History(ctx, "uid-1", enums.RequestStatusPending, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)

	_, err = f.svc.History(ctx, "uid-1", "archived", pagination.Params{})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = f.svc.History(ctx, "uid-1", "", pagination.Params{Cursor: "!!"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

type failingVendors struct{}

func (failingVendors) VendorNames(context.Context, []string) (map[string]string, error) {
	return nil, pkgerrors.New(pkgerrors.CodeFetch, "load vendors: breaker open")
}

func TestReadsFallBackToSnapshotWhenCatalogFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, "uid-1")
	f.svc.(*service).vendors = failingVendors{}

	view, err := f.svc.Get(ctx, "uid-1", id)
	require.NoError(t, err)
	require.Equal(t, "Vendor V1", view.VendorName)

	page, err := f.svc.History(ctx, "uid-1", enums.RequestStatusPending, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Vendor V1", page.Items[0].VendorName)
}
