package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/acertamais-backend/api/middleware"
	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/internal/requests"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
)

type stubCart struct {
	view    *cart.View
	item    *models.CartItem
	err     error
	gotQty  int
	removed uuid.UUID
}

func (s *stubCart) Load(context.Context, string) (*cart.View, error) { return s.view, s.err }

func (s *stubCart) Add(_ context.Context, _ string, serviceID string) (*models.CartItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	item := *s.item
	item.ServiceID = serviceID
	return &item, nil
}

func (s *stubCart) SetQuantity(_ context.Context, _ string, _ uuid.UUID, quantity int) (*models.CartItem, error) {
	s.gotQty = quantity
	return s.item, s.err
}

func (s *stubCart) Remove(_ context.Context, _ string, itemID uuid.UUID) error {
	s.removed = itemID
	return s.err
}

type stubRequests struct {
	submit *requests.SubmitResult
	view   *requests.RequestView
	snap   *requests.Snapshot
	page   *requests.HistoryPage
	err    error
	input  requests.SubmitInput
	status enums.RequestStatus
	params pagination.Params
	stream *stubStream
}

func (s *stubRequests) Submit(_ context.Context, in requests.SubmitInput) (*requests.SubmitResult, error) {
	s.input = in
	return s.submit, s.err
}

func (s *stubRequests) Cancel(context.Context, string, uuid.UUID) (*requests.RequestView, error) {
	return s.view, s.err
}

func (s *stubRequests) Get(context.Context, string, uuid.UUID) (*requests.RequestView, error) {
	return s.view, s.err
}

func (s *stubRequests) ListPending(context.Context, string) (*requests.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubRequests) Subscribe(context.Context, string) (requests.Stream, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.stream.updates <- *s.snap
	return s.stream, nil
}

func (s *stubRequests) History(_ context.Context, _ string, status enums.RequestStatus, params pagination.Params) (*requests.HistoryPage, error) {
	s.status = status
	s.params = params
	return s.page, s.err
}

type stubStream struct {
	updates chan requests.Snapshot
	closed  chan struct{}
	once    sync.Once
}

func newStubStream() *stubStream {
	return &stubStream{updates: make(chan requests.Snapshot, 1), closed: make(chan struct{})}
}

func (st *stubStream) Updates() <-chan requests.Snapshot { return st.updates }

func (st *stubStream) Close() error {
	st.once.Do(func() { close(st.closed) })
	return nil
}

type stubNames map[string]string

func (s stubNames) DisplayName(_ context.Context, userID string) (string, error) {
	if name, ok := s[userID]; ok {
		return name, nil
	}
	return "Cliente", nil
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}
