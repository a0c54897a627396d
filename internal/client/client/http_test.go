package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/marketlist/internal/client/apitest"
	"github.com/dmitrijs2005/marketlist/internal/client/models"
)

func newTestClient(t *testing.T) (*HTTPClient, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, 2*time.Second), srv
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))
}

func TestPing_ServerDown_Unavailable(t *testing.T) {
	srv := apitest.NewServer()
	c := NewHTTPClient(srv.URL, time.Second)
	srv.Close()

	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLogin_SendsCredentialsAndReturnsToken(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddUser("alice", "secret")

	tok, err := c.Login(context.Background(), "alice", []byte("secret"))
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/login/", reqs[0].Path)
	assert.JSONEq(t, `{"username":"alice","userpassword":"secret"}`, string(reqs[0].Body))
}

func TestLogin_BadCredentials_Unauthorized(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddUser("alice", "secret")

	_, err := c.Login(context.Background(), "alice", []byte("nope"))
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid username or password", apiErr.Detail)
}

func TestRegister_DuplicateCarriesDetail(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "bob", []byte("pw")))

	err := c.Register(ctx, "bob", []byte("pw"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Username already registered", apiErr.Detail)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestCreateUser_ReturnsUsername(t *testing.T) {
	c, srv := newTestClient(t)

	name, err := c.CreateUser(context.Background(), "carol", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "carol", name)
	assert.Equal(t, 1, srv.CountRequests(http.MethodPost, "/users/"))
}

func TestList_SendsBearerAndMapsRecords(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	other := srv.AddUser("eve", "x")
	srv.SeedItem(uid, "Milk", "Pending")
	srv.SeedItem(other, "Not mine", "Pending")
	srv.SeedItem(uid, "Eggs", "Done")
	tok := srv.Token(uid)

	items, err := c.List(context.Background(), tok)
	require.NoError(t, err)

	want := []models.ListItem{
		{ID: 1, Text: "Milk", Status: models.StatusPending},
		{ID: 3, Text: "Eggs", Status: models.StatusDone},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+tok, reqs[0].Authorization)
}

func TestList_EmptyIsNonNil(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")

	items, err := c.List(context.Background(), srv.Token(uid))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestList_InvalidToken_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.List(context.Background(), "not.a.token")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreate_PostsPendingWithUserID(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	tok := srv.Token(uid)

	item, err := c.Create(context.Background(), tok, "Milk", uid)
	require.NoError(t, err)
	assert.Equal(t, models.ListItem{ID: 1, Text: "Milk", Status: models.StatusPending}, item)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+tok, reqs[0].Authorization)

	var body map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, map[string]any{"item_name": "Milk", "item_status": "Pending", "user_id": float64(uid)}, body)
}

func TestUpdate_PutsFullRecord(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	it := srv.SeedItem(uid, "Milk", "Pending")

	item, err := c.Update(context.Background(), srv.Token(uid), it.ID, "Oat milk", models.StatusDone, uid)
	require.NoError(t, err)
	assert.Equal(t, models.ListItem{ID: it.ID, Text: "Oat milk", Status: models.StatusDone}, item)

	assert.Equal(t, 1, srv.CountRequests(http.MethodPut, "/list/1"))
	assert.Equal(t, []apitest.Item{{ID: it.ID, Name: "Oat milk", Status: "Done", UserID: uid}}, srv.Items(uid))
}

func TestUpdate_UnknownItem_NotFound(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")

	_, err := c.Update(context.Background(), srv.Token(uid), 42, "x", models.StatusDone, uid)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove_AcceptsBodyAndDeletes(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	it := srv.SeedItem(uid, "Milk", "Pending")

	require.NoError(t, c.Remove(context.Background(), srv.Token(uid), it.ID))
	assert.Empty(t, srv.Items(uid))
}

func TestMutations_ServerErrorIsTypedAndNotRetried(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	it := srv.SeedItem(uid, "Milk", "Pending")
	srv.FailNext(http.MethodDelete, "/list/1", http.StatusInternalServerError, "db down")

	err := c.Remove(context.Background(), srv.Token(uid), it.ID)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "db down", apiErr.Detail)
	assert.Equal(t, 1, srv.CountRequests(http.MethodDelete, "/list/1"))
	assert.Len(t, srv.Items(uid), 1)
}

func TestCreate_DroppedConnection_Unavailable(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	srv.Drop(http.MethodPost, "/list/")

	_, err := c.Create(context.Background(), srv.Token(uid), "Milk", uid)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, srv.CountRequests(http.MethodPost, "/list/"))
}

func TestDo_ContextCancelled(t *testing.T) {
	c, srv := newTestClient(t)
	uid := srv.AddUser("alice", "secret")
	arrived, release := srv.Hold(http.MethodGet, "/list/")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.List(ctx, srv.Token(uid))
		errCh <- err
	}()

	<-arrived
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewAPIError_DetailShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"Item not found"}`, "Item not found"},
		{"validation list", `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"no detail", `{"error":"x"}`, ""},
		{"not json", `<html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAPIError(http.StatusUnprocessableEntity, []byte(tt.body))
			assert.Equal(t, tt.want, e.Detail)
			assert.Equal(t, http.StatusUnprocessableEntity, e.StatusCode)
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, &APIError{StatusCode: 401}, ErrUnauthorized)
	assert.ErrorIs(t, &APIError{StatusCode: 403}, ErrUnauthorized)
	assert.ErrorIs(t, &APIError{StatusCode: 404}, ErrNotFound)
	assert.ErrorIs(t, &APIError{StatusCode: 503}, ErrUnavailable)
	assert.Nil(t, (&APIError{StatusCode: 400}).Unwrap())
	assert.Equal(t, "server returned 400: bad", (&APIError{StatusCode: 400, Detail: "bad"}).Error())
	assert.Equal(t, "server returned 500", (&APIError{StatusCode: 500}).Error())
}

func TestItemRecord_ToModel(t *testing.T) {
	tests := []struct {
		name    string
		rec     itemRecord
		want    models.ListItem
		wantErr bool
	}{
		{"pending", itemRecord{ItemID: 1, ItemName: "Milk", ItemStatus: "Pending"}, models.ListItem{ID: 1, Text: "Milk", Status: models.StatusPending}, false},
		{"updated", itemRecord{ItemID: 2, ItemName: "Eggs", ItemStatus: "Updated"}, models.ListItem{ID: 2, Text: "Eggs", Status: models.StatusUpdated}, false},
		{"missing id", itemRecord{ItemName: "x", ItemStatus: "Pending"}, models.ListItem{}, true},
		{"unknown status", itemRecord{ItemID: 3, ItemName: "x", ItemStatus: "Archived"}, models.ListItem{}, true},
		{"lowercase status", itemRecord{ItemID: 3, ItemName: "x", ItemStatus: "done"}, models.ListItem{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rec.toModel()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
