package listsync

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/marketlist/internal/client/client"
)

var (
	ErrEmptyText       = errors.New("item text is empty")
	ErrNoIdentity      = errors.New("no valid identity")
	ErrIndexOutOfRange = errors.New("item index out of range")
	ErrNotEditing      = errors.New("no item is being edited")
	ErrItemRemoved     = errors.New("item was removed")
	ErrStaleResponse   = errors.New("list load superseded by a newer one")
	ErrClosed          = errors.New("synchronizer closed")
)

// Message turns an operation error into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrEmptyText):
		return "item text must not be empty"
	case errors.Is(err, ErrNoIdentity), errors.Is(err, client.ErrUnauthorized):
		return "your session is no longer valid, please log in again"
	case errors.Is(err, client.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "no response from server"
	case errors.Is(err, ErrIndexOutOfRange):
		return "no such item"
	case errors.Is(err, ErrItemRemoved):
		return "item was removed"
	case errors.Is(err, ErrNotEditing):
		return "no item is being edited"
	case errors.Is(err, ErrClosed):
		return "list is closed"
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, client.ErrNotFound) {
		return "item no longer exists on the server"
	}
	if errors.Is(err, client.ErrBadResponse) {
		return "unexpected response from server"
	}
	return err.Error()
}
