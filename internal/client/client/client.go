package client

import (
	"context"

	"github.com/dmitrijs2005/marketlist/internal/client/models"
)

// AuthClient covers the account endpoints and the liveness probe.
type AuthClient interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, username string, password []byte) error
	CreateUser(ctx context.Context, username string, password []byte) (string, error)
	Login(ctx context.Context, username string, password []byte) (string, error)
}

// ListClient maps list operations to the backend. Every call is a single
// attempt; failures are returned to the caller unchanged in kind.
type ListClient interface {
	List(ctx context.Context, token string) ([]models.ListItem, error)
	Create(ctx context.Context, token string, text string, subjectID int64) (models.ListItem, error)
	Update(ctx context.Context, token string, id int64, text string, status models.Status, subjectID int64) (models.ListItem, error)
	Remove(ctx context.Context, token string, id int64) error
}

type Client interface {
	AuthClient
	ListClient
}
