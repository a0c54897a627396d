// Package credentials persists the bearer token and the display name of the
// logged-in user. It is the only owner of "is this client logged in" state
// on disk; it never looks inside the token and never talks to the network.
package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/marketlist/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/marketlist/internal/dbx"
)

const (
	KeyToken    = "token"
	KeyUserName = "userName"
)

// Store is the credential store contract.
//
// Load and UserName return "" when nothing is stored. Clear is idempotent.
type Store interface {
	Save(ctx context.Context, token, userName string) error
	Load(ctx context.Context) (string, error)
	UserName(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// SQLiteStore keeps credentials in the metadata table of the local database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save writes the token and, if no display name is stored yet, userName.
// Both writes happen in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, token, userName string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		if err := repo.Set(ctx, KeyToken, token); err != nil {
			return err
		}

		_, ok, err := repo.Get(ctx, KeyUserName)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return repo.Set(ctx, KeyUserName, userName)
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	token, _, err := metadata.NewSQLiteRepository(s.db).Get(ctx, KeyToken)
	return token, err
}

func (s *SQLiteStore) UserName(ctx context.Context) (string, error) {
	name, _, err := metadata.NewSQLiteRepository(s.db).Get(ctx, KeyUserName)
	return name, err
}

// Clear removes the token and the display name together.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, KeyToken, KeyUserName); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
