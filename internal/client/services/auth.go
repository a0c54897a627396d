// Package services contains application services for the market list client.
// This file defines the authentication service: register, login, logout,
// the liveness probe and access to the stored display name.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/marketlist/internal/client/client"
	"github.com/dmitrijs2005/marketlist/internal/client/credentials"
	"github.com/dmitrijs2005/marketlist/internal/client/session"
	"github.com/dmitrijs2005/marketlist/internal/logging"
)

var (
	ErrMissingUsername = errors.New("username is required")
	ErrMissingPassword = errors.New("password is required")
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create an account via /register/.
//   - SignUp: create an account via /users/, returns the stored username.
//   - Login: exchange credentials for a token and persist it.
//   - Logout: forget the token and display name. Idempotent.
//   - UserName: the stored display name, "" when logged out.
//   - Ping: check server liveness.
//
// Input is validated before any network call.
type AuthService interface {
	Register(ctx context.Context, username string, password []byte) error
	SignUp(ctx context.Context, username string, password []byte) (string, error)
	Login(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	UserName(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

// SessionSource reports whether the stored credentials still form a valid
// session. *session.Guard implements it.
type SessionSource interface {
	Session(ctx context.Context) (session.Session, error)
}

type authService struct {
	client   client.AuthClient
	store    credentials.Store
	sessions SessionSource
	logger   logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client,
// credential store and the session source reading that store.
func NewAuthService(c client.AuthClient, store credentials.Store, sessions SessionSource, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &authService{client: c, store: store, sessions: sessions, logger: logger.With("component", "auth")}
}

func validate(username string, password []byte) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrMissingUsername
	}
	if len(password) == 0 {
		return "", ErrMissingPassword
	}
	return username, nil
}

func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	username, err := validate(username, password)
	if err != nil {
		return err
	}
	if err := a.client.Register(ctx, username, password); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	a.logger.Info(ctx, "user registered", "username", username)
	return nil
}

func (a *authService) SignUp(ctx context.Context, username string, password []byte) (string, error) {
	username, err := validate(username, password)
	if err != nil {
		return "", err
	}
	name, err := a.client.CreateUser(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("sign up error: %w", err)
	}
	a.logger.Info(ctx, "user created", "username", name)
	return name, nil
}

// Login authenticates against the server and saves the returned token
// together with the display name. Credentials left behind by an invalid
// session are cleared first, so the display name always belongs to the
// user who just logged in.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	username, err := validate(username, password)
	if err != nil {
		return err
	}

	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if _, err := a.sessions.Session(ctx); err != nil {
		a.logger.Debug(ctx, "clearing stale credentials", "reason", err)
		if err := a.store.Clear(ctx); err != nil {
			return fmt.Errorf("credentials clearing error: %w", err)
		}
	}

	if err := a.store.Save(ctx, token, username); err != nil {
		return fmt.Errorf("credentials saving error: %w", err)
	}
	a.logger.Info(ctx, "logged in", "username", username)
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	a.logger.Info(ctx, "logged out")
	return nil
}

func (a *authService) UserName(ctx context.Context) (string, error) {
	return a.store.UserName(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
