package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/marketlist/internal/client/client"
	"github.com/dmitrijs2005/marketlist/internal/client/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// authMessage turns an authentication error into user-facing text.
func authMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingUsername), errors.Is(err, services.ErrMissingPassword):
		return err.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "no response from server"
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return "invalid username or password"
	}
	return err.Error()
}

func (a *App) readCredentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.reader, os.Stdout)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register prompts for a username and password and creates an account via
// /register/. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		printlnFn("Registration failed:", authMessage(err))
		return err
	}

	printlnFn("Registered. You can log in now.")
	return nil
}

// SignUp is Register against the /users/ endpoint.
func (a *App) SignUp(ctx context.Context) error {
	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	name, err := a.authService.SignUp(ctx, userName, password)
	if err != nil {
		printlnFn("Sign up failed:", authMessage(err))
		return err
	}

	printlnFn("User", name, "created. You can log in now.")
	return nil
}

// Login prompts for credentials, stores the issued token and opens the list
// screen. A second login while a valid session exists is refused.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn(ctx) {
		name, _ := a.authService.UserName(ctx)
		printlnFn("Already logged in as", name+". Log out first.")
		return nil
	}

	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	if err := a.authService.Login(ctx, userName, password); err != nil {
		a.logger.Debug(ctx, "login failed", "error", err)
		printlnFn("Login failed:", authMessage(err))
		return err
	}

	a.closeList()
	return a.List(ctx)
}

// Logout drops the list screen, cancelling anything in flight, and clears
// the stored credentials.
func (a *App) Logout(ctx context.Context) error {
	a.closeList()
	if err := a.authService.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err)
		return err
	}
	printlnFn("Logged out.")
	return nil
}
