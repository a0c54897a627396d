package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/marketlist/internal/client/client"
	"github.com/dmitrijs2005/marketlist/internal/client/config"
	"github.com/dmitrijs2005/marketlist/internal/client/credentials"
	"github.com/dmitrijs2005/marketlist/internal/client/listsync"
	"github.com/dmitrijs2005/marketlist/internal/client/services"
	"github.com/dmitrijs2005/marketlist/internal/client/session"
	"github.com/dmitrijs2005/marketlist/internal/clock"
	"github.com/dmitrijs2005/marketlist/internal/filex"
	"github.com/dmitrijs2005/marketlist/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	authService services.AuthService
	guard       *session.Guard
	remote      client.ListClient
	db          *sql.DB
	reader      *bufio.Reader

	// list is the synchronizer of the list screen; nil while not on it.
	list *listsync.Synchronizer

	mu   sync.Mutex
	mode Mode
}

// NewApp opens the local database and builds the client services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureDir(filepath.Dir(c.DatabasePath)); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerBaseURL, c.RequestTimeout)
	store := credentials.NewSQLiteStore(db)
	guard := session.NewGuard(store, clock.System{}, logger)

	return &App{
		config:      c,
		logger:      logger,
		authService: services.NewAuthService(api, store, guard, logger),
		guard:       guard,
		remote:      api,
		db:          db,
		reader:      bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

// Run shows the list right away when a valid session is stored, then runs
// the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to the market list CLI (type 'help' for commands)")

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	if a.isLoggedIn(ctx) {
		_ = a.List(ctx)
	}

	runREPL(ctx, a, func() string { return a.getStatus(ctx) }, a.reader)
}

// Close ends the list screen and releases the database.
func (a *App) Close() {
	a.closeList()
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.guard.Allowed(ctx, session.RouteList) == session.RouteList
}

func (a *App) getStatus(ctx context.Context) string {
	who := "Guest"
	if name, err := a.authService.UserName(ctx); err == nil && name != "" {
		who = "Welcome, " + name
	}
	if mode := a.getMode(); mode != "" {
		return fmt.Sprintf("(%s | %s)", who, mode)
	}
	return fmt.Sprintf("(%s)", who)
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// connectivity mode accordingly. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
