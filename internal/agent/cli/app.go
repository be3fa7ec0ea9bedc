package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"fieldvault/internal/agent/config"
	"fieldvault/internal/agent/quota"
	"fieldvault/internal/agent/store"
	engine "fieldvault/internal/agent/sync"
	"fieldvault/internal/agent/upload"
	"fieldvault/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// session hands the current operator's credentials to the sync engine. The
// engine is built before anyone logs in, so the provider is swapped in later.
type session struct {
	mu       sync.Mutex
	operator string
	creds    upload.CredentialProvider
}

func (s *session) set(operator string, creds upload.CredentialProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operator = operator
	s.creds = creds
}

func (s *session) get() (string, upload.CredentialProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operator, s.creds
}

// Token implements upload.CredentialProvider by delegating to the logged-in
// operator's provider.
func (s *session) Token(ctx context.Context) (string, error) {
	_, creds := s.get()
	if creds == nil {
		return "", errNotLoggedIn
	}
	return creds.Token(ctx)
}

// App ties the capture pipeline, local store, sync engine and quota monitor
// together behind the interactive prompt.
type App struct {
	config  *config.Config
	store   *store.Store
	client  *upload.HTTPClient
	engine  *engine.Engine
	quota   *quota.Monitor
	session session
	log     logging.Logger

	modeMu sync.Mutex
	mode   Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store and wires the background machinery. Nothing
// touches the network until login or the first watcher tick.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	st, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: c,
		store:  st,
		client: upload.NewHTTPClient(c.ServerURL, c.CallTimeout),
		log:    log,
		mode:   ModeOffline,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	app.engine = engine.NewEngine(st.Repos.Evidence, st.Repos.SyncQueue, app.client, &app.session, log, engine.Options{
		MaxRetries:   c.MaxRetries,
		BatchSize:    c.BatchSize,
		SyncInterval: c.SyncInterval,
		StartupDelay: c.StartupDelay,
	})
	app.quota = quota.NewMonitor(st.Repos.Evidence, log, quota.Options{
		QuotaBytes: c.QuotaBytes,
		WarnRatio:  c.QuotaWarnRatio,
		EvictRatio: c.QuotaEvictRatio,
	})
	app.quota.OnWarn = func(rep quota.Report) {
		printlnFn("WARNING: local storage", formatBytes(rep.UsedBytes), "of", formatBytes(rep.QuotaBytes), "used")
	}

	return app, nil
}

func (a *App) isLoggedIn() bool {
	_, creds := a.session.get()
	return creds != nil
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		printlnFn("Switched to", string(mode), "mode")
	}
	a.engine.SetOnline(mode == ModeOnline)
}

func (a *App) getMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) statusLine() string {
	operator, _ := a.session.get()
	if operator == "" {
		operator = "-"
	}
	return operator + " " + string(a.getMode())
}

// Run starts the background loops and blocks in the interactive prompt until
// the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.engine.Run(ctx)
	go a.quota.Run(ctx, a.config.QuotaCheckInterval)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	printlnFn("FieldVault agent (type 'help' for commands)")
	runREPL(ctx, a, a.statusLine, bufio.NewScanner(os.Stdin))

	if err := a.store.Close(); err != nil {
		a.log.Error(ctx, "failed to close local store", "error", err)
	}
}

// StartOnlineStatusWatcher probes backend reachability on the given interval
// and flips the mode accordingly. The engine is told about every change, so
// an offline → online flip starts a drain cycle.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.client.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
