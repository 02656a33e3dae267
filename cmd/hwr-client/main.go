package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/beamline-remote/hwr-client/internal/api"
	"github.com/beamline-remote/hwr-client/internal/config"
	"github.com/beamline-remote/hwr-client/internal/session"
	"github.com/beamline-remote/hwr-client/internal/snapshot"
	"github.com/beamline-remote/hwr-client/internal/state"
	"github.com/beamline-remote/hwr-client/internal/transport"
	"github.com/beamline-remote/hwr-client/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const defaultLogFile = "hwr-client.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "hwr-client.yaml", "Path to config file")
	host := pflag.String("host", "", "Override server host")
	port := pflag.IntP("port", "p", 0, "Override server port")
	token := pflag.String("token", "", "Auth token sent on every request")
	codec := pflag.String("codec", "", "Frame encoding: json or cbor")
	snapshotPath := pflag.String("snapshot", "", "Image file returned for snapshot requests")
	logLevel := pflag.String("log-level", "", "Log level: debug, info, warn or error")
	headless := pflag.Bool("headless", false, "Log state changes instead of drawing the terminal view")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || pflag.CommandLine.Changed("config") {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.Default()
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *token != "" {
		cfg.Server.Token = *token
	}
	if *codec != "" {
		cfg.Session.Codec = *codec
	}
	if *snapshotPath != "" {
		cfg.Snapshot.Path = *snapshotPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Log, *headless)
	if err != nil {
		return err
	}
	defer closeLog()

	frameCodec, err := transport.NewCodec(cfg.Session.Codec)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	adapter := transport.NewAdapter(transport.Endpoint{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Secure:    cfg.Server.Secure,
		Token:     cfg.Server.Token,
		SessionID: id,
	}, frameCodec, transport.Options{
		ReconnectBaseDelay: cfg.Transport.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Transport.ReconnectMaxDelay,
		PingInterval:       cfg.Transport.PingInterval,
		PongTimeout:        cfg.Transport.PongTimeout,
		WriteTimeout:       cfg.Transport.WriteTimeout,
	}, logger)

	client := api.NewClient(cfg.Server.BaseURL(), cfg.Server.APIPrefix, cfg.Server.Token, cfg.Session.RequestTimeout).
		WithSession(id)

	var camera snapshot.Source
	if cfg.Snapshot.Path != "" {
		camera = snapshot.FileSource{Path: cfg.Snapshot.Path}
	}

	store := state.NewStore()
	sess := session.New(cfg.Session, session.Deps{
		ID:        id,
		Transport: adapter,
		API:       client,
		Sink:      store,
		Camera:    camera,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"server", cfg.Server.BaseURL(),
		"codec", frameCodec.Name(),
		"headless", *headless,
	)

	if *headless {
		return runHeadless(ctx, sess, store, logger)
	}
	return runView(ctx, stop, sess, store)
}

func runHeadless(ctx context.Context, sess *session.Session, store *state.Store, logger *slog.Logger) error {
	unsubscribe := store.Subscribe(func(m state.Mutation) {
		logger.Info("state changed", "mutation", fmt.Sprintf("%T", m))
	})
	defer unsubscribe()

	err := sess.Run(ctx)
	if errors.Is(err, session.ErrSignedOut) {
		logger.Info("signed out by server")
		return nil
	}
	return err
}

func runView(ctx context.Context, stop context.CancelFunc, sess *session.Session, store *state.Store) error {
	p := tea.NewProgram(ui.New(store, sess, ui.Options{}), tea.WithAltScreen())

	stopWatch := ui.Watch(store, p.Send)
	defer stopWatch()

	done := make(chan error, 1)
	go func() {
		err := sess.Run(ctx)
		done <- err
		p.Send(ui.DoneMsg{Err: err})
	}()

	_, viewErr := p.Run()
	stop()
	err := <-done
	if viewErr != nil {
		return viewErr
	}
	if errors.Is(err, session.ErrSignedOut) {
		fmt.Fprintln(os.Stderr, "Signed out by server.")
		return nil
	}
	return err
}

// newLogger builds the process logger. The terminal view owns stdout
// and stderr, so it always logs to a file.
func newLogger(cfg config.LogConfig, headless bool) (*slog.Logger, func(), error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	path := cfg.File
	if path == "" && !headless {
		path = defaultLogFile
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
