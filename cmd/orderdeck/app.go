package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"github.com/waabox/orderdeck/internal/api"
	"github.com/waabox/orderdeck/internal/config"
	"github.com/waabox/orderdeck/internal/domain"
	"github.com/waabox/orderdeck/internal/logging"
	"github.com/waabox/orderdeck/internal/session"
	"github.com/waabox/orderdeck/internal/tui"
)

// app is everything a command needs, built from the config file.
type app struct {
	configPath string
	cfg        config.Config
	log        *log.Logger
	session    *session.Session
	client     *api.Client
	relay      *tui.Relay
}

func newApp() (*app, error) {
	configPath := opts.Config
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.URL != "" {
		cfg.API.BaseURL = opts.URL
	}
	logger := logging.New(cfg.Log)

	store, err := session.OpenFileStore(cfg.SessionPathOrDefault())
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	sess := session.New(store)

	relay := &tui.Relay{Fallback: tui.NewNotifier(os.Stdin, os.Stderr, sess.Clear)}
	client, err := api.NewClient(cfg.BaseURLOrDefault(), sess,
		api.WithLogger(logger),
		api.WithNotifier(relay),
		api.WithTimeout(cfg.Timeout()),
		api.WithUserAgent("orderdeck/"+version),
	)
	if err != nil {
		return nil, err
	}
	logger.Debugf("using backend %s, session %s", cfg.BaseURLOrDefault(), store.Path())

	return &app{
		configPath: configPath,
		cfg:        cfg,
		log:        logger,
		session:    sess,
		client:     client,
		relay:      relay,
	}, nil
}

// requireSession fails fast when there is nothing to authenticate with.
func (a *app) requireSession() error {
	if !a.client.IsAuthenticated() {
		return fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, tui.LoginHint)
	}
	return nil
}

// signalContext returns a context cancelled on interrupt.
func (a *app) signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
