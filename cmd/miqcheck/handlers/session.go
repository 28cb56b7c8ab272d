// Package handlers implements the business logic for CLI commands.
//
// Each handler opens a session against the appliance, runs its operation and
// renders the outcome to the writer it is given. Command-line parsing lives
// in the commands package.
package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/miqcheck/internal/appliance"
	"github.com/imamik/miqcheck/internal/config"
	"github.com/imamik/miqcheck/internal/logging"
	"github.com/imamik/miqcheck/internal/metrics"
)

// metricsJob is the Pushgateway job the CLI pushes under.
const metricsJob = "miqcheck"

// Globals are the settings shared by every command. Empty fields leave the
// config file and environment values untouched.
type Globals struct {
	ConfigPath  string
	URL         string
	Username    string
	Password    string
	Token       string
	InsecureTLS bool
	Pushgateway string
}

func (g Globals) override(cfg *config.Config) {
	if g.URL != "" {
		cfg.Appliance.URL = g.URL
	}
	if g.Username != "" {
		cfg.Appliance.Username = g.Username
	}
	if g.Password != "" {
		cfg.Appliance.Password = g.Password
	}
	if g.Token != "" {
		cfg.Appliance.Token = g.Token
	}
	if g.InsecureTLS {
		cfg.Appliance.InsecureTLS = true
	}
}

type session struct {
	app      *appliance.Appliance
	recorder *metrics.Recorder
	globals  Globals
}

func openSession(g Globals) (*session, error) {
	cfg, err := config.Load(g.ConfigPath, g.override)
	if err != nil {
		return nil, err
	}
	recorder := metrics.NewRecorder()
	app, err := appliance.Connect(cfg, nil, appliance.WithObserver(recorder))
	if err != nil {
		return nil, err
	}
	return &session{app: app, recorder: recorder, globals: g}, nil
}

// close pushes the recorded poll metrics when a Pushgateway is configured.
// A failed push is logged; it never fails the command.
func (s *session) close(ctx context.Context) {
	if s.globals.Pushgateway == "" {
		return
	}
	if err := s.recorder.Push(ctx, s.globals.Pushgateway, metricsJob); err != nil {
		logging.FromContext(ctx).Error(err, "metrics not pushed")
		return
	}
	logging.FromContext(ctx).V(1).Info("pushed metrics", "url", s.globals.Pushgateway)
}

func withSession(ctx context.Context, g Globals, fn func(*session) error) error {
	s, err := openSession(g)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer s.close(ctx)
	return fn(s)
}
