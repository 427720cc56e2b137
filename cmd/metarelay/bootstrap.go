package main

import (
	"github.com/metarelay/metarelay/internal/cloud"
	"github.com/metarelay/metarelay/internal/config"
	"github.com/metarelay/metarelay/internal/dispatch"
	"github.com/metarelay/metarelay/internal/registry"
	"github.com/metarelay/metarelay/internal/store"
	"github.com/metarelay/metarelay/internal/supervisor"
)

// daemon bundles every collaborator the supervisor needs, assembled from a
// loaded and validated configuration file.
type daemon struct {
	cfg        *config.Config
	store      *store.Store
	supervisor *supervisor.Supervisor
}

// buildDaemon loads configPath, opens the event store, builds the handler
// registry, and wires a Supervisor against a Supabase cloud client. The
// caller owns the returned daemon's store and must Close it.
func buildDaemon(configPath string) (*daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	for _, h := range cfg.Handlers {
		reg.Register(h)
	}

	disp := dispatch.New()
	port := cloud.NewSupabaseClient(cfg.Cloud.SupabaseURL, cfg.Cloud.SupabaseKey)
	sup := supervisor.New(cfg, st, reg, disp, port)

	return &daemon{cfg: cfg, store: st, supervisor: sup}, nil
}

func (d *daemon) Close() error {
	return d.store.Close()
}
