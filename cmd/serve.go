package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hangxie/luna-browser/service"
)

// ServeCmd is a kong command for serving the JSON API
type ServeCmd struct {
	Addr        string `short:"a" help:"Address to listen on (default :8080)."`
	RowsPerPage int    `name:"rows-per-page" help:"Default page size of table views (default 10)."`
	AugurOption
}

// Run starts the HTTP API server and stops it on SIGINT or SIGTERM
func (s ServeCmd) Run() error {
	cfg, err := s.resolve(s.Addr, s.RowsPerPage)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return service.StartServer(ctx, newService(cfg, os.Stderr), cfg.Addr)
}
