package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hangxie/luna-browser/service"
)

// WebUICmd is a kong command for serving Web UI
type WebUICmd struct {
	Addr        string `short:"a" help:"Address to listen on (default :8080)."`
	RowsPerPage int    `name:"rows-per-page" help:"Default page size of table views (default 10)."`
	NoBrowser   bool   `name:"no-browser" help:"Do not open a browser."`
	AugurOption
}

// Run starts the Web UI server
func (w WebUICmd) Run() error {
	cfg, err := w.resolve(w.Addr, w.RowsPerPage)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the web UI server with HTML interface
	return service.StartWebUIServer(ctx, newService(cfg, os.Stderr), cfg.Addr, !w.NoBrowser)
}
