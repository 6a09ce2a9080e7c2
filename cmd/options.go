package cmd

import (
	"io"
	"log/slog"
	"time"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/config"
	"github.com/hangxie/luna-browser/logging"
	"github.com/hangxie/luna-browser/service"
)

// AugurOption is the flag group every command embeds
type AugurOption struct {
	AugurHost string        `name:"augur-host" env:"LUNA_AUGUR_HOST" help:"Base URL of the Augur backend."`
	Timeout   time.Duration `help:"Timeout of each Augur request (default 30s)."`
	Config    string        `short:"c" predictor:"file" help:"YAML config file."`
	LogLevel  string        `name:"log-level" help:"Log level: debug, info, warn or error (default info)."`
	LogFormat string        `name:"log-format" help:"Log format: text or json (default text)."`
}

// resolve merges flags and environment over the config file over the
// defaults, then validates the result
func (o AugurOption) resolve(addr string, rowsPerPage int) (config.Config, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return cfg, err
	}

	cfg = cfg.Merge(config.Config{
		AugurHost:   o.AugurHost,
		Addr:        addr,
		RowsPerPage: rowsPerPage,
		Timeout:     o.Timeout,
		LogLevel:    o.LogLevel,
		LogFormat:   o.LogFormat,
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newAugurClient builds the upstream client for cfg
func newAugurClient(cfg config.Config, logger *slog.Logger) *client.AugurClient {
	return client.NewAugurClient(cfg.AugurHost,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logger),
	)
}

// newService wires a service over a fresh Augur client, logging to w
func newService(cfg config.Config, w io.Writer) *service.LunaService {
	logger := logging.New(w, cfg.LogLevel, cfg.LogFormat)
	if cfg.AugurHost == "" {
		logger.Warn("LUNA_AUGUR_HOST is not set, every Augur call will fail")
	}
	return service.NewLunaService(newAugurClient(cfg, logger),
		service.WithLogger(logger),
		service.WithRowsPerPage(cfg.RowsPerPage),
	)
}
