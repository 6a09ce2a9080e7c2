package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/config"
	"github.com/hangxie/luna-browser/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "luna.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_AugurOption_Resolve(t *testing.T) {
	path := writeConfig(t, `
augur_host: http://file.example/
addr: ":9000"
rows_per_page: 25
timeout: 5s
log_level: debug
`)

	tests := []struct {
		name        string
		option      AugurOption
		addr        string
		rowsPerPage int
		expected    config.Config
	}{
		{
			name:   "defaults",
			option: AugurOption{},
			expected: config.Config{
				Addr:      config.DefaultAddr,
				Timeout:   config.DefaultTimeout,
				LogLevel:  "info",
				LogFormat: "text",
			},
		},
		{
			name:   "file over defaults",
			option: AugurOption{Config: path},
			expected: config.Config{
				AugurHost:   "http://file.example",
				Addr:        ":9000",
				RowsPerPage: 25,
				Timeout:     5 * time.Second,
				LogLevel:    "debug",
				LogFormat:   "text",
			},
		},
		{
			name:        "flags over file",
			option:      AugurOption{Config: path, AugurHost: "https://flag.example", LogFormat: "JSON"},
			addr:        ":7000",
			rowsPerPage: 5,
			expected: config.Config{
				AugurHost:   "https://flag.example",
				Addr:        ":7000",
				RowsPerPage: 5,
				Timeout:     5 * time.Second,
				LogLevel:    "debug",
				LogFormat:   "json",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.option.resolve(tt.addr, tt.rowsPerPage)
			require.NoError(t, err)
			require.Equal(t, tt.expected, cfg)
		})
	}
}

func Test_AugurOption_Resolve_Errors(t *testing.T) {
	_, err := AugurOption{Config: filepath.Join(t.TempDir(), "missing.yaml")}.resolve("", 0)
	require.ErrorContains(t, err, "failed to read config file")

	_, err = AugurOption{AugurHost: "ftp://augur"}.resolve("", 0)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = AugurOption{}.resolve("", -1)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func Test_Commands_InvalidConfig(t *testing.T) {
	option := AugurOption{LogLevel: "verbose"}

	require.ErrorIs(t, ServeCmd{Addr: "127.0.0.1:0", AugurOption: option}.Run(), config.ErrInvalidConfig)
	require.ErrorIs(t, WebUICmd{Addr: "127.0.0.1:0", NoBrowser: true, AugurOption: option}.Run(), config.ErrInvalidConfig)
	require.ErrorIs(t, TUICmd{Collection: "imagery", AugurOption: option}.Run(), config.ErrInvalidConfig)
}

func Test_TUICmd_UnknownCollection(t *testing.T) {
	err := TUICmd{Collection: "satellites"}.Run()
	require.ErrorIs(t, err, client.ErrUnknownCollection)
}

func Test_newService(t *testing.T) {
	t.Run("warns without host", func(t *testing.T) {
		var buf bytes.Buffer
		svc := newService(config.Default(), &buf)
		require.NotNil(t, svc)
		require.Contains(t, buf.String(), "LUNA_AUGUR_HOST is not set")
	})

	t.Run("quiet with host", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.Default()
		cfg.AugurHost = "http://augur.example"
		svc := newService(cfg, &buf)
		require.NotNil(t, svc)
		require.Empty(t, buf.String())
	})
}

func Test_newAugurClient(t *testing.T) {
	cfg := config.Default()
	cfg.AugurHost = "http://augur.example"
	augur := newAugurClient(cfg, logging.Discard())
	require.NotNil(t, augur)
	require.Equal(t, "http://augur.example", augur.BaseURL())
}
