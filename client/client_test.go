package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hangxie/luna-browser/model"
)

func Test_NewAugurClient(t *testing.T) {
	client := NewAugurClient("http://localhost:8000/")

	require.NotNil(t, client, "NewAugurClient() should return non-nil client")
	require.Equal(t, "http://localhost:8000", client.BaseURL(), "trailing slash should be trimmed")
	require.NotNil(t, client.client, "HTTP client should not be nil")
	require.Zero(t, client.client.Timeout)
}

func Test_NewAugurClient_Options(t *testing.T) {
	custom := &http.Client{}
	client := NewAugurClient("http://augur", WithHTTPClient(custom), WithTimeout(3*time.Second), WithLogger(nil))

	require.Same(t, custom, client.client)
	require.Equal(t, 3*time.Second, client.client.Timeout)
	require.NotNil(t, client.logger)
}

func Test_Endpoints(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *AugurClient) (any, error)
	}{
		{"providers", "GET", "/api/providers/", func(c *AugurClient) (any, error) { return c.Providers(context.Background()) }},
		{"integrations", "GET", "/api/providers/integrations", func(c *AugurClient) (any, error) { return c.ProviderIntegrations(context.Background()) }},
		{"imagery", "GET", "/api/core/location", func(c *AugurClient) (any, error) { return c.Imagery(context.Background()) }},
		{"imagery by id", "GET", "/api/core/location/id/12", func(c *AugurClient) (any, error) { return c.ImageryByID(context.Background(), "12") }},
		{"archive finders", "GET", "/api/archive/finder", func(c *AugurClient) (any, error) { return c.ArchiveFinders(context.Background()) }},
		{"archive finder by id", "GET", "/api/imagery/finder/id/3", func(c *AugurClient) (any, error) { return c.ArchiveFinderByID(context.Background(), "3") }},
		{"study results", "GET", "/api/imagery/study/imagery_finder/9/results/", func(c *AugurClient) (any, error) {
			return c.StudyResults(context.Background(), "imagery_finder", "9")
		}},
		{"study status", "GET", "/api/archive/study/imagery_finder/9/status", func(c *AugurClient) (any, error) {
			return c.StudyStatus(context.Background(), "imagery_finder", "9")
		}},
		{"feasibility finders", "GET", "/api/feasibility/finders", func(c *AugurClient) (any, error) { return c.FeasibilityFinders(context.Background()) }},
		{"feasibility finder by id", "GET", "/api/feasibility/finders/id/5", func(c *AugurClient) (any, error) {
			return c.FeasibilityFinderByID(context.Background(), "5")
		}},
		{"feasibility results", "GET", "/api/feasibility/results", func(c *AugurClient) (any, error) { return c.FeasibilityResults(context.Background()) }},
		{"feasibility results by finder", "GET", "/api/feasibility/results/id/finder/5", func(c *AugurClient) (any, error) {
			return c.FeasibilityResultsByFinder(context.Background(), "5")
		}},
		{"create imagery", "POST", "/api/core/location/create", func(c *AugurClient) (any, error) {
			return c.CreateImagery(context.Background(), model.CreateImageryRequest{Name: "aoi", Geometry: "{}"})
		}},
		{"create archive finder", "POST", "/api/archive/finder/create", func(c *AugurClient) (any, error) {
			return c.CreateArchiveFinder(context.Background(), model.CreateFinderRequest{Name: "f"})
		}},
		{"execute study", "POST", "/api/imagery/study/execute", func(c *AugurClient) (any, error) {
			return c.ExecuteStudy(context.Background(), model.ExecuteStudyRequest{ArchiveFinderID: 1, StudyName: "imagery_finder"})
		}},
		{"create feasibility finder", "POST", "/api/feasibility/finders/create", func(c *AugurClient) (any, error) {
			return c.CreateFeasibilityFinder(context.Background(), model.CreateFinderRequest{Name: "f"})
		}},
		{"execute feasibility finder", "POST", "/api/feasibility/finders/execute", func(c *AugurClient) (any, error) {
			return c.ExecuteFeasibilityFinder(context.Background(), map[string]any{"finder_id": 5})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, tt.path, r.URL.Path, "unexpected path")
				require.Equal(t, tt.method, r.Method, "unexpected method")
				if tt.method == "POST" {
					require.Equal(t, "application/json", r.Header.Get("Content-Type"))
				}

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"ok":true,"count":2}`))
			}))
			defer server.Close()

			data, err := tt.call(NewAugurClient(server.URL))
			require.NoError(t, err)
			require.Equal(t, map[string]any{"ok": true, "count": json.Number("2")}, data)
		})
	}
}

func Test_Post_SendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"archive_finder_id":4,"study_name":"imagery_finder"}`, string(body))
		_, _ = w.Write([]byte(`{"study_id":10}`))
	}))
	defer server.Close()

	var out struct {
		StudyID int `json:"study_id"`
	}
	err := NewAugurClient(server.URL).Post(context.Background(), "/api/imagery/study/execute",
		model.ExecuteStudyRequest{ArchiveFinderID: 4, StudyName: "imagery_finder"}, &out)
	require.NoError(t, err)
	require.Equal(t, 10, out.StudyID)
}

func Test_Post_UnencodableBody(t *testing.T) {
	err := NewAugurClient("http://augur").Post(context.Background(), "/x", make(chan int), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to encode request")
}

func Test_Errors(t *testing.T) {
	t.Run("host not configured", func(t *testing.T) {
		_, err := NewAugurClient("").Providers(context.Background())
		require.ErrorIs(t, err, ErrHostNotConfigured)
	})

	t.Run("upstream error keeps status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("maintenance"))
		}))
		defer server.Close()

		_, err := NewAugurClient(server.URL).Imagery(context.Background())
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		require.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
		require.Equal(t, "maintenance", upstream.Body)
		require.Equal(t, "upstream responded with 503", upstream.Error())
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := NewAugurClient(url).Imagery(context.Background())
		require.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewAugurClient(server.URL).Imagery(ctx)
		require.ErrorIs(t, err, ErrUnreachable)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		_, err := NewAugurClient(server.URL).Imagery(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decode response from /api/core/location")
	})
}

func Test_UpstreamError_Details(t *testing.T) {
	short := &UpstreamError{StatusCode: 500, Body: "boom"}
	require.Equal(t, "boom", short.Details())

	long := &UpstreamError{StatusCode: 500, Body: strings.Repeat("é", 600)}
	require.Equal(t, strings.Repeat("é", 500), long.Details())
}

func Test_Get_EscapesIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/core/location/id/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := NewAugurClient(server.URL).ImageryByID(context.Background(), "a/b")
	require.NoError(t, err)
}
