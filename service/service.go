package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/model"
	"github.com/hangxie/luna-browser/table"
)

// shutdownTimeout bounds graceful shutdown of a running server
const shutdownTimeout = 5 * time.Second

// Upstream is the part of the Augur API the service proxies
type Upstream interface {
	Providers(ctx context.Context) (any, error)
	ProviderIntegrations(ctx context.Context) (any, error)
	Imagery(ctx context.Context) (any, error)
	ImageryByID(ctx context.Context, id string) (any, error)
	CreateImagery(ctx context.Context, req model.CreateImageryRequest) (any, error)
	ArchiveFinders(ctx context.Context) (any, error)
	ArchiveFinderByID(ctx context.Context, id string) (any, error)
	CreateArchiveFinder(ctx context.Context, req model.CreateFinderRequest) (any, error)
	ExecuteStudy(ctx context.Context, req model.ExecuteStudyRequest) (any, error)
	StudyResults(ctx context.Context, study, id string) (any, error)
	StudyStatus(ctx context.Context, study, id string) (any, error)
	FeasibilityFinders(ctx context.Context) (any, error)
	FeasibilityFinderByID(ctx context.Context, id string) (any, error)
	CreateFeasibilityFinder(ctx context.Context, req model.CreateFinderRequest) (any, error)
	ExecuteFeasibilityFinder(ctx context.Context, body any) (any, error)
	FeasibilityResults(ctx context.Context) (any, error)
	FeasibilityResultsByFinder(ctx context.Context, id string) (any, error)
	List(ctx context.Context, collection client.Collection) ([]table.Row, error)
}

// LunaService proxies the Augur API and serves table views over its lists
type LunaService struct {
	augur       Upstream
	logger      *slog.Logger
	rowsPerPage int
	now         func() time.Time
}

// Option configures a LunaService
type Option func(*LunaService)

// WithLogger sets the service logger
func WithLogger(l *slog.Logger) Option {
	return func(s *LunaService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRowsPerPage sets the default page size of table views, values below one
// keep the built-in default
func WithRowsPerPage(n int) Option {
	return func(s *LunaService) {
		if n > 0 {
			s.rowsPerPage = n
		}
	}
}

// NewLunaService creates a new service instance
func NewLunaService(augur Upstream, opts ...Option) *LunaService {
	s := &LunaService{
		augur:       augur,
		logger:      slog.Default(),
		rowsPerPage: table.DefaultRowsPerPage,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRouter creates a new router with all routes configured
// If quiet is true, disables logging middleware (useful for embedded servers)
func CreateRouter(s *LunaService, quiet bool) *mux.Router {
	r := mux.NewRouter()
	s.SetupRoutes(r)
	r.Use(CORSMiddleware)
	r.Use(RequestIDMiddleware)
	if !quiet {
		r.Use(LoggingMiddleware(s.logger))
	}
	return r
}

// SetupRoutes configures all HTTP routes
func (s *LunaService) SetupRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	// Providers
	api.HandleFunc("/providers", s.handleProviders).Methods("GET")
	api.HandleFunc("/providers/integrations", s.handleIntegrations).Methods("GET")

	// Imagery (areas of interest)
	api.HandleFunc("/imagery", s.handleImagery).Methods("GET")
	api.HandleFunc("/imagery/create", s.handleCreateImagery).Methods("POST")
	api.HandleFunc("/imagery/{id}", s.handleImageryByID).Methods("GET")

	// Archive finders and studies
	api.HandleFunc("/archive", s.handleArchive).Methods("GET")
	api.HandleFunc("/archive/finder_data/{id}", s.handleArchiveFinder).Methods("GET")
	api.HandleFunc("/archive/finder_create", s.handleCreateArchiveFinder).Methods("POST")
	api.HandleFunc("/archive/finder_execute", s.handleExecuteStudy).Methods("POST")
	api.HandleFunc("/study/status/{study}/{id}", s.handleStudyStatus).Methods("GET")
	api.HandleFunc("/study/{study}/{id}/results", s.handleStudyResults).Methods("GET")

	// Feasibility
	api.HandleFunc("/feasibility", s.handleFeasibility).Methods("GET")
	api.HandleFunc("/feasibility/finder_data/{id}", s.handleFeasibilityFinder).Methods("GET")
	api.HandleFunc("/feasibility/finder_create", s.handleCreateFeasibilityFinder).Methods("POST")
	api.HandleFunc("/feasibility/finder_execute", s.handleExecuteFeasibilityFinder).Methods("POST")
	api.HandleFunc("/feasibility/finder_results", s.handleFeasibilityResults).Methods("GET")
	api.HandleFunc("/feasibility/finder_results/{id}", s.handleFeasibilityResultsByFinder).Methods("GET")

	// Table views and helpers
	api.HandleFunc("/table/{collection}", s.handleTable).Methods("GET")
	api.HandleFunc("/geometry/normalize", s.handleNormalizeGeometry).Methods("POST")
}

// proxy calls Augur and writes the result, bare when envelope is empty and
// wrapped as {envelope: data} otherwise
func (s *LunaService) proxy(w http.ResponseWriter, r *http.Request, tag, envelope string, call func(ctx context.Context) (any, error)) {
	data, err := call(r.Context())
	if err != nil {
		s.logUpstreamError(r, tag, err)
		WriteUpstreamError(w, err)
		return
	}

	if envelope == "" {
		WriteJSON(w, http.StatusOK, data)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{envelope: data})
}

func (s *LunaService) logUpstreamError(r *http.Request, tag string, err error) {
	attrs := []any{"route", tag, "request_id", RequestID(r.Context())}
	var upstream *client.UpstreamError
	if errors.As(err, &upstream) {
		attrs = append(attrs, "status", upstream.StatusCode, "body", upstream.Details())
	} else {
		attrs = append(attrs, "error", err)
	}
	s.logger.Error("augur call failed", attrs...)
}

func (s *LunaService) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "api/providers", "results", s.augur.Providers)
}

func (s *LunaService) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "api/providers/integrations", "results", s.augur.ProviderIntegrations)
}

func (s *LunaService) handleImagery(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "api/imagery", "", s.augur.Imagery)
}

func (s *LunaService) handleImageryByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.proxy(w, r, "api/imagery/id", "image", func(ctx context.Context) (any, error) {
		return s.augur.ImageryByID(ctx, id)
	})
}

// handleCreateImagery registers a new area of interest
func (s *LunaService) handleCreateImagery(w http.ResponseWriter, r *http.Request) {
	var req model.CreateImageryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.proxy(w, r, "api/imagery/create", "result", func(ctx context.Context) (any, error) {
		return s.augur.CreateImagery(ctx, req)
	})
}

func (s *LunaService) handleArchive(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "api/archive", "", s.augur.ArchiveFinders)
}

func (s *LunaService) handleArchiveFinder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.proxy(w, r, "api/archive/finder_data", "results", func(ctx context.Context) (any, error) {
		return s.augur.ArchiveFinderByID(ctx, id)
	})
}

func (s *LunaService) handleCreateArchiveFinder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFinderRequest(w, r)
	if !ok {
		return
	}
	s.proxy(w, r, "api/archive/finder_create", "finder", func(ctx context.Context) (any, error) {
		return s.augur.CreateArchiveFinder(ctx, req)
	})
}

// handleExecuteStudy starts a study for an archive finder
func (s *LunaService) handleExecuteStudy(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteStudyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.proxy(w, r, "api/archive/finder_execute", "status", func(ctx context.Context) (any, error) {
		return s.augur.ExecuteStudy(ctx, req)
	})
}

func (s *LunaService) handleStudyResults(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.proxy(w, r, "api/study/results", "", func(ctx context.Context) (any, error) {
		return s.augur.StudyResults(ctx, vars["study"], vars["id"])
	})
}

func (s *LunaService) handleStudyStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.proxy(w, r, "api/study/status", "results", func(ctx context.Context) (any, error) {
		return s.augur.StudyStatus(ctx, vars["study"], vars["id"])
	})
}

func (s *LunaService) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "api/feasibility", "finders", s.augur.FeasibilityFinders)
}

func (s *LunaService) handleFeasibilityFinder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.proxy(w, r, "api/feasibility/finder_data", "results", func(ctx context.Context) (any, error) {
		return s.augur.FeasibilityFinderByID(ctx, id)
	})
}

func (s *LunaService) handleCreateFeasibilityFinder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFinderRequest(w, r)
	if !ok {
		return
	}
	s.proxy(w, r, "api/feasibility/finder_create", "finder", func(ctx context.Context) (any, error) {
		return s.augur.CreateFeasibilityFinder(ctx, req)
	})
}

// handleExecuteFeasibilityFinder forwards the request body untouched
func (s *LunaService) handleExecuteFeasibilityFinder(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.proxy(w, r, "api/feasibility/finder_execute", "status", func(ctx context.Context) (any, error) {
		return s.augur.ExecuteFeasibilityFinder(ctx, body)
	})
}

func (s *LunaService) handleFeasibilityResults(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "api/feasibility/finder_results", "results", s.augur.FeasibilityResults)
}

func (s *LunaService) handleFeasibilityResultsByFinder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.proxy(w, r, "api/feasibility/finder_results/id", "results", func(ctx context.Context) (any, error) {
		return s.augur.FeasibilityResultsByFinder(ctx, id)
	})
}

// decodeFinderRequest reads and normalizes a finder creation request,
// writing a 400 and returning false when it is unusable
func decodeFinderRequest(w http.ResponseWriter, r *http.Request) (model.CreateFinderRequest, bool) {
	var req model.CreateFinderRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if err := req.Normalize(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// handleTable loads a collection and returns one page of it after applying
// the search, filter, sort and paging query parameters
func (s *LunaService) handleTable(w http.ResponseWriter, r *http.Request) {
	collection, err := client.ParseCollection(mux.Vars(r)["collection"])
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	rows, err := s.augur.List(r.Context(), collection)
	if err != nil {
		if errors.Is(err, client.ErrUnexpectedShape) {
			s.logger.Error("unexpected list shape", "collection", collection, "error", err)
			WriteError(w, http.StatusBadGateway, "Unexpected response from Augur backend.")
			return
		}
		s.logUpstreamError(r, "api/table/"+string(collection), err)
		WriteUpstreamError(w, err)
		return
	}

	view := s.newView(rows, r.URL.Query())
	WriteJSON(w, http.StatusOK, NewTablePage(collection, view))
}

// handleNormalizeGeometry accepts GeoJSON (or a JSON string holding it) and
// returns the geometry a map should draw. point_size overrides the square
// size used for points.
func (s *LunaService) handleNormalizeGeometry(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := decodeJSON(r, &raw); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	geometry, err := model.DecodeGeometry(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pointSize := 0.0
	if v := r.URL.Query().Get("point_size"); v != "" {
		pointSize, err = cast.ToFloat64E(v)
		if err != nil || pointSize <= 0 {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid point_size %q", v))
			return
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"geometry": model.NormalizeGeometry(geometry, pointSize),
	})
}

// StartServer serves the API on addr until ctx is cancelled, then shuts
// down gracefully
func StartServer(ctx context.Context, s *LunaService, addr string) error {
	r := CreateRouter(s, false) // verbose mode (not quiet)

	fmt.Printf("Starting Luna Browser API server on %s\n", addr)
	fmt.Printf("Available endpoints:\n")
	fmt.Printf("  GET  /api/providers                              - Imagery providers\n")
	fmt.Printf("  GET  /api/providers/integrations                 - Provider integrations\n")
	fmt.Printf("  GET  /api/imagery                                - Areas of interest\n")
	fmt.Printf("  GET  /api/imagery/{id}                           - Area of interest\n")
	fmt.Printf("  POST /api/imagery/create                         - Create area of interest\n")
	fmt.Printf("  GET  /api/archive                                - Archive finders\n")
	fmt.Printf("  GET  /api/archive/finder_data/{id}               - Archive finder\n")
	fmt.Printf("  POST /api/archive/finder_create                  - Create archive finder\n")
	fmt.Printf("  POST /api/archive/finder_execute                 - Execute study\n")
	fmt.Printf("  GET  /api/study/{study}/{id}/results             - Study results\n")
	fmt.Printf("  GET  /api/study/status/{study}/{id}              - Study status\n")
	fmt.Printf("  GET  /api/feasibility                            - Feasibility finders\n")
	fmt.Printf("  GET  /api/feasibility/finder_data/{id}           - Feasibility finder\n")
	fmt.Printf("  POST /api/feasibility/finder_create              - Create feasibility finder\n")
	fmt.Printf("  POST /api/feasibility/finder_execute             - Execute feasibility finder\n")
	fmt.Printf("  GET  /api/feasibility/finder_results             - Feasibility results\n")
	fmt.Printf("  GET  /api/feasibility/finder_results/{id}        - Results for a finder\n")
	fmt.Printf("  GET  /api/table/{collection}?search=&sort=&page= - Searchable table page\n")
	fmt.Printf("  POST /api/geometry/normalize                     - Normalize GeoJSON\n")
	fmt.Println()

	return serve(ctx, &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}, s.logger)
}

// serve runs server until it fails or ctx is done
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down", "addr", server.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
