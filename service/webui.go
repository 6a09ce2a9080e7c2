package service

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/model"
	"github.com/hangxie/luna-browser/table"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates *template.Template

// maxCellWidth truncates nested values shown in a table cell
const maxCellWidth = 80

var perPageChoices = []int{5, 10, 25, 50, 100}

func init() {
	var err error
	templates, err = template.New("").Funcs(template.FuncMap{
		"perPageChoices": func() []int { return perPageChoices },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		panic(fmt.Sprintf("Failed to parse templates: %v", err))
	}
}

// collectionPage ties a UI path to the collection it lists
type collectionPage struct {
	Path       string
	Collection client.Collection
}

var collectionPages = []collectionPage{
	{Path: "/areas-of-interest", Collection: client.CollectionImagery},
	{Path: "/archive", Collection: client.CollectionArchive},
	{Path: "/feasibility", Collection: client.CollectionFeasibility},
	{Path: "/providers", Collection: client.CollectionProviders},
}

type headerCell struct {
	Key       string
	Label     string
	Indicator string
	Href      string
}

type bodyRow struct {
	Link  string
	Cells []string
}

type pageLink struct {
	Label   string
	Href    string
	Current bool
	Gap     bool
}

// tableData is what the table fragment renders
type tableData struct {
	TablePage
	Path      string
	Nav       []collectionPage
	Headers   []headerCell
	Body      []bodyRow
	PageLinks []pageLink
	PrevHref  string
	NextHref  string
	HasPrev   bool
	HasNext   bool
	Error     string
	Notice    string
}

type field struct {
	Key   string
	Value string
}

// detailData is what the detail pages render
type detailData struct {
	Title        string
	Back         string
	Nav          []collectionPage
	Fields       []field
	GeometryJSON string
	Related      []bodyRow
	RelatedCols  []string
	RelatedTitle string
	Action       string
	NeedsStudy   bool
	Status       string
	Error        string
	Notice       string
}

// SetupWebUIRoutes configures all web UI routes
func (s *LunaService) SetupWebUIRoutes(r *mux.Router) {
	r.HandleFunc("/", s.handleIndexPage).Methods("GET")

	for _, page := range collectionPages {
		r.HandleFunc(page.Path, s.handleCollectionPage(page)).Methods("GET")
	}
	r.HandleFunc("/areas-of-interest", s.handleCreateImageryForm).Methods("POST")
	r.HandleFunc("/archive", s.handleCreateArchiveFinderForm).Methods("POST")
	r.HandleFunc("/feasibility", s.handleCreateFeasibilityFinderForm).Methods("POST")

	r.HandleFunc("/areas-of-interest/{pk}", s.handleImageryDetail).Methods("GET")
	r.HandleFunc("/archive/finder/{id}", s.handleArchiveFinderDetail).Methods("GET", "POST")
	r.HandleFunc("/feasibility/finder/{id}", s.handleFeasibilityFinderDetail).Methods("GET", "POST")

	// Legacy paths
	r.HandleFunc("/imagery", redirectTo(func(*http.Request) string { return "/areas-of-interest" })).Methods("GET")
	r.HandleFunc("/imagery/{pk}", redirectTo(func(r *http.Request) string {
		return "/areas-of-interest/" + url.PathEscape(mux.Vars(r)["pk"])
	})).Methods("GET")

	// Catch-all for static files and other resources (favicon, service worker, etc.)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Silently return 404 for common browser requests
		w.WriteHeader(http.StatusNotFound)
	})
}

// redirectTo issues a permanent redirect that keeps the query string
func redirectTo(target func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := target(r)
		if r.URL.RawQuery != "" {
			location += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, location, http.StatusPermanentRedirect)
	}
}

// handleIndexPage serves the landing page
func (s *LunaService) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", struct {
		Title string
		Nav   []collectionPage
	}{"Home", collectionPages})
}

// handleCollectionPage serves a searchable table over one collection. HTMX
// requests aimed at the table get only the table fragment.
func (s *LunaService) handleCollectionPage(page collectionPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderCollection(w, r, page, "", "")
	}
}

func (s *LunaService) renderCollection(w http.ResponseWriter, r *http.Request, page collectionPage, errMessage, notice string) {
	data := tableData{
		TablePage: TablePage{Collection: page.Collection, Title: page.Collection.Title(), Columns: page.Collection.Columns()},
		Path:      page.Path,
		Nav:       collectionPages,
		Error:     errMessage,
		Notice:    notice,
	}

	rows, err := s.augur.List(r.Context(), page.Collection)
	if err != nil {
		s.logUpstreamError(r, page.Path, err)
		if data.Error == "" {
			data.Error = userMessage(err)
		}
	} else {
		data = s.buildTableData(page, s.newView(rows, r.URL.Query()), data)
	}

	if r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Target") == "table-area" {
		s.render(w, "table", data)
		return
	}
	s.render(w, "collection.html", data)
}

// buildTableData turns a view into headers, formatted cells and pagination
// links
func (s *LunaService) buildTableData(page collectionPage, view *table.View, data tableData) tableData {
	data.TablePage = NewTablePage(page.Collection, view)
	now := s.now()

	for _, key := range data.Columns {
		h := headerCell{Key: key, Label: columnLabel(key), Href: page.Path + "?" + sortQuery(data.TablePage, key)}
		if data.Sort.Key == key {
			switch data.Sort.Direction {
			case table.SortAscending:
				h.Indicator = "▲"
			case table.SortDescending:
				h.Indicator = "▼"
			}
		}
		data.Headers = append(data.Headers, h)
	}

	for _, row := range data.Rows {
		data.Body = append(data.Body, bodyRow{
			Link:  detailLink(page, row),
			Cells: rowCells(row, data.Columns, now),
		})
	}

	for _, item := range data.Pages {
		if item.IsEllipsis() {
			data.PageLinks = append(data.PageLinks, pageLink{Label: item.String(), Gap: true})
			continue
		}
		data.PageLinks = append(data.PageLinks, pageLink{
			Label:   item.String(),
			Href:    page.Path + "?" + pageQuery(data.TablePage, int(item)),
			Current: int(item) == data.Page,
		})
	}

	data.HasPrev = data.Page > 1
	data.HasNext = data.Page < data.PageCount
	data.PrevHref = page.Path + "?" + pageQuery(data.TablePage, data.Page-1)
	data.NextHref = page.Path + "?" + pageQuery(data.TablePage, data.Page+1)
	return data
}

// handleCreateImageryForm registers an area of interest from the create form
func (s *LunaService) handleCreateImageryForm(w http.ResponseWriter, r *http.Request) {
	page := collectionPages[0]
	req := model.CreateImageryRequest{
		Name:     r.FormValue("imageryName"),
		Geometry: nonEmpty(r.FormValue("imageryGEOJSON")),
	}
	if err := req.Validate(); err != nil {
		s.renderCollection(w, r, page, err.Error(), "")
		return
	}
	if _, err := s.augur.CreateImagery(r.Context(), req); err != nil {
		s.logUpstreamError(r, "areas-of-interest/create", err)
		s.renderCollection(w, r, page, userMessage(err), "")
		return
	}
	http.Redirect(w, r, page.Path, http.StatusSeeOther)
}

// handleCreateArchiveFinderForm creates an archive finder from the create form
func (s *LunaService) handleCreateArchiveFinderForm(w http.ResponseWriter, r *http.Request) {
	page := collectionPages[1]
	req := model.CreateFinderRequest{
		Name:      r.FormValue("finderName"),
		StartDate: r.FormValue("startDate"),
		EndDate:   r.FormValue("endDate"),
		Geometry:  nonEmpty(r.FormValue("geojson")),
	}
	if err := req.Normalize(); err != nil {
		s.renderCollection(w, r, page, err.Error(), "")
		return
	}
	if _, err := s.augur.CreateArchiveFinder(r.Context(), req); err != nil {
		s.logUpstreamError(r, "archive/create", err)
		s.renderCollection(w, r, page, userMessage(err), "")
		return
	}
	http.Redirect(w, r, page.Path, http.StatusSeeOther)
}

// handleCreateFeasibilityFinderForm creates a feasibility finder over the
// geometry of an existing area of interest
func (s *LunaService) handleCreateFeasibilityFinderForm(w http.ResponseWriter, r *http.Request) {
	page := collectionPages[2]
	req := model.CreateFinderRequest{
		Name:      r.FormValue("finderName"),
		StartDate: r.FormValue("startDate"),
		EndDate:   r.FormValue("endDate"),
	}
	if err := req.Normalize(); err != nil {
		s.renderCollection(w, r, page, err.Error(), "")
		return
	}

	imageID := strings.TrimSpace(r.FormValue("imageId"))
	if imageID == "" {
		s.renderCollection(w, r, page, "an area of interest is required", "")
		return
	}
	img, err := s.loadImagery(r.Context(), imageID)
	if err != nil {
		s.logUpstreamError(r, "feasibility/create", err)
		s.renderCollection(w, r, page, userMessage(err), "")
		return
	}
	req.Geometry = img.Geometry

	if _, err := s.augur.CreateFeasibilityFinder(r.Context(), req); err != nil {
		s.logUpstreamError(r, "feasibility/create", err)
		s.renderCollection(w, r, page, userMessage(err), "")
		return
	}
	http.Redirect(w, r, page.Path, http.StatusSeeOther)
}

// handleImageryDetail shows one area of interest with its normalized
// geometry and the archive finders that watch it. Failures render on the
// page.
func (s *LunaService) handleImageryDetail(w http.ResponseWriter, r *http.Request) {
	pk := mux.Vars(r)["pk"]
	data := detailData{
		Title:        "Area of Interest " + pk,
		Back:         "/areas-of-interest",
		Nav:          collectionPages,
		RelatedCols:  client.CollectionArchive.Columns(),
		RelatedTitle: "Archive Finders",
	}

	img, err := s.loadImagery(r.Context(), pk)
	switch {
	case errors.Is(err, errNotFound):
		data.Error = "Area of interest not found."
		s.render(w, "detail.html", data)
		return
	case err != nil:
		s.logUpstreamError(r, "areas-of-interest/detail", err)
		data.Error = userMessage(err)
		s.render(w, "detail.html", data)
		return
	}

	if img.Name != "" {
		data.Title = img.Name
	}
	data.Fields = []field{
		{Key: "ID", Value: cast.ToString(img.ID)},
		{Key: "Name", Value: img.Name},
		{Key: "Created", Value: model.FormatDateTime(img.Created)},
		{Key: "Modified", Value: model.FormatDateTime(img.Modified)},
	}
	if normalized := model.NormalizeGeometry(img.Geometry, 0); normalized != nil {
		if pretty, err := json.MarshalIndent(normalized, "", "  "); err == nil {
			data.GeometryJSON = string(pretty)
		}
	}

	finders, err := s.augur.List(r.Context(), client.CollectionArchive)
	if err != nil {
		// the area itself loaded; finders are best effort
		s.logUpstreamError(r, "areas-of-interest/finders", err)
	}
	now := s.now()
	archivePage := collectionPages[1]
	for _, finder := range finders {
		locationID, _ := table.Lookup(finder, "location.id")
		if !model.SameID(locationID, img.ID) {
			continue
		}
		data.Related = append(data.Related, bodyRow{
			Link:  detailLink(archivePage, finder),
			Cells: rowCells(finder, data.RelatedCols, now),
		})
	}

	s.render(w, "detail.html", data)
}

// handleArchiveFinderDetail shows an archive finder; POST starts a study
func (s *LunaService) handleArchiveFinderDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data := detailData{
		Title:      "Archive Finder " + id,
		Back:       "/archive",
		Nav:        collectionPages,
		Action:     "/archive/finder/" + url.PathEscape(id),
		NeedsStudy: true,
	}

	if r.Method == http.MethodPost {
		req := model.ExecuteStudyRequest{
			ArchiveFinderID: cast.ToInt64(id),
			StudyName:       r.FormValue("studyName"),
		}
		if err := req.Validate(); err != nil {
			data.Error = err.Error()
		} else if status, err := s.augur.ExecuteStudy(r.Context(), req); err != nil {
			s.logUpstreamError(r, "archive/finder/execute", err)
			data.Error = userMessage(err)
		} else {
			data.Notice = "Study " + req.StudyName + " started."
			data.Status = compactJSON(status, 0)
		}
	}

	finder, err := s.augur.ArchiveFinderByID(r.Context(), id)
	if err != nil {
		s.logUpstreamError(r, "archive/finder", err)
		if data.Error == "" {
			data.Error = userMessage(err)
		}
	} else {
		data.Fields = recordFields(finder, s.now())
	}
	s.render(w, "detail.html", data)
}

// handleFeasibilityFinderDetail shows a feasibility finder and its results;
// POST executes it
func (s *LunaService) handleFeasibilityFinderDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data := detailData{
		Title:        "Feasibility Finder " + id,
		Back:         "/feasibility",
		Nav:          collectionPages,
		Action:       "/feasibility/finder/" + url.PathEscape(id),
		RelatedTitle: "Results",
	}

	if r.Method == http.MethodPost {
		status, err := s.augur.ExecuteFeasibilityFinder(r.Context(), map[string]any{"feasibility_finder_id": id})
		if err != nil {
			s.logUpstreamError(r, "feasibility/finder/execute", err)
			data.Error = userMessage(err)
		} else {
			data.Notice = "Feasibility finder executed."
			data.Status = compactJSON(status, 0)
		}
	}

	finder, err := s.augur.FeasibilityFinderByID(r.Context(), id)
	if err != nil {
		s.logUpstreamError(r, "feasibility/finder", err)
		if data.Error == "" {
			data.Error = userMessage(err)
		}
		s.render(w, "detail.html", data)
		return
	}
	data.Fields = recordFields(finder, s.now())

	results, err := s.augur.FeasibilityResultsByFinder(r.Context(), id)
	if err != nil {
		s.logUpstreamError(r, "feasibility/finder/results", err)
	} else if rows, err := client.ToRows(results); err == nil {
		now := s.now()
		data.RelatedCols = resultColumns(rows)
		for _, row := range rows {
			data.Related = append(data.Related, bodyRow{Cells: rowCells(row, data.RelatedCols, now)})
		}
	}
	s.render(w, "detail.html", data)
}

var errNotFound = errors.New("not found")

// loadImagery fetches one area of interest, unwrapping an {"image": ...}
// envelope if Augur sends one
func (s *LunaService) loadImagery(ctx context.Context, id string) (model.Imagery, error) {
	data, err := s.augur.ImageryByID(ctx, id)
	if err != nil {
		return model.Imagery{}, err
	}
	row, ok := data.(map[string]any)
	if inner, wrapped := row["image"].(map[string]any); ok && wrapped {
		row = inner
	}
	if !ok || len(row) == 0 || row["error"] != nil {
		return model.Imagery{}, errNotFound
	}
	return model.ImageryFromRow(row)
}

// render executes a template, answering 500 if it fails
func (s *LunaService) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := templates.ExecuteTemplate(w, name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// userMessage is the text shown in place of data Augur could not provide
func userMessage(err error) string {
	var upstream *client.UpstreamError
	switch {
	case errors.Is(err, client.ErrHostNotConfigured):
		return "Server configuration error: LUNA_AUGUR_HOST not configured"
	case errors.As(err, &upstream):
		return fmt.Sprintf("Upstream responded with %d", upstream.StatusCode)
	case errors.Is(err, model.ErrInvalidGeometry), errors.Is(err, client.ErrUnexpectedShape):
		return "Unexpected response from Augur backend."
	}
	return "Unable to reach Augur backend."
}

// detailLink is the page a row links to, if any
func detailLink(page collectionPage, row table.Row) string {
	id, ok := row["id"]
	if !ok || id == nil {
		return ""
	}
	escaped := url.PathEscape(cast.ToString(id))
	switch page.Collection {
	case client.CollectionImagery:
		return page.Path + "/" + escaped
	case client.CollectionArchive, client.CollectionFeasibility:
		return page.Path + "/finder/" + escaped
	}
	return ""
}

func rowCells(row table.Row, columns []string, now time.Time) []string {
	cells := make([]string, len(columns))
	for i, key := range columns {
		value, _ := table.Lookup(row, key)
		cells[i] = CellText(key, value, now)
	}
	return cells
}

// CellText renders a value for a table cell. Timestamps are shown relative
// to now and date ranges as plain dates.
func CellText(key string, value any, now time.Time) string {
	if value == nil {
		return model.Placeholder
	}

	leaf := key[strings.LastIndex(key, ".")+1:]
	switch leaf {
	case "created", "modified", "updated":
		return model.FormatRelativeTime(cast.ToString(value), now)
	case "start_date", "end_date":
		return model.FormatDate(cast.ToString(value))
	}

	switch value.(type) {
	case map[string]any, []any:
		return compactJSON(value, maxCellWidth)
	}
	text, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return text
}

// recordFields lists the top-level fields of a record, sorted by key
func recordFields(data any, now time.Time) []field {
	record, ok := data.(map[string]any)
	if !ok {
		return []field{{Key: "value", Value: compactJSON(data, 0)}}
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]field, len(keys))
	for i, key := range keys {
		value := record[key]
		text := CellText(key, value, now)
		if leaf := strings.ToLower(key); leaf == "created" || leaf == "modified" || leaf == "updated" {
			text = model.FormatDateTime(cast.ToString(value))
		}
		if _, nested := value.(map[string]any); nested {
			text = compactJSON(value, 0)
		}
		fields[i] = field{Key: columnLabel(key), Value: text}
	}
	return fields
}

// resultColumns picks up to six keys shared by result rows, id and name first
func resultColumns(rows []table.Row) []string {
	seen := map[string]bool{}
	var keys []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return columnRank(keys[i]) < columnRank(keys[j]) ||
			(columnRank(keys[i]) == columnRank(keys[j]) && keys[i] < keys[j])
	})
	if len(keys) > 6 {
		keys = keys[:6]
	}
	return keys
}

func columnRank(key string) int {
	switch key {
	case "id":
		return 0
	case "name":
		return 1
	}
	return 2
}

// columnLabel turns "location.name" into "Location Name"
func columnLabel(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '.' || r == '_' })
	for i, w := range words {
		if w == "id" {
			words[i] = "ID"
			continue
		}
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + w[size:]
	}
	return strings.Join(words, " ")
}

// compactJSON encodes value on one line, cut to limit runes when limit > 0
func compactJSON(value any, limit int) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	text := string(data)
	if runes := []rune(text); limit > 0 && len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return text
}

// nonEmpty returns nil for a blank form value so validation can flag it
func nonEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// CreateWebUIRouter creates a router configured for the web UI and the API
func CreateWebUIRouter(s *LunaService) *mux.Router {
	r := mux.NewRouter()
	s.SetupRoutes(r)
	s.SetupWebUIRoutes(r)
	r.Use(CORSMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))
	return r
}

// openBrowser tries to open the URL in the default browser
func openBrowser(url string) error {
	if testing.Testing() {
		// do not launch browser under unit test
		return nil
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

// StartWebUIServer serves the web UI on addr until ctx is cancelled
func StartWebUIServer(ctx context.Context, s *LunaService, addr string, launchBrowser bool) error {
	r := CreateWebUIRouter(s)

	// Construct the full URL
	url := fmt.Sprintf("http://localhost%s", addr)
	if !strings.HasPrefix(addr, ":") {
		url = "http://" + addr
	}

	fmt.Printf("Starting Luna Browser Web UI on %s\n", addr)
	if launchBrowser {
		fmt.Printf("Opening browser to: %s\n", url)
		// Open browser in a goroutine with a small delay to ensure server is ready
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := openBrowser(url); err != nil {
				fmt.Printf("Note: Could not automatically open browser: %v\n", err)
				fmt.Printf("Please open your browser and navigate to: %s\n", url)
			}
		}()
	}
	fmt.Println()

	return serve(ctx, &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}, s.logger)
}
