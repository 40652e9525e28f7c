package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/justestif/go-spotify-shuffler/internal/db"
	"github.com/justestif/go-spotify-shuffler/internal/library"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	// Every page is parsed together with the layouts and partials.
	commonFiles := append(layouts, partials...)

	for _, page := range pages {
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		files := append([]string{page}, commonFiles...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		t.templates[name] = tmpl
	}

	// Partials are also parsed without the layout for HTMX fragments.
	// Each gets the full partial set since partials may include one another.
	for _, partial := range partials {
		name := strings.TrimSuffix(filepath.Base(partial), ".html")

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partials...)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// formatDate formats a time as "Jan 2, 2006"
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	User        *UserData
	Flash       *FlashMessage
	CurrentPath string
}

// UserData contains authenticated user information.
type UserData struct {
	ID   string
	Name string
}

// FlashMessage represents a temporary notification message.
type FlashMessage struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Authenticated bool
	Size          int
	Playlists     []PlaylistData
}

// PreviewPageData contains data for the preview page and the tracks partial.
type PreviewPageData struct {
	PageData
	Size   int
	Tracks []TrackData

	// Fragment is set when only the tracks partial is rendered,
	// so the partial shows the flash itself.
	Fragment bool
}

// SavedPageData contains data for the page shown after saving a playlist.
type SavedPageData struct {
	PageData
	Name      string
	URL       string
	Written   int
	Requested int
}

// TrackData contains data for a single track in templates.
type TrackData struct {
	ID      string
	Name    string
	Artists string
}

// PlaylistData contains data for a previously created playlist.
type PlaylistData struct {
	Name      string
	URL       string
	Written   int
	Requested int
	Complete  bool
	CreatedAt time.Time
}

func trackData(tracks []library.Track) []TrackData {
	out := make([]TrackData, len(tracks))
	for i, t := range tracks {
		out[i] = TrackData{ID: t.ID(), Name: t.Name(), Artists: t.ArtistLine()}
	}
	return out
}

func playlistData(records []db.Playlist) []PlaylistData {
	out := make([]PlaylistData, len(records))
	for i, p := range records {
		out[i] = PlaylistData{
			Name:      p.Name,
			URL:       p.URL,
			Written:   p.Written,
			Requested: p.Requested,
			Complete:  p.Complete(),
			CreatedAt: p.CreatedAt,
		}
	}
	return out
}
