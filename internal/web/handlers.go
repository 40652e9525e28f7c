package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/auth"
	"github.com/justestif/go-spotify-shuffler/internal/db"
	"github.com/justestif/go-spotify-shuffler/internal/library"
	"github.com/justestif/go-spotify-shuffler/internal/logging"
	"github.com/justestif/go-spotify-shuffler/internal/playlist"
	"github.com/justestif/go-spotify-shuffler/internal/sampler"
	"github.com/justestif/go-spotify-shuffler/internal/session"
	"github.com/justestif/go-spotify-shuffler/internal/shuffle"
	"github.com/justestif/go-spotify-shuffler/internal/spotify"
)

const appTitle = "Spotify Shuffler"

// Authenticator runs the OAuth code flow. *auth.Authenticator implements it.
type Authenticator interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// Profiles looks up the user a token belongs to.
type Profiles interface {
	CurrentUser(ctx context.Context, token *oauth2.Token) (*spotify.User, error)
}

// Users records logins. *db.UserRepository implements it.
type Users interface {
	UpsertLogin(ctx context.Context, user *db.User) error
}

// Workflow is the preview and save workflow. *shuffle.Service implements it.
type Workflow interface {
	Preview(ctx context.Context, sessionID string, size int) (*shuffle.Preview, error)
	Reshuffle(ctx context.Context, sessionID string, size int) (*shuffle.Preview, error)
	Save(ctx context.Context, sessionID, title string, public bool) (*shuffle.SaveResult, error)
	RecentPlaylists(ctx context.Context, userID string) ([]db.Playlist, error)
	Logout(ctx context.Context, sessionID string) error
}

// Deps holds the collaborators of Handlers. Users is optional.
type Deps struct {
	Auth     Authenticator
	Profiles Profiles
	Users    Users
	Sessions session.Store
	Workflow Workflow
	Logger   *log.Logger
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      Authenticator
	profiles  Profiles
	users     Users
	sessions  session.Store
	workflow  Workflow
	templates *Templates
	logger    *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps, templates *Templates) *Handlers {
	h := &Handlers{
		auth:      d.Auth,
		profiles:  d.Profiles,
		users:     d.Users,
		sessions:  d.Sessions,
		workflow:  d.Workflow,
		templates: templates,
		logger:    d.Logger,
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	return h
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.renderHome(w, r, h.currentSession(r), nil)
}

func (h *Handlers) renderHome(w http.ResponseWriter, r *http.Request, sess *session.Session, flash *FlashMessage) {
	data := HomePageData{
		PageData: PageData{
			Title:       appTitle,
			Flash:       flash,
			CurrentPath: r.URL.Path,
		},
		Authenticated: sess != nil,
		Size:          sampler.DefaultSize,
	}

	if sess != nil {
		data.User = &UserData{ID: sess.UserID, Name: sess.UserName}

		recent, err := h.workflow.RecentPlaylists(r.Context(), sess.UserID)
		if err != nil {
			h.logger.Warn("listing recent playlists", "user", sess.UserID, "err", err)
		}
		data.Playlists = playlistData(recent)
	}

	h.render(w, "home", data)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	clearCookie(w, stateCookieName)

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	token, err := h.auth.Token(ctx, state, r)
	if err != nil {
		h.logger.Error("exchanging code", "err", err)
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	user, err := h.profiles.CurrentUser(ctx, token)
	if err != nil {
		h.logger.Error("fetching current user", "err", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	if h.users != nil {
		profile := &db.User{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}
		if err := h.users.UpsertLogin(ctx, profile); err != nil {
			h.logger.Warn("recording login", "user", user.ID, "err", err)
		}
	}

	sess, err := h.sessions.Create(ctx, token, user.ID, user.DisplayName)
	if err != nil {
		h.logger.Error("creating session", "err", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged in", "user", user.ID)
	setSessionCookie(w, sess)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout drops the session, its preview and cached window (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionID(r); id != "" {
		if err := h.workflow.Logout(r.Context(), id); err != nil && !errors.Is(err, session.ErrNotFound) {
			h.logger.Warn("logging out", "err", err)
		}
	}

	clearCookie(w, sessionCookieName)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Preview draws a new selection from the cached window (POST /preview).
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, h.workflow.Preview)
}

// Reshuffle draws a selection from a freshly sampled window (POST /reshuffle).
func (h *Handlers) Reshuffle(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, h.workflow.Reshuffle)
}

type previewFunc func(ctx context.Context, sessionID string, size int) (*shuffle.Preview, error)

func (h *Handlers) preview(w http.ResponseWriter, r *http.Request, draw previewFunc) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	var flash *FlashMessage
	size, err := sampler.ParseSize(r.FormValue("size"))
	if err != nil {
		flash = &FlashMessage{Type: "warning", Message: "Invalid number of songs, using 1."}
	}

	p, err := draw(r.Context(), sess.ID, size)
	if err != nil {
		h.handleError(w, r, sess, err)
		return
	}

	data := PreviewPageData{
		PageData: PageData{
			Title:       appTitle,
			User:        &UserData{ID: sess.UserID, Name: sess.UserName},
			Flash:       flash,
			CurrentPath: r.URL.Path,
		},
		Size:   size,
		Tracks: trackData(p.Tracks),
	}

	if isHTMX(r) {
		data.Fragment = true
		h.renderPartial(w, "tracks", data)
		return
	}
	h.render(w, "preview", data)
}

// Save writes the previewed selection to a new playlist (POST /playlists).
func (h *Handlers) Save(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	public := r.FormValue("public") == "on"

	res, err := h.workflow.Save(r.Context(), sess.ID, title, public)

	var partial *playlist.PartialWriteError
	if err != nil && !errors.As(err, &partial) {
		h.handleError(w, r, sess, err)
		return
	}

	data := SavedPageData{
		PageData: PageData{
			Title:       appTitle,
			User:        &UserData{ID: sess.UserID, Name: sess.UserName},
			CurrentPath: r.URL.Path,
		},
		Name:      res.Name,
		URL:       res.URL,
		Written:   res.Written,
		Requested: res.Requested,
	}
	if partial != nil {
		data.Flash = &FlashMessage{
			Type:    "warning",
			Message: fmt.Sprintf("Only %d of %d songs were added before Spotify failed.", res.Written, res.Requested),
		}
	}

	h.render(w, "saved", data)
}

// currentSession returns the request's session, or nil if there is none.
func (h *Handlers) currentSession(r *http.Request) *session.Session {
	id := sessionID(r)
	if id == "" {
		return nil
	}
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return nil
	}
	return sess
}

// requireSession returns the request's session or redirects to login.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := h.currentSession(r)
	if sess == nil {
		redirectToLogin(w, r)
	}
	return sess
}

// isHTMX reports whether r was issued by htmx and expects a fragment.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectToLogin drops the session cookie and sends the browser to login.
// htmx requests get an HX-Redirect so the whole page navigates.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, sessionCookieName)
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/auth/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// notify shows flash on the home page, or alone when htmx asked for a fragment.
func (h *Handlers) notify(w http.ResponseWriter, r *http.Request, sess *session.Session, flash *FlashMessage) {
	if isHTMX(r) {
		h.renderPartial(w, "flash", PageData{Flash: flash})
		return
	}
	h.renderHome(w, r, sess, flash)
}

// handleError maps workflow errors to responses.
func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	var pe *library.ProviderError

	switch {
	case errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, auth.ErrRefreshFailed),
		errors.Is(err, session.ErrNotFound):
		h.logger.Info("session needs login", "err", err)
		redirectToLogin(w, r)
	case errors.Is(err, shuffle.ErrEmptyLibrary):
		h.notify(w, r, sess, &FlashMessage{Type: "info", Message: "You have no Liked Songs."})
	case errors.Is(err, shuffle.ErrNoPreview):
		h.notify(w, r, sess, &FlashMessage{Type: "info", Message: "No previewed songs. Preview first."})
	case errors.As(err, &pe):
		h.logger.Error("spotify request failed", "op", pe.Op, "status", pe.Status, "err", pe.Err)
		http.Error(w, "Spotify request failed", http.StatusBadGateway)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template", "page", page, "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func (h *Handlers) renderPartial(w http.ResponseWriter, partial string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.RenderPartial(w, partial, data); err != nil {
		h.logger.Error("rendering partial", "partial", partial, "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

var _ Workflow = (*shuffle.Service)(nil)
