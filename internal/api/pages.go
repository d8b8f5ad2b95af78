package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/session"
)

const (
	sessionCookie    = "sanctuary_session"
	sessionCookieAge = 12 * 60 * 60
	refreshSeconds   = 2
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("pages").ParseFS(templateFS, "templates/*.html"))
}

// Pages serves the server-rendered browser surface.
type Pages struct {
	sessions *session.Service
	logger   *zap.Logger
}

func NewPages(sessions *session.Service, logger *zap.Logger) *Pages {
	return &Pages{sessions: sessions, logger: logger}
}

func (p *Pages) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", p.Index)
	r.POST("/upload", p.Upload)
	r.POST("/chat", p.Chat)
	r.POST("/reset", p.Reset)
	r.POST("/view", p.View)
	r.POST("/language", p.Language)
}

type pageData struct {
	T              i18n.Strings
	Lang           i18n.Language
	Dir            string
	OtherLang      i18n.Language
	OtherLangName  string
	Session        SessionView
	Error          string
	Refresh        int
	Progress       string
	ShowDisclaimer bool
	Idle           bool
	Busy           bool
	Ready          bool
	DocumentView   bool
	DocumentURL    string
}

func (p *Pages) Index(c *gin.Context) {
	state, err := p.current(c)
	if err != nil {
		p.renderError(c, err)
		return
	}
	p.render(c, http.StatusOK, state, "")
}

func (p *Pages) Upload(c *gin.Context) {
	state, err := p.current(c)
	if err != nil {
		p.renderError(c, err)
		return
	}
	upload, cleanup, err := formUpload(c, p.sessions.Encoder().MaxBytes())
	if err != nil {
		p.renderWith(c, state, err)
		return
	}
	defer cleanup()

	if _, err := p.sessions.Upload(c.Request.Context(), state.ID, upload); err != nil {
		p.renderWith(c, state, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (p *Pages) Chat(c *gin.Context) {
	p.apply(c, func(ctx context.Context, id string) (session.State, error) {
		return p.sessions.Send(ctx, id, c.PostForm("text"))
	})
}

func (p *Pages) Reset(c *gin.Context) {
	p.apply(c, p.sessions.Reset)
}

func (p *Pages) View(c *gin.Context) {
	p.apply(c, func(ctx context.Context, id string) (session.State, error) {
		mode := strings.TrimSpace(c.PostForm("mode"))
		if mode == "" {
			return p.sessions.ToggleView(ctx, id)
		}
		parsed, err := session.ParseViewMode(mode)
		if err != nil {
			return session.State{}, err
		}
		return p.sessions.SetView(ctx, id, parsed)
	})
}

func (p *Pages) Language(c *gin.Context) {
	p.apply(c, func(ctx context.Context, id string) (session.State, error) {
		lang := i18n.Language(strings.TrimSpace(c.PostForm("language")))
		if lang == "" {
			state, err := p.sessions.Get(ctx, id)
			if err != nil {
				return state, err
			}
			lang = state.Language.Toggle()
		}
		return p.sessions.SetLanguage(ctx, id, lang)
	})
}

// apply runs one form action and redirects back to the page, or re-renders
// it with the error.
func (p *Pages) apply(c *gin.Context, action func(context.Context, string) (session.State, error)) {
	state, err := p.current(c)
	if err != nil {
		p.renderError(c, err)
		return
	}
	if _, err := action(c.Request.Context(), state.ID); err != nil {
		if errors.Is(err, session.ErrStale) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		latest, loadErr := p.sessions.Get(c.Request.Context(), state.ID)
		if loadErr == nil {
			state = latest
		}
		p.renderWith(c, state, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// current returns the session named by the cookie, creating one when the
// cookie is missing or the session expired.
func (p *Pages) current(c *gin.Context) (session.State, error) {
	ctx := c.Request.Context()
	if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
		state, err := p.sessions.Get(ctx, id)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return session.State{}, err
		}
	}
	state, err := p.sessions.Create(ctx, i18n.Negotiate(c.GetHeader("Accept-Language")))
	if err != nil {
		return session.State{}, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, state.ID, sessionCookieAge, "/", "", false, true)
	return state, nil
}

func (p *Pages) renderWith(c *gin.Context, state session.State, err error) {
	status, _, message := classify(err)
	if status >= http.StatusInternalServerError {
		p.logger.Error("page action failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	p.render(c, status, state, message)
}

func (p *Pages) renderError(c *gin.Context, err error) {
	p.logger.Error("page failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.String(http.StatusInternalServerError, "internal error")
}

func (p *Pages) render(c *gin.Context, status int, state session.State, message string) {
	lang := state.Language
	t := i18n.For(lang)
	data := pageData{
		T:              t,
		Lang:           lang,
		Dir:            lang.Direction(),
		OtherLang:      lang.Toggle(),
		OtherLangName:  strings.ToUpper(string(lang.Toggle())),
		Session:        NewSessionView(state),
		Error:          message,
		ShowDisclaimer: state.Status != session.StatusReady,
		Idle:           state.Status == session.StatusIdle,
		Busy:           state.Status.Busy(),
		Ready:          state.Status == session.StatusReady,
		DocumentView:   state.View == session.ViewDocument && state.HasDocument(),
		DocumentURL:    "/api/sessions/" + state.ID + "/document",
	}
	switch state.Status {
	case session.StatusReading:
		data.Progress = t.Initializing
	case session.StatusAnalyzing:
		data.Progress = t.Synthesizing
	}
	if data.Busy || state.ReplyPending {
		data.Refresh = refreshSeconds
	}
	c.HTML(status, "page.html", data)
}
