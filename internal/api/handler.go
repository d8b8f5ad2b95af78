package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/csheth/sanctuary/internal/api/response"
	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
	"github.com/csheth/sanctuary/internal/session"
)

// Handler serves the JSON API.
type Handler struct {
	sessions *session.Service
	logger   *zap.Logger
}

func NewHandler(sessions *session.Service, logger *zap.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers the session API under r.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/document", h.UploadDocument)
	r.GET("/sessions/:id/document", h.GetDocument)
	r.POST("/sessions/:id/messages", h.SendMessage)
	r.POST("/sessions/:id/reset", h.Reset)
	r.PUT("/sessions/:id/view", h.SetView)
	r.PUT("/sessions/:id/language", h.SetLanguage)
	r.GET("/i18n/:lang", h.Translations)
}

type CreateSessionRequest struct {
	Language string `json:"language"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SetViewRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type SetLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// SessionView is the client-facing snapshot of a session. The encoded
// document is served separately.
type SessionView struct {
	ID           string           `json:"id"`
	Status       session.Status   `json:"status"`
	FileName     string           `json:"file_name,omitempty"`
	Pages        int              `json:"pages,omitempty"`
	Size         int64            `json:"size,omitempty"`
	Axioms       []llm.Axiom      `json:"axioms"`
	Transcript   []llm.Message    `json:"transcript"`
	Language     i18n.Language    `json:"language"`
	Direction    string           `json:"direction"`
	View         session.ViewMode `json:"view"`
	ReplyPending bool             `json:"reply_pending"`
	LastError    string           `json:"last_error,omitempty"`
}

func NewSessionView(state session.State) SessionView {
	view := SessionView{
		ID:           state.ID,
		Status:       state.Status,
		FileName:     state.FileName,
		Axioms:       append([]llm.Axiom{}, state.Axioms...),
		Transcript:   append([]llm.Message{}, state.Transcript...),
		Language:     state.Language,
		Direction:    state.Language.Direction(),
		View:         state.View,
		ReplyPending: state.ReplyPending,
		LastError:    state.LastError,
	}
	if state.Document != nil {
		view.Pages = state.Document.Pages
		view.Size = state.Document.Size
	}
	return view
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}

	lang := i18n.Negotiate(c.GetHeader("Accept-Language"))
	if strings.TrimSpace(req.Language) != "" {
		parsed, err := i18n.Parse(req.Language)
		if err != nil {
			h.fail(c, err)
			return
		}
		lang = parsed
	}

	state, err := h.sessions.Create(c.Request.Context(), lang)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Respond(c, http.StatusCreated, NewSessionView(state))
}

func (h *Handler) GetSession(c *gin.Context) {
	state, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, NewSessionView(state))
}

// UploadDocument accepts a multipart form with "file" and starts extraction.
func (h *Handler) UploadDocument(c *gin.Context) {
	upload, cleanup, err := formUpload(c, h.sessions.Encoder().MaxBytes())
	if err != nil {
		h.fail(c, err)
		return
	}
	defer cleanup()

	state, err := h.sessions.Upload(c.Request.Context(), c.Param("id"), upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Respond(c, http.StatusAccepted, NewSessionView(state))
}

// GetDocument streams the loaded PDF back for inline viewing.
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.sessions.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	raw, err := doc.Bytes()
	if err != nil {
		h.fail(c, fmt.Errorf("decode document: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Name))
	c.Data(http.StatusOK, document.MIMEType, raw)
}

// SendMessage waits for the reply before answering.
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	state, err := h.sessions.Send(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, NewSessionView(state))
}

func (h *Handler) Reset(c *gin.Context) {
	state, err := h.sessions.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, NewSessionView(state))
}

func (h *Handler) SetView(c *gin.Context) {
	var req SetViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	mode, err := session.ParseViewMode(req.Mode)
	if err != nil {
		h.fail(c, err)
		return
	}
	state, err := h.sessions.SetView(c.Request.Context(), c.Param("id"), mode)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, NewSessionView(state))
}

func (h *Handler) SetLanguage(c *gin.Context) {
	var req SetLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	state, err := h.sessions.SetLanguage(c.Request.Context(), c.Param("id"), i18n.Language(req.Language))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, NewSessionView(state))
}

func (h *Handler) Translations(c *gin.Context) {
	lang, err := i18n.Parse(c.Param("lang"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"language":  lang,
		"direction": lang.Direction(),
		"strings":   i18n.For(lang),
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	response.Error(c, status, code, message)
}

// classify maps domain errors onto HTTP status, envelope code and message.
func classify(err error) (int, int, string) {
	switch {
	case errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrInvalidView),
		errors.Is(err, i18n.ErrUnsupportedLanguage):
		return http.StatusBadRequest, response.CodeBadRequest, err.Error()
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, response.CodeSessionNotFound, "session not found"
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrReplyPending),
		errors.Is(err, session.ErrNoDocument),
		errors.Is(err, session.ErrStale),
		errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict, response.CodeConflict, err.Error()
	default:
		return http.StatusInternalServerError, response.CodeInternalServer, "internal error"
	}
}

// formUpload opens the "file" part of a multipart form. Oversized parts are
// rejected before they are read.
func formUpload(c *gin.Context, maxBytes int64) (document.Upload, func(), error) {
	file, err := c.FormFile("file")
	if err != nil {
		return document.Upload{}, nil, fmt.Errorf("%w: missing file", document.ErrInvalidDocument)
	}
	if file.Size > maxBytes {
		return document.Upload{}, nil, fmt.Errorf("%w: file exceeds %d bytes", document.ErrInvalidDocument, maxBytes)
	}
	f, err := file.Open()
	if err != nil {
		return document.Upload{}, nil, fmt.Errorf("open upload: %w", err)
	}
	upload := document.Upload{
		Name:        file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Reader:      f,
	}
	return upload, func() { f.Close() }, nil
}
