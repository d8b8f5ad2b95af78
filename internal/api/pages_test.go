package api

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func (s *testServer) page(method, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return s.do(req)
}

func TestIndexCreatesSessionAndShowsUpload(t *testing.T) {
	srv := newTestServer(t, &stubLLM{})
	rec := srv.page(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookieFrom(t, rec)
	assert.NotEmpty(t, cookie.Value)
	body := rec.Body.String()
	en := i18n.For(i18n.English)
	assert.Contains(t, body, en.Title)
	assert.Contains(t, body, en.Upload)
	assert.Contains(t, body, html.EscapeString(en.DisclaimerTitle))
	assert.Contains(t, body, `dir="ltr"`)
	assert.Contains(t, body, html.EscapeString(en.AboutTitle))
	assert.Contains(t, body, html.EscapeString(en.HelpTitle))
	assert.Contains(t, body, html.EscapeString(en.About))
}

func TestUploadPageFlow(t *testing.T) {
	srv := newTestServer(t, &stubLLM{axioms: []llm.Axiom{{Term: "Entropy", Definition: "A measure of disorder."}}, reply: "The author argues X."})
	cookie := sessionCookieFrom(t, srv.page(http.MethodGet, "/", nil, nil))

	body, ctype := multipartBody(t, "file", "paper.pdf", "application/pdf", samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(cookie)
	rec := srv.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	srv.service.Wait()
	rec = srv.page(http.MethodGet, "/", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Entropy")
	assert.Contains(t, page, "Axiomatic Concept 01")
	assert.NotContains(t, page, html.EscapeString(i18n.For(i18n.English).DisclaimerTitle))

	rec = srv.page(http.MethodPost, "/chat", cookie, url.Values{"text": {"What is the author's thesis?"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page = srv.page(http.MethodGet, "/", cookie, nil).Body.String()
	assert.Contains(t, page, "The author argues X.")

	rec = srv.page(http.MethodPost, "/view", cookie, url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page = srv.page(http.MethodGet, "/", cookie, nil).Body.String()
	assert.Contains(t, page, "<iframe")

	rec = srv.page(http.MethodPost, "/reset", cookie, url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page = srv.page(http.MethodGet, "/", cookie, nil).Body.String()
	assert.NotContains(t, page, "Entropy")
	assert.Contains(t, page, i18n.For(i18n.English).Upload)
}

func TestUploadPageRejectsNonPDF(t *testing.T) {
	srv := newTestServer(t, &stubLLM{})
	cookie := sessionCookieFrom(t, srv.page(http.MethodGet, "/", nil, nil))

	body, ctype := multipartBody(t, "file", "notes.txt", "text/plain", []byte("plain words"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(cookie)
	rec := srv.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "invalid document")
}

func TestLanguagePageToggle(t *testing.T) {
	srv := newTestServer(t, &stubLLM{})
	cookie := sessionCookieFrom(t, srv.page(http.MethodGet, "/", nil, nil))

	rec := srv.page(http.MethodPost, "/language", cookie, url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := srv.page(http.MethodGet, "/", cookie, nil).Body.String()
	assert.Contains(t, page, `dir="rtl"`)
	assert.Contains(t, page, i18n.For(i18n.Arabic).Upload)
	assert.Contains(t, page, i18n.For(i18n.Arabic).AboutTitle)
	assert.Contains(t, page, i18n.For(i18n.Arabic).HelpTitle)
}

func TestViewPageWithoutDocument(t *testing.T) {
	srv := newTestServer(t, &stubLLM{})
	cookie := sessionCookieFrom(t, srv.page(http.MethodGet, "/", nil, nil))

	rec := srv.page(http.MethodPost, "/view", cookie, url.Values{"mode": {"document"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no document loaded")
}
