package resumes

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cv-analyzer/resume/model"
)

func newTestRouter(svc *Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("userName", "ada")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestResumeCRUDFlow(t *testing.T) {
	svc, _ := newTestService()
	r := newTestRouter(svc, "owner-1")

	resp := doJSON(r, http.MethodPost, "/api/resumes", map[string]any{
		"title":   "Backend CV",
		"content": map[string]any{"summary": "Go"},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var created Resume
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp = doJSON(r, http.MethodPatch, "/api/resumes/1", map[string]any{"title": "Renamed"})
	if resp.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	var patched Resume
	if err := json.Unmarshal(resp.Body.Bytes(), &patched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patched.Title != "Renamed" || len(patched.Versions) != 2 {
		t.Fatalf("unexpected patched resume %+v", patched)
	}

	resp = doJSON(r, http.MethodGet, "/api/resumes", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Renamed") {
		t.Fatalf("list: unexpected %d %s", resp.Code, resp.Body.String())
	}
}

func TestResumeValidationAndNotFound(t *testing.T) {
	svc, _ := newTestService()
	r := newTestRouter(svc, "owner-1")

	if resp := doJSON(r, http.MethodPost, "/api/resumes", map[string]any{"title": ""}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank title, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodPost, "/api/resumes", map[string]any{"title": "x", "content": []string{"a"}}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-object content, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodGet, "/api/resumes/abc", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bad id, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodGet, "/api/resumes/42", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.Code)
	}
}

func TestResumeForeignOwnerGets404(t *testing.T) {
	svc, _ := newTestService()
	owner := newTestRouter(svc, "owner-1")
	other := newTestRouter(svc, "owner-2")

	if resp := doJSON(owner, http.MethodPost, "/api/resumes", map[string]any{"title": "CV"}); resp.Code != http.StatusCreated {
		t.Fatalf("create: %d", resp.Code)
	}
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/resumes/1"},
		{http.MethodPatch, "/api/resumes/1"},
		{http.MethodPost, "/api/resumes/1/share"},
		{http.MethodGet, "/api/resumes/1/export"},
	} {
		resp := doJSON(other, tc.method, tc.path, map[string]any{"title": "x"})
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestResumeShareReturnsToken(t *testing.T) {
	svc, shares := newTestService()
	r := newTestRouter(svc, "owner-1")
	doJSON(r, http.MethodPost, "/api/resumes", map[string]any{"title": "CV"})

	resp := doJSON(r, http.MethodPost, "/api/resumes/1/share", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["token"] != "tok-1" || body["url"] != "/share/tok-1" {
		t.Fatalf("unexpected share body %v", body)
	}
	if len(shares.issued) != 1 || shares.issued[0] != 1 {
		t.Fatalf("unexpected issued %v", shares.issued)
	}
}

func TestResumeExport(t *testing.T) {
	svc, _ := newTestService()
	r := newTestRouter(svc, "owner-1")
	doJSON(r, http.MethodPost, "/api/resumes", map[string]any{
		"title":           "Platform CV",
		"content":         map[string]any{"skills": "Go, SQL"},
		"latest_analysis": map[string]any{"improved_bullets": []string{"Shipped X"}},
	})

	resp := doJSON(r, http.MethodGet, "/api/resumes/1/export", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); cd != `attachment; filename="platform-cv.pdf"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("body is not a PDF")
	}

	svc.Render = func(model.Document) ([]byte, error) { return nil, errors.New("boom") }
	if resp := doJSON(r, http.MethodGet, "/api/resumes/1/export", nil); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on render failure, got %d", resp.Code)
	}
}
