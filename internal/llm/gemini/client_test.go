package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReturnsCandidateText(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ats_score\":80}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "key", "gemini-test", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-test", c.Name())

	out, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"ats_score":80}`, out)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), "", "gemini-test", Options{})
	require.Error(t, err)
}
