package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	resp, err := NewClient("test-agent/2").Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "test-agent/2", got)

	resp, err = NewClient("").Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, DefaultUserAgent, got)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "explicit")
	resp, err = NewClient("ignored").Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "explicit", got)
}
