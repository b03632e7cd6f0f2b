package utils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetMirror_PublicURL(t *testing.T) {
	m := NewAssetMirror("https://proj.supabase.co/", "key", "certificates")
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/certificates/templates/a.png",
		m.PublicURL("templates/a.png"))
}

func TestAssetMirror_Upload(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		body  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Key":"certificates/cert_1.html"}`))
	}))
	defer srv.Close()

	m := NewAssetMirror(srv.URL, "key", "certificates")
	url, err := m.Upload("cert_1.html", []byte("<html></html>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/certificates/cert_1.html", url)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/storage/v1/object/certificates/cert_1.html", paths[0])
	assert.Contains(t, string(body), "<html></html>")
}
