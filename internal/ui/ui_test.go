package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r)

	cases := []struct {
		path     string
		endpoint string
		element  string
	}{
		{path: "/music", endpoint: `data-endpoint="/api/music"`, element: `data-kind="audio"`},
		{path: "/video", endpoint: `data-endpoint="/api/video"`, element: `data-kind="video"`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			body := w.Body.String()
			assert.Contains(t, body, tc.endpoint)
			assert.Contains(t, body, tc.element)
			assert.Contains(t, body, `<dialog id="upgrade">`)
			assert.Contains(t, body, "/api/account/usage")
		})
	}
}

func TestRootRedirects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/music", w.Header().Get("Location"))
}
