package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndPop(t *testing.T) {
	w := httptest.NewRecorder()
	Set(w, AccessDenied)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()

	assert.Equal(t, AccessDenied, Pop(w, req))

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestPop(t *testing.T) {
	tests := []struct {
		name        string
		cookie      *http.Cookie
		expected    string
		expectClear bool
	}{
		{name: "no cookie", cookie: nil, expected: "", expectClear: false},
		{name: "undecodable cookie", cookie: &http.Cookie{Name: CookieName, Value: "%%%"}, expected: "", expectClear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			assert.Equal(t, tt.expected, Pop(w, req))
			assert.Equal(t, tt.expectClear, len(w.Result().Cookies()) == 1)
		})
	}
}
