package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillsync/tillsync/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postQuery(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHTTP_QuerySuccess(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	router := Router(New(st))

	w := postQuery(t, router, `{
		"action": "insert",
		"table":  "inventory",
		"rows":   [{"id": "p1", "name": "Widget"}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postQuery(t, router, `{
		"action":  "select",
		"table":   "inventory",
		"filters": [{"op": "eq", "column": "id", "value": "p1"}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []map[string]any `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Widget", resp.Data[0]["name"])
}

func TestHTTP_TableNotAllowedReturns400(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	router := Router(New(st))

	w := postQuery(t, router, `{"action": "select", "table": "users"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not allowed")
}

func TestHTTP_BindingMissingReturns500(t *testing.T) {
	router := Router(New(nil))

	w := postQuery(t, router, `{"action": "select", "table": "inventory"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHTTP_MalformedBodyReturns400(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	router := Router(New(st))

	w := postQuery(t, router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_RuntimeInfo(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	router := Router(New(st))

	req := httptest.NewRequest(http.MethodGet, "/api/runtime", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Build struct {
			Mode string `json:"mode"`
		} `json:"build"`
		Stats struct {
			Actions map[string]int `json:"actions"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "development", resp.Build.Mode)
	assert.NotNil(t, resp.Stats.Actions)
}
