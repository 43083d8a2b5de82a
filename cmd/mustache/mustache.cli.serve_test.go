package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itsatony/go-mustache"
)

func newTestRouter(t *testing.T, opts ...mustache.Option) (*gin.Engine, *mustache.MemoryStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := mustache.NewMemoryStorage()
	opts = append(opts, mustache.WithPartialStorage(storage))
	engine, err := mustache.New(opts...)
	require.NoError(t, err)

	return newRouter(engine, zap.NewNop()), storage
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServe_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, RouteHealth, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServe_Render(t *testing.T) {
	router, storage := newTestRouter(t, mustache.WithPartials(map[string]string{"sig": "-- {{team}}"}))
	require.NoError(t, storage.Save(context.Background(), &mustache.StoredPartial{Name: "stored", Source: "[{{team}}]"}))

	tests := []struct {
		name   string
		body   any
		status int
		output string
		kind   mustache.ErrorKind
	}{
		{
			name:   "plain",
			body:   renderRequest{Template: "Hi {{name}}", Data: map[string]any{"name": "<Ann>"}},
			status: http.StatusOK,
			output: "Hi &lt;Ann&gt;",
		},
		{
			name: "request and engine partials",
			body: renderRequest{
				Template: "{{>greet}} {{>sig}} {{>stored}}",
				Data:     map[string]any{"name": "Bo", "team": "ops"},
				Partials: map[string]string{"greet": "Hello {{name}}"},
			},
			status: http.StatusOK,
			output: "Hello Bo -- ops [ops]",
		},
		{
			name:   "no data",
			body:   renderRequest{Template: "x{{missing}}y"},
			status: http.StatusOK,
			output: "xy",
		},
		{
			name:   "compile error",
			body:   renderRequest{Template: "{{#open}}"},
			status: http.StatusUnprocessableEntity,
			kind:   mustache.ErrorKindUnclosedSection,
		},
		{
			name:   "unknown partial",
			body:   renderRequest{Template: "{{>nope}}"},
			status: http.StatusUnprocessableEntity,
			kind:   mustache.ErrorKindUnknownPartial,
		},
		{
			name:   "missing template",
			body:   map[string]any{"data": map[string]any{}},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, RouteRender, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			switch tt.status {
			case http.StatusOK:
				var resp renderResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.output, resp.Output)
			case http.StatusUnprocessableEntity:
				var resp errorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, string(tt.kind), resp.Kind)
				assert.NotEmpty(t, resp.Error)
			default:
				assert.Contains(t, rec.Body.String(), ErrMsgInvalidRequest)
			}
		})
	}
}

func TestServe_Validate(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("valid", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, RouteValidate, validateRequest{
			Template: "{{>a}}",
			Partials: map[string]string{"a": "A"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var out validationOutput
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, out.Valid)
		assert.Equal(t, []string{"a"}, out.Partials)
	})

	t.Run("invalid", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, RouteValidate, validateRequest{Template: "{{%NOPE}}"})
		require.Equal(t, http.StatusOK, rec.Code)

		var out validationOutput
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.False(t, out.Valid)
		assert.Equal(t, string(mustache.ErrorKindUnsupportedPragma), out.Kind)
	})

	t.Run("bad body", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, RouteValidate, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServe_Partials(t *testing.T) {
	router, storage := newTestRouter(t, mustache.WithPartials(map[string]string{"b": "B", "a": "A"}))
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, &mustache.StoredPartial{Name: "s", Source: "S"}))

	rec := doJSON(t, router, http.MethodGet, RoutePartials, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp partialsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a", "b"}, resp.Registered)
	assert.Equal(t, []string{"s"}, resp.Stored)

	t.Run("storage failure", func(t *testing.T) {
		require.NoError(t, storage.Close())
		rec := doJSON(t, router, http.MethodGet, RoutePartials, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), ErrMsgListPartialsFailed)
	})
}

func TestParseServeFlags(t *testing.T) {
	cfg, err := parseServeFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, FlagDefaultAddr, cfg.addr)

	cfg, err = parseServeFlags([]string{"-a", "127.0.0.1:9000", "--partials", "dir", "-v"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.addr)
	assert.Equal(t, "dir", cfg.partialsDir)
	assert.True(t, cfg.verbose)

	_, err = parseServeFlags([]string{"--bogus"})
	assert.Error(t, err)
}
