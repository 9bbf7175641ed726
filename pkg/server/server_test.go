package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/random"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFormats(t *testing.T) {
	reg := format.NewRegistry()
	reg.Register("sku", func(*random.Rand, map[string]any) (any, error) { return "SKU-1", nil })
	hooks := schemagen.NewHooks()
	hooks.Register("x-fixed", func(context.Context, any, schemagen.Schema, *random.Rand) (any, error) { return 1, nil })
	srv := newTestServer(t, Config{Formats: reg, Hooks: hooks})

	resp, err := http.Get(srv.URL + "/formats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Formats []string `json:"formats"`
		Hooks   []string `json:"hooks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Formats, "sku")
	assert.Contains(t, body.Formats, "email")
	assert.Equal(t, []string{"x-fixed"}, body.Hooks)
}

func TestGenerate_SingleValue(t *testing.T) {
	srv := newTestServer(t, Config{Options: map[string]any{"alwaysFakeOptionals": true}})

	resp, data := post(t, srv.URL+"/generate", `{
		"schema": {"type": "object", "properties": {"id": {"type": "integer", "minimum": 5, "maximum": 5}}},
		"options": {"seed": 3}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var body GenerateResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, map[string]any{"id": float64(5)}, body.Value)
	assert.Nil(t, body.Values)
}

func TestGenerate_CountAndPointer(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, data := post(t, srv.URL+"/generate", `{
		"schema": {"$defs": {"flag": {"type": "boolean"}}},
		"pointer": "#/$defs/flag",
		"count": 4
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var body GenerateResponse
	require.NoError(t, json.Unmarshal(data, &body))
	require.Len(t, body.Values, 4)
	for _, v := range body.Values {
		assert.IsType(t, true, v)
	}
}

func TestGenerate_WithRefs(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, data := post(t, srv.URL+"/generate", `{
		"schema": {"$ref": "colors.json#/definitions/color"},
		"refs": {"colors.json": {"definitions": {"color": {"enum": ["red"]}}}}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.JSONEq(t, `{"value": "red"}`, string(data))
}

func TestGenerate_YAMLOutput(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, data := post(t, srv.URL+"/generate?output=yaml", `{
		"schema": {"type": "object", "title": "Thing", "required": ["n"], "properties": {"n": {"const": 1}}}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(data), "# Thing")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, 1, back["n"])
}

func TestGenerate_Errors(t *testing.T) {
	srv := newTestServer(t, Config{MaxCount: 2})

	tests := []struct {
		name   string
		url    string
		body   string
		status int
		kind   string
		path   string
	}{
		{"bad json", "/generate", `{"schema":`, http.StatusBadRequest, "decode", ""},
		{"unknown field", "/generate", `{"schema": {}, "nope": 1}`, http.StatusBadRequest, "decode", ""},
		{"missing schema", "/generate", `{}`, http.StatusBadRequest, "decode", ""},
		{"count limit", "/generate", `{"schema": {}, "count": 3}`, http.StatusBadRequest, "decode", ""},
		{"bad option", "/generate", `{"schema": {}, "options": {"noSuchOption": true}}`, http.StatusBadRequest, "options", ""},
		{"bad renderer", "/generate?output=xml", `{"schema": {}}`, http.StatusBadRequest, "decode", ""},
		{"missing ref", "/generate", `{"schema": {"type": "object", "required": ["a"], "properties": {"a": {"$ref": "#/nope"}}}}`, http.StatusUnprocessableEntity, "reference", "#/properties/a"},
		{"unknown type", "/generate", `{"schema": {"type": "wat"}}`, http.StatusUnprocessableEntity, "type", "#"},
		{"unknown format", "/generate", `{"schema": {"type": "string", "format": "wat"}}`, http.StatusUnprocessableEntity, "format", "#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := post(t, srv.URL+tt.url, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
			if tt.path != "" {
				assert.Equal(t, tt.path, body.Path)
			}
		})
	}
}

func TestServeListener_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{}).ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
