package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Schema  json.RawMessage `json:"schema"`
	Refs    map[string]any  `json:"refs,omitempty"`
	Options map[string]any  `json:"options,omitempty"`
	// Pointer selects a subschema of Schema as the generation root.
	Pointer string `json:"pointer,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// GenerateResponse is the JSON reply. Values is set when Count > 1.
type GenerateResponse struct {
	Value  any   `json:"value,omitempty"`
	Values []any `json:"values,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) formats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats": s.cfg.Formats.Names(),
		"hooks":   s.cfg.Hooks.Keywords(),
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode", fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.Schema) == 0 {
		writeError(w, http.StatusBadRequest, "decode", errors.New("schema is required"))
		return
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	if count > s.cfg.MaxCount {
		writeError(w, http.StatusBadRequest, "decode", fmt.Errorf("count %d exceeds the limit of %d", count, s.cfg.MaxCount))
		return
	}

	renderer, err := s.renderer(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "decode", err)
		return
	}

	raw := maps.Clone(s.cfg.Options)
	if raw == nil {
		raw = map[string]any{}
	}
	maps.Copy(raw, req.Options)
	opts, err := schemagen.DecodeOptions(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "options", err)
		return
	}

	g, err := schemagen.New(opts,
		schemagen.WithFormats(s.cfg.Formats),
		schemagen.WithHooks(s.cfg.Hooks),
		schemagen.WithLogger(s.cfg.Logger.With(map[string]any{"request": r.URL.Path})),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, "options", err)
		return
	}

	results := make([]*schemagen.Result, 0, count)
	for range count {
		var res *schemagen.Result
		if req.Pointer != "" {
			res, err = g.GenerateAt(r.Context(), []byte(req.Schema), req.Pointer, req.Refs)
		} else {
			res, err = g.Generate(r.Context(), []byte(req.Schema), req.Refs)
		}
		if err != nil {
			status, kind := classify(err)
			writeError(w, status, kind, err)
			return
		}
		results = append(results, res)
	}

	if renderer != nil {
		s.writeRendered(w, renderer, results)
		return
	}

	var resp GenerateResponse
	if count == 1 {
		resp.Value = render.Sanitize(results[0].Value)
	} else {
		for _, res := range results {
			resp.Values = append(resp.Values, render.Sanitize(res.Value))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// renderer returns a text renderer when the client asked for YAML, or nil
// for the JSON envelope.
func (s *Server) renderer(r *http.Request) (render.Renderer, error) {
	name := r.URL.Query().Get("output")
	if name == "" && strings.Contains(r.Header.Get("Accept"), "yaml") {
		name = "yaml"
	}
	if name == "" || name == "json" {
		return nil, nil
	}
	return render.ByName(name)
}

func (s *Server) writeRendered(w http.ResponseWriter, renderer render.Renderer, results []*schemagen.Result) {
	var parts []string
	for _, res := range results {
		out, err := renderer.Render(res.Value, res.Context)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "render", err)
			return
		}
		parts = append(parts, out)
	}
	contentType := "application/json"
	sep := "\n"
	if _, ok := renderer.(render.YAML); ok {
		contentType = "application/yaml"
		sep = "\n---\n"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(parts, sep) + "\n"))
}

// classify maps engine errors to HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	case errors.Is(err, schemagen.ErrReferenceNotFound):
		return http.StatusUnprocessableEntity, "reference"
	case errors.Is(err, schemagen.ErrUnknownType):
		return http.StatusUnprocessableEntity, "type"
	case errors.Is(err, schemagen.ErrUnknownFormat), errors.Is(err, schemagen.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "format"
	case errors.Is(err, schemagen.ErrMalformedSchema):
		return http.StatusUnprocessableEntity, "schema"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	resp := ErrorResponse{Error: err.Error(), Kind: kind}
	var pe *schemagen.PathError
	if errors.As(err, &pe) {
		resp.Path = schemagen.FormatPath(pe.Path)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
