package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/invoicevision/internal/ai"
	"github.com/local/invoicevision/internal/render"
	"github.com/local/invoicevision/internal/workflow"
)

type cannedInvoker struct{ text string }

func (c *cannedInvoker) Invoke(context.Context, string, render.EncodedImage) (ai.Response, error) {
	return ai.Response{Text: c.text}, nil
}

func testServer(t *testing.T, text string) *Server {
	t.Helper()
	wf, err := workflow.New(&cannedInvoker{text: text}, workflow.Options{})
	require.NoError(t, err)
	return &Server{Workflow: wf}
}

func pngBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return &buf
}

func TestExtract_Success(t *testing.T) {
	srv := testServer(t, `{"invoice_number":"X-1","total_amount":10.0}`)
	req := httptest.NewRequest(http.MethodPost, "/extract", pngBody(t))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res workflow.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotNil(t, res.Record)
	assert.Equal(t, "X-1", *res.Record.InvoiceNumber)
	assert.InDelta(t, 10.0, *res.Record.TotalAmount, 1e-9)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	srv := testServer(t, `{}`)
	req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewBufferString("just some text"))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestExtract_UnusableModelOutput(t *testing.T) {
	srv := testServer(t, "no json here at all")
	req := httptest.NewRequest(http.MethodPost, "/extract", pngBody(t))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestExtract_EmptyBody(t *testing.T) {
	srv := testServer(t, `{}`)
	req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewBuffer(nil))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAsync_UnconfiguredReturns503(t *testing.T) {
	srv := testServer(t, `{}`)
	for _, path := range []string{"/extract_async"} {
		req := httptest.NewRequest(http.MethodPost, path, pngBody(t))
		rr := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}
	req := httptest.NewRequest(http.MethodGet, "/progress/abc", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth(t *testing.T) {
	srv := testServer(t, `{}`)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "ok", out["status"])
}
