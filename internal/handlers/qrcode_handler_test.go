package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"io.winapps.qrbackend/internal/handlers"
	qrmodels "io.winapps.qrbackend/internal/models/qrcode"
	"io.winapps.qrbackend/internal/qrcode"
	"io.winapps.qrbackend/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRecorder struct {
	mu   sync.Mutex
	gens []qrmodels.Generation
	err  error
}

func (r *fakeRecorder) Name() string { return "fake" }

func (r *fakeRecorder) RecordGeneration(_ context.Context, gen qrmodels.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens = append(r.gens, gen)
	return r.err
}

type rejectingEncoder struct{}

func (rejectingEncoder) Encode(string) (image.Image, error) {
	return nil, fmt.Errorf("%w: content too long to encode", qrcode.ErrEncode)
}

type testEnv struct {
	router   *gin.Engine
	dir      string
	recorder *fakeRecorder
}

func newTestEnv(t *testing.T, encoder qrcode.Encoder) *testEnv {
	t.Helper()

	if encoder == nil {
		var err error
		encoder, err = qrcode.NewEncoder(128, "medium")
		require.NoError(t, err)
	}

	dir := filepath.Join(t.TempDir(), "imgs")
	rec := &fakeRecorder{}
	h := handlers.NewQRHandler(encoder, storage.NewDiskStore(dir), nil, time.Second, rec)

	router := gin.New()
	router.GET("/", handlers.Home)
	router.POST("/qrcode", h.GenerateQRCode)
	router.GET("/qrcode/:entry_id", h.GetQRCode)

	return &testEnv{router: router, dir: dir, recorder: rec}
}

func (e *testEnv) post(contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/qrcode", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(body string) *httptest.ResponseRecorder {
	return e.post("application/json", body)
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotContains(t, resp, "status")
	msg, ok := resp["message"].(string)
	require.True(t, ok, "response must carry a string message: %s", w.Body.String())
	return msg
}

func TestGenerateQRCodeSuccess(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.postJSON(`{"_id": "64b7f0c2e1a9"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Success", message(t, w))
	require.Empty(t, w.Header().Get("X-Error-Code"))
	require.FileExists(t, filepath.Join(env.dir, "64b7f0c2e1a9.png"))

	require.Len(t, env.recorder.gens, 1)
	gen := env.recorder.gens[0]
	require.Equal(t, "64b7f0c2e1a9", gen.EntryID)
	require.Equal(t, filepath.Join(env.dir, "64b7f0c2e1a9.png"), gen.Path)
	require.Positive(t, gen.SizeBytes)
	require.False(t, gen.GeneratedAt.IsZero())
}

func TestGenerateQRCodeCoercesScalars(t *testing.T) {
	cases := map[string]string{
		`{"_id": 12345}`:         "12345",
		`{"_id": 1.50}`:          "1.50",
		`{"_id": true}`:          "true",
		`{"_id": "abc", "x": 1}`: "abc",
	}
	for body, file := range cases {
		t.Run(file, func(t *testing.T) {
			env := newTestEnv(t, nil)

			w := env.postJSON(body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.FileExists(t, filepath.Join(env.dir, file+".png"))
		})
	}
}

func TestGenerateQRCodeValidation(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		status      int
		message     string
		code        string
	}{
		{"plain text", "text/plain", `{"_id": "abc"}`, 400, "Request must be JSON", handlers.CodeNotJSONContentType},
		{"form body", "application/x-www-form-urlencoded", "_id=abc", 400, "Request must be JSON", handlers.CodeNotJSONContentType},
		{"no content type", "", `{"_id": "abc"}`, 400, "Request must be JSON", handlers.CodeNotJSONContentType},
		{"malformed json", "application/json", `{"_id": `, 400, "Request must be JSON", handlers.CodeMalformedBody},
		{"json array", "application/json", `["abc"]`, 400, "Request must be JSON", handlers.CodeMalformedBody},
		{"json null", "application/json", `null`, 400, "Request must be JSON", handlers.CodeMalformedBody},
		{"missing id", "application/json", `{"entry_id": "abc"}`, 400, "entry_id not provided", handlers.CodeMissingIdentifier},
		{"empty object", "application/json", `{}`, 400, "entry_id not provided", handlers.CodeMissingIdentifier},
		{"empty id", "application/json", `{"_id": ""}`, 400, "entry_id is empty", handlers.CodeEmptyIdentifier},
		{"null id", "application/json", `{"_id": null}`, 400, "Invalid entry_id", handlers.CodeIdentifierNotScalar},
		{"object id", "application/json", `{"_id": {"$oid": "abc"}}`, 400, "Invalid entry_id", handlers.CodeIdentifierNotScalar},
		{"array id", "application/json", `{"_id": ["abc"]}`, 400, "Invalid entry_id", handlers.CodeIdentifierNotScalar},
		{"traversal", "application/json", `{"_id": "../x"}`, 400, "Invalid entry_id", handlers.CodeIdentifierUnsafe},
		{"separator", "application/json", `{"_id": "a/b"}`, 400, "Invalid entry_id", handlers.CodeIdentifierUnsafe},
		{"dot file", "application/json", `{"_id": ".."}`, 400, "Invalid entry_id", handlers.CodeIdentifierUnsafe},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			w := env.post(tc.contentType, tc.body)

			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.message, message(t, w))
			require.Equal(t, tc.code, w.Header().Get("X-Error-Code"))
			require.NoDirExists(t, env.dir, "no storage side effects on rejected requests")
			require.Empty(t, env.recorder.gens)
		})
	}
}

func TestGenerateQRCodeVendorJSONContentType(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.post("application/vnd.api+json; charset=utf-8", `{"_id": "abc"}`)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateQRCodeEncoderRejects(t *testing.T) {
	env := newTestEnv(t, rejectingEncoder{})

	w := env.postJSON(`{"_id": "abc"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid entry_id", message(t, w))
	require.Equal(t, handlers.CodeEncodeRejected, w.Header().Get("X-Error-Code"))
	require.NoDirExists(t, env.dir)
}

func TestGenerateQRCodeStorageFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, os.WriteFile(env.dir, []byte("not a directory"), 0644))

	w := env.postJSON(`{"_id": "abc"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Error processing QR code", message(t, w))
	require.Equal(t, handlers.CodeStorageFailure, w.Header().Get("X-Error-Code"))
	require.Empty(t, env.recorder.gens)
}

func TestGenerateQRCodeOverwrites(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(env.dir, "abc.png")

	require.Equal(t, http.StatusOK, env.postJSON(`{"_id": "abc"}`).Code)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	require.Equal(t, http.StatusOK, env.postJSON(`{"_id": "abc"}`).Code)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.ModTime().After(old), "second write must replace the first")
	require.Len(t, env.recorder.gens, 2)
}

func TestGenerateQRCodeRecreatesDirectory(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.postJSON(`{"_id": "abc"}`).Code)
	require.NoError(t, os.RemoveAll(env.dir))

	require.Equal(t, http.StatusOK, env.postJSON(`{"_id": "def"}`).Code)
	require.FileExists(t, filepath.Join(env.dir, "def.png"))
}

func TestGenerateQRCodeRecorderFailureIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	env.recorder.err = errors.New("ledger unavailable")

	w := env.postJSON(`{"_id": "abc"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Success", message(t, w))
	require.Len(t, env.recorder.gens, 1)
}

func TestGetQRCode(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.postJSON(`{"_id": "abc"}`).Code)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/qrcode/abc", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	want, err := os.ReadFile(filepath.Join(env.dir, "abc.png"))
	require.NoError(t, err)
	require.Equal(t, want, w.Body.Bytes())
}

func TestGetQRCodeErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/qrcode/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "QR code not found", message(t, w))

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/qrcode/.hidden", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid entry_id", message(t, w))
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusBadRequest, env.postJSON(`{}`).Code)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Main Page")
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
}
