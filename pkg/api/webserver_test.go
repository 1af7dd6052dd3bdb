package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chenBenjamin97/football-analyzer/pkg/config"
	"github.com/chenBenjamin97/football-analyzer/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagCall struct {
	job, name string
}

type fakeTagger struct {
	calls chan tagCall
}

func (f *fakeTagger) Tag(job, name string) {
	f.calls <- tagCall{job: job, name: name}
}

func testServer(t *testing.T) (*gin.Engine, *config.Config, *fakeTagger) {
	gin.SetMode(gin.TestMode)
	root := t.TempDir()

	cfg := &config.Config{}
	cfg.Video.ProdFormat = "mp4"
	cfg.Directory = config.DirectoryConfig{
		Root:    root,
		Source:  filepath.Join(root, "source"),
		Ready:   filepath.Join(root, "ready"),
		Temp:    filepath.Join(root, "temp"),
		Cache:   filepath.Join(root, "cache"),
		Results: filepath.Join(root, "results"),
	}
	require.NoError(t, utils.EnsureDirs(cfg.Directory.All()...))

	tagger := &fakeTagger{calls: make(chan tagCall, 1)}
	return SetRouter(cfg, tagger, zerolog.Nop()), cfg, tagger
}

func uploadRequest(t *testing.T, fields map[string][]byte, names map[string]string) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, content := range fields {
		part, err := w.CreateFormFile(field, names[field])
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/Upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	r, cfg, tagger := testServer(t)

	req := uploadRequest(t,
		map[string][]byte{"video": []byte("not really a video"), "detections": []byte(`{"Frame":0}`)},
		map[string]string{"video": "match.mp4", "detections": "match.jsonl"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := uuid.Parse(resp["job"])
	require.NoError(t, err)

	select {
	case call := <-tagger.calls:
		assert.Equal(t, tagCall{job: resp["job"], name: "match.mp4"}, call)
	case <-time.After(time.Second):
		t.Fatal("analysis was not started")
	}

	_, err = os.Stat(filepath.Join(cfg.Directory.Source, "match.mp4"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Directory.Source, "match"+utils.DetectionsSuffix))
	assert.NoError(t, err)

	//same name twice is refused
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"video": []byte("x")}, map[string]string{"video": "match.mp4"}))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestUploadRejects(t *testing.T) {
	r, _, tagger := testServer(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"video": []byte("x")}, map[string]string{"video": "notes.txt"}))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"other": []byte("x")}, map[string]string{"other": "a.mp4"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, tagger.calls)
}

func TestListAndPlay(t *testing.T) {
	r, cfg, _ := testServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Directory.Ready, "match.mp4"), []byte("tagged"), 0644))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ReadyVideosNames", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["match.mp4"]`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/UserUploadsVideosNames", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	tests := []struct {
		query string
		code  int
	}{
		{"name=match&analyzed=true", http.StatusOK},
		{"name=match&analyzed=false", http.StatusNotFound},
		{"name=match", http.StatusNotAcceptable},
		{"analyzed=true", http.StatusNotAcceptable},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/Play?"+tt.query, nil))
		assert.Equal(t, tt.code, rec.Code, tt.query)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/Play?name=match&analyzed=true", nil))
	assert.Equal(t, "tagged", rec.Body.String())
}

func TestResults(t *testing.T) {
	r, cfg, _ := testServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Directory.Results, "match"+utils.SummarySuffix), []byte(`{"frames":3}`), 0644))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/Summary?name=match.mp4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"frames":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/Results?name=match", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/Chart", nil))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}
