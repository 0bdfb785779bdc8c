package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-formatter/internal/models"
)

func TestClient_ProcessAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/api/v1/ai/process":
			var req models.ProcessRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "doc-1", req.CVID)
			assert.Equal(t, "gemini", req.Model)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(models.ProcessResponse{DocumentID: "doc-1", Status: models.StatusProcessing})
		case "/api/v1/ai/status/doc-1":
			_ = json.NewEncoder(w).Encode(models.StatusResponse{DocumentID: "doc-1", Status: models.StatusCompleted})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"CV not found","code":404}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")

	resp, err := c.Process(context.Background(), "doc-1", "gemini")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, resp.Status)

	st, err := c.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, st.Status)

	_, err = c.Status(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "CV not found", apiErr.Message)
}

func TestClient_UploadAndExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/files":
			f, fh, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			data, _ := io.ReadAll(f)
			assert.Equal(t, "cv.pdf", fh.Filename)
			assert.Equal(t, "application/pdf", fh.Header.Get("Content-Type"))
			assert.Equal(t, "%PDF", string(data))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(models.UploadResponse{CVID: "doc-1", Filename: fh.Filename})
		case "/api/v1/files/doc-1/export/cv":
			_, _ = w.Write([]byte("docx-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")

	up, err := c.Upload(context.Background(), "/tmp/cv.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", up.CVID)

	var buf bytes.Buffer
	require.NoError(t, c.Export(context.Background(), "doc-1", "cv", &buf))
	assert.Equal(t, "docx-bytes", buf.String())
}
