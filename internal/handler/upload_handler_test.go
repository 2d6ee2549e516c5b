package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"oneclick-video/internal/middleware"
	"oneclick-video/internal/repository"
	"oneclick-video/internal/services"
	"oneclick-video/internal/storage"
	"oneclick-video/internal/transport/httpdto"
	"oneclick-video/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router *gin.Engine
	store  *storage.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storage.NewMemoryStore("videos")
	coord := services.NewUploadCoordinator(store, repository.NewMemoryAssetRepository(), nil, services.CoordinatorConfig{}, logger.Nop())
	h := NewUploadHandler(coord)

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger.Nop()))
	g := r.Group("/api/v1/uploads")
	g.POST("/initiate", h.Initiate)
	g.POST("/presigned-url", h.PresignedURL)
	g.POST("/complete", h.Complete)
	g.POST("/abort", h.Abort)
	g.GET("", h.List)
	g.GET("/:asset_id", h.GetByID)
	g.GET("/:asset_id/download", h.Download)
	g.DELETE("/:asset_id", h.Delete)
	return &testAPI{router: r, store: store}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) httpdto.Response[T] {
	t.Helper()
	var resp httpdto.Response[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (a *testAPI) initiate(t *testing.T, filename string) httpdto.InitiateUploadResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/uploads/initiate", gin.H{"filename": filename, "owner_id": 9})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[httpdto.InitiateUploadResponse](t, w).Data
}

func TestUploadHandler_FullFlow(t *testing.T) {
	api := newTestAPI(t)
	started := api.initiate(t, "clip.mp4")
	assert.Equal(t, "uploads/"+started.AssetID+"/clip.mp4", started.Key)

	w := api.do(t, http.MethodPost, "/api/v1/uploads/presigned-url", gin.H{
		"asset_id": started.AssetID, "upload_id": started.UploadID, "part_number": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[httpdto.URLResponse](t, w).Data.URL, started.Key)

	etag, err := api.store.UploadPart(started.UploadID, 1, []byte("video bytes"))
	require.NoError(t, err)

	w = api.do(t, http.MethodPost, "/api/v1/uploads/complete", gin.H{
		"asset_id": started.AssetID, "upload_id": started.UploadID,
		"parts": []gin.H{{"PartNumber": 1, "ETag": etag}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[httpdto.CompleteUploadResponse](t, w).Data
	require.NotNil(t, done.SizeBytes)
	assert.Equal(t, int64(len("video bytes")), *done.SizeBytes)

	w = api.do(t, http.MethodGet, "/api/v1/uploads/"+started.AssetID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[httpdto.AssetDTO](t, w).Data
	assert.Equal(t, "completed", got.Status)
	assert.NotEmpty(t, got.CompletedAt)

	w = api.do(t, http.MethodGet, "/api/v1/uploads/"+started.AssetID+"/download?disposition=attachment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[httpdto.URLResponse](t, w).Data.URL, "response-content-disposition")

	w = api.do(t, http.MethodGet, "/api/v1/uploads?owner_id=9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]httpdto.AssetDTO](t, w).Data, 1)

	w = api.do(t, http.MethodDelete, "/api/v1/uploads/"+started.AssetID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[httpdto.DeleteAssetResponse](t, w).Data.OK)

	w = api.do(t, http.MethodGet, "/api/v1/uploads/"+started.AssetID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[any](t, w).Code)
}

func TestUploadHandler_ErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	started := api.initiate(t, "clip.mp4")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing filename", http.MethodPost, "/api/v1/uploads/initiate", gin.H{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad asset id", http.MethodGet, "/api/v1/uploads/not-a-uuid", nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown asset", http.MethodGet, "/api/v1/uploads/" + uuid.NewString(), nil, http.StatusNotFound, "NOT_FOUND"},
		{"download while uploading", http.MethodGet, "/api/v1/uploads/" + started.AssetID + "/download", nil, http.StatusConflict, "INVALID_STATE"},
		{"bad disposition", http.MethodGet, "/api/v1/uploads/" + started.AssetID + "/download?disposition=x", nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"delete while uploading", http.MethodDelete, "/api/v1/uploads/" + started.AssetID, nil, http.StatusConflict, "INVALID_STATE"},
		{"wrong upload id", http.MethodPost, "/api/v1/uploads/presigned-url", gin.H{"asset_id": started.AssetID, "upload_id": "zzz", "part_number": 1}, http.StatusConflict, "INVALID_STATE"},
		{"part out of range", http.MethodPost, "/api/v1/uploads/presigned-url", gin.H{"asset_id": started.AssetID, "upload_id": started.UploadID, "part_number": 10001}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"part missing etag", http.MethodPost, "/api/v1/uploads/complete", gin.H{"asset_id": started.AssetID, "upload_id": started.UploadID, "parts": []gin.H{{"PartNumber": 1}}}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad owner filter", http.MethodGet, "/api/v1/uploads?owner_id=abc", nil, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decode[any](t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestUploadHandler_UpstreamAndAbort(t *testing.T) {
	api := newTestAPI(t)
	started := api.initiate(t, "clip.mp4")

	api.store.FailOn(storage.OpPartURL, errors.New("signer down"))
	w := api.do(t, http.MethodPost, "/api/v1/uploads/presigned-url", gin.H{
		"asset_id": started.AssetID, "upload_id": started.UploadID, "part_number": 1,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decode[any](t, w).Code)

	body := gin.H{"asset_id": started.AssetID, "upload_id": started.UploadID}
	w = api.do(t, http.MethodPost, "/api/v1/uploads/abort", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(t, http.MethodPost, "/api/v1/uploads/abort", body)
	assert.Equal(t, http.StatusOK, w.Code, "abort is idempotent")

	w = api.do(t, http.MethodPost, "/api/v1/uploads/complete", gin.H{
		"asset_id": started.AssetID, "upload_id": started.UploadID,
		"parts": []gin.H{{"part_number": 1, "etag": "e1"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}
