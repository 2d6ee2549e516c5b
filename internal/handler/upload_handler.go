package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"oneclick-video/internal/services"
	"oneclick-video/internal/transport/httpdto"
	apperrors "oneclick-video/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadHandler adapts HTTP requests to the upload coordinator. Errors are
// attached with c.Error and rendered by middleware.ErrorHandler.
type UploadHandler struct {
	coordinator *services.UploadCoordinator
}

func NewUploadHandler(coordinator *services.UploadCoordinator) *UploadHandler {
	return &UploadHandler{coordinator: coordinator}
}

func (h *UploadHandler) Initiate(c *gin.Context) {
	var req httpdto.InitiateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	res, err := h.coordinator.InitiateUpload(c.Request.Context(), services.InitiateInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.InitiateUploadResponse{
		UploadID: res.UploadID,
		AssetID:  res.AssetID.String(),
		Key:      res.StorageKey,
	}))
}

func (h *UploadHandler) PresignedURL(c *gin.Context) {
	var req httpdto.PartURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	assetID, err := parseAssetID(req.AssetID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	u, err := h.coordinator.RequestPartURL(c.Request.Context(), assetID, req.UploadID, req.PartNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.URLResponse{URL: u}))
}

func (h *UploadHandler) Complete(c *gin.Context) {
	var req httpdto.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	assetID, err := parseAssetID(req.AssetID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	res, err := h.coordinator.CompleteUpload(c.Request.Context(), assetID, req.UploadID, req.DomainParts())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CompleteUploadResponse{
		AssetID:   res.AssetID.String(),
		Key:       res.StorageKey,
		SizeBytes: res.SizeBytes,
		Warnings:  httpdto.WarningStrings(res.Warnings),
	}))
}

func (h *UploadHandler) Abort(c *gin.Context) {
	var req httpdto.AbortUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	assetID, err := parseAssetID(req.AssetID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.coordinator.AbortUpload(c.Request.Context(), assetID, req.UploadID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.AbortUploadResponse{AssetID: assetID.String()}))
}

func (h *UploadHandler) GetByID(c *gin.Context) {
	assetID, err := parseAssetID(c.Param("asset_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	a, err := h.coordinator.GetAsset(c.Request.Context(), assetID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToAssetDTO(a)))
}

// Download returns a read URL; ?disposition=attachment asks for a file download.
func (h *UploadHandler) Download(c *gin.Context) {
	assetID, err := parseAssetID(c.Param("asset_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	var opts services.DownloadOptions
	switch c.DefaultQuery("disposition", "inline") {
	case "inline":
	case "attachment":
		opts.Attachment = true
	default:
		_ = c.Error(fmt.Errorf("%w: disposition must be inline or attachment", apperrors.ErrInvalidInput))
		return
	}
	u, err := h.coordinator.GenerateDownloadReference(c.Request.Context(), assetID, opts)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.URLResponse{URL: u}))
}

func (h *UploadHandler) Delete(c *gin.Context) {
	assetID, err := parseAssetID(c.Param("asset_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	res, err := h.coordinator.DeleteAsset(c.Request.Context(), assetID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeleteAssetResponse{
		OK:       true,
		Warnings: httpdto.WarningStrings(res.Warnings),
	}))
}

func (h *UploadHandler) List(c *gin.Context) {
	var ownerID *int64
	if raw := c.Query("owner_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			_ = c.Error(fmt.Errorf("%w: invalid owner_id", apperrors.ErrInvalidInput))
			return
		}
		ownerID = &v
	}
	assets, err := h.coordinator.ListAssets(c.Request.Context(), ownerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToAssetDTOs(assets)))
}

func parseAssetID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid asset id", apperrors.ErrInvalidInput)
	}
	return id, nil
}

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
}
