package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"photoshelf/internal/app"
	"photoshelf/internal/transport/http/middleware"
	"photoshelf/internal/transport/http/response"
)

const (
	uploadFormField   = "image"
	multipartOverhead = 1 << 20
)

type PhotoHandler struct {
	photoService *app.PhotoService
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

func NewPhotoHandler(photoService *app.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

func (h *PhotoHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return
	}

	maxBytes := h.photoService.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	file, err := c.FormFile(uploadFormField)
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, app.ErrPayloadTooLarge.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeNoFile, "No image uploaded")
		return
	}
	if file.Size > maxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, app.ErrPayloadTooLarge.Error())
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read image")
		return
	}

	slog.Debug("received image", "user_id", userID, "filename", file.Filename, "size", file.Size)

	image, err := h.photoService.Upload(c.Request.Context(), app.UploadInput{
		UserID:      userID,
		Data:        data,
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoFileProvided):
			response.Error(c, http.StatusBadRequest, response.CodeNoFile, "No image uploaded")
		case errors.Is(err, app.ErrUnsupportedType):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedType, err.Error())
		case errors.Is(err, app.ErrPayloadTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, err.Error())
		case errors.Is(err, app.ErrQuotaExceeded):
			response.Error(c, http.StatusForbidden, response.CodeQuotaExceeded, "No remaining photo uploads")
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
		default:
			slog.Error("upload failed", "user_id", userID, "error", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Upload failed")
		}
		return
	}

	response.JSON(c, http.StatusCreated, UploadResponse{
		Success: true,
		Message: "Image uploaded successfully",
		ID:      image.ID,
	})
}

func (h *PhotoHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return
	}

	photos, err := h.photoService.List(c.Request.Context(), userID)
	if err != nil {
		slog.Error("list photos failed", "user_id", userID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to fetch uploaded photos")
		return
	}
	response.JSON(c, http.StatusOK, photos)
}

// Raw streams the bytes of one owned image.
func (h *PhotoHandler) Raw(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return
	}
	imageID, ok := parseImageID(c)
	if !ok {
		return
	}

	image, err := h.photoService.Get(c.Request.Context(), userID, imageID)
	if err != nil {
		if errors.Is(err, app.ErrImageNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeImageNotFound, "Image not found")
			return
		}
		slog.Error("fetch photo failed", "user_id", userID, "image_id", imageID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to fetch photo")
		return
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, image.ContentType, image.ImageData)
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return
	}
	imageID, ok := parseImageID(c)
	if !ok {
		return
	}

	if err := h.photoService.Delete(c.Request.Context(), userID, imageID); err != nil {
		if errors.Is(err, app.ErrImageNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeImageNotFound, "Image not found")
			return
		}
		slog.Error("delete photo failed", "user_id", userID, "image_id", imageID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to delete image")
		return
	}
	response.Message(c, http.StatusOK, "Image deleted successfully")
}

func (h *PhotoHandler) Activity(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	events, err := h.photoService.Activity(c.Request.Context(), userID, limit)
	if err != nil {
		slog.Error("list activity failed", "user_id", userID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to fetch activity")
		return
	}
	response.JSON(c, http.StatusOK, events)
}

func parseImageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid image id")
		return 0, false
	}
	return uint(id), true
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
