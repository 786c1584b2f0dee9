package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/mansoorceksport/assetfiles/internal/middleware"
	"github.com/mansoorceksport/assetfiles/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// AssetFileHandler handles HTTP requests for asset file operations
type AssetFileHandler struct {
	service     domain.AssetFileService
	maxUploadMB int64
}

// NewAssetFileHandler creates a new asset file handler
func NewAssetFileHandler(service domain.AssetFileService, maxUploadMB int64) *AssetFileHandler {
	return &AssetFileHandler{
		service:     service,
		maxUploadMB: maxUploadMB,
	}
}

// attachFileBody is the JSON form of an attach request. Metadata may be an
// object or a stringified object, so it is kept raw.
type attachFileBody struct {
	FileType      string          `json:"file_type"`
	Description   string          `json:"description"`
	Metadata      json.RawMessage `json:"metadata"`
	Base64Encoded *string         `json:"base64Encoded"`
}

// Create handles POST /v1/assets/:assetUID/files
func (h *AssetFileHandler) Create(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "user not authenticated",
		})
	}

	var (
		input domain.CreateAssetFileInput
		err   error
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		input, err = h.parseMultipart(c)
	} else {
		input, err = parseJSONBody(c)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	input.AssetUID = c.Params("assetUID")
	input.UserID = userID

	file, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			telemetry.AddSpanEvent(c, "asset_file.rejected",
				attribute.String("rejection.kind", string(verr.Kind)),
				attribute.String("rejection.field", verr.Field),
			)
		}
		return h.handleError(c, err)
	}

	telemetry.AddSpanEvent(c, "asset_file.created",
		attribute.String("asset_file.uid", file.UID),
		attribute.String("asset_file.file_type", string(file.FileType)),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

func (h *AssetFileHandler) parseMultipart(c *fiber.Ctx) (domain.CreateAssetFileInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return domain.CreateAssetFileInput{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	req := &domain.AttachmentRequest{
		FileType: fileTypeOrDefault(formValue(form, "file_type")),
	}
	if raw := formValue(form, "metadata"); raw != "" {
		req.Metadata = raw
	}
	if values, ok := form.Value["base64Encoded"]; ok && len(values) > 0 {
		encoded := values[0]
		req.Base64Encoded = &encoded
	}

	if files := form.File["content"]; len(files) > 0 {
		content, err := h.readUpload(files[0])
		if err != nil {
			return domain.CreateAssetFileInput{}, err
		}
		req.Content = content
	}

	return domain.CreateAssetFileInput{
		Description: formValue(form, "description"),
		Request:     req,
	}, nil
}

func parseJSONBody(c *fiber.Ctx) (domain.CreateAssetFileInput, error) {
	var body attachFileBody
	if err := c.BodyParser(&body); err != nil {
		return domain.CreateAssetFileInput{}, fmt.Errorf("invalid request body: %w", err)
	}

	req := &domain.AttachmentRequest{
		FileType:      fileTypeOrDefault(body.FileType),
		Base64Encoded: body.Base64Encoded,
	}
	// Leave Metadata as a nil interface when absent
	if len(body.Metadata) > 0 {
		req.Metadata = body.Metadata
	}

	return domain.CreateAssetFileInput{
		Description: body.Description,
		Request:     req,
	}, nil
}

// readUpload loads the uploaded part into memory after enforcing the size limit
func (h *AssetFileHandler) readUpload(header *multipart.FileHeader) (*domain.UploadedContent, error) {
	maxBytes := h.maxUploadMB * 1024 * 1024
	if header.Size > maxBytes {
		return nil, fmt.Errorf("file size exceeds maximum of %dMB", h.maxUploadMB)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return &domain.UploadedContent{
		Filename: header.Filename,
		Data:     data,
	}, nil
}

// List handles GET /v1/assets/:assetUID/files
func (h *AssetFileHandler) List(c *fiber.Ctx) error {
	fileType := domain.FileType(c.Query("file_type"))

	files, err := h.service.List(c.UserContext(), c.Params("assetUID"), fileType)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    files,
		"count":   len(files),
	})
}

// Get handles GET /v1/assets/:assetUID/files/:uid
func (h *AssetFileHandler) Get(c *fiber.Ctx) error {
	file, err := h.service.Get(c.UserContext(), c.Params("assetUID"), c.Params("uid"))
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// Delete handles DELETE /v1/assets/:assetUID/files/:uid
func (h *AssetFileHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("assetUID"), c.Params("uid")); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Content handles GET /v1/assets/:assetUID/files/:uid/content.
// Remote files are served as a redirect.
func (h *AssetFileHandler) Content(c *fiber.Ctx) error {
	content, err := h.service.Content(c.UserContext(), c.Params("assetUID"), c.Params("uid"))
	if err != nil {
		return h.handleError(c, err)
	}

	if content.Body == nil {
		return c.Redirect(content.RedirectURL, fiber.StatusFound)
	}

	if content.ContentType != "" {
		c.Set(fiber.HeaderContentType, content.ContentType)
	}
	if content.Filename != "" {
		// Non-ASCII names are written as RFC 2231 filename*
		if disposition := mime.FormatMediaType("inline", map[string]string{"filename": content.Filename}); disposition != "" {
			c.Set(fiber.HeaderContentDisposition, disposition)
		}
	}

	size := -1
	if content.Size > 0 {
		size = int(content.Size)
	}
	// fasthttp closes the body once it has been written
	return c.SendStream(content.Body, size)
}

// handleError maps service errors to HTTP responses. Validation errors are
// rendered as {field: message} so clients can attach them to form inputs.
func (h *AssetFileHandler) handleError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(verr.Body())
	case errors.Is(err, domain.ErrInvalidFileType), errors.Is(err, domain.ErrMissingDescription):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, domain.ErrAssetFileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, domain.ErrStorageUnavailable):
		log.Printf("asset file storage error: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   domain.ErrStorageUnavailable.Error(),
		})
	default:
		log.Printf("asset file error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "internal server error",
		})
	}
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func fileTypeOrDefault(raw string) domain.FileType {
	if raw == "" {
		return domain.FileTypeGeneric
	}
	return domain.FileType(raw)
}
