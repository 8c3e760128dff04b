package handlers

import (
	"context"
	"errors"
	"image"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	qrmodels "io.winapps.qrbackend/internal/models/qrcode"
	"io.winapps.qrbackend/internal/qrcode"
	"io.winapps.qrbackend/internal/storage"
)

const maxBodyBytes = 1 << 20

// ImageStore persists and serves generated QR images
type ImageStore interface {
	Save(name string, img image.Image) (storage.SavedImage, error)
	Open(name string) (*os.File, fs.FileInfo, error)
}

// GenerationRecorder keeps a best-effort record of successful generations
type GenerationRecorder interface {
	Name() string
	RecordGeneration(ctx context.Context, gen qrmodels.Generation) error
}

type QRHandler struct {
	encoder       qrcode.Encoder
	store         ImageStore
	recorders     []GenerationRecorder
	recordTimeout time.Duration
	logger        *zap.SugaredLogger
}

// NewQRHandler creates a new QR code handler
func NewQRHandler(encoder qrcode.Encoder, store ImageStore, logger *zap.SugaredLogger, recordTimeout time.Duration, recorders ...GenerationRecorder) *QRHandler {
	return &QRHandler{
		encoder:       encoder,
		store:         store,
		recorders:     recorders,
		recordTimeout: recordTimeout,
		logger:        logger,
	}
}

// GenerateQRCode handles POST /qrcode: encodes the body's _id and writes it
// to <storage>/<_id>.png
func (h *QRHandler) GenerateQRCode(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, newRequestError(ErrInvalidBody, CodeMalformedBody, err))
		return
	}

	entryID, err := parseEntryID(c.ContentType(), body)
	if err != nil {
		h.fail(c, err)
		return
	}

	img, err := h.encoder.Encode(entryID)
	if err != nil {
		if errors.Is(err, qrcode.ErrEncode) {
			h.fail(c, newRequestError(ErrInvalidIdentifier, CodeEncodeRejected, err))
			return
		}
		h.fail(c, newRequestError(ErrStorageFailure, CodeStorageFailure, err))
		return
	}

	saved, err := h.store.Save(entryID, img)
	if err != nil {
		if errors.Is(err, storage.ErrUnsafeName) {
			h.fail(c, newRequestError(ErrInvalidIdentifier, CodeIdentifierUnsafe, err))
			return
		}
		h.fail(c, newRequestError(ErrStorageFailure, CodeStorageFailure, err))
		return
	}

	h.record(c, qrmodels.Generation{
		EntryID:     entryID,
		Path:        saved.Path,
		SizeBytes:   saved.Size,
		RequestID:   c.GetString("request_id"),
		GeneratedAt: time.Now().UTC(),
	})

	logWithContext(h.logger, c, "info", "qr code generated",
		"entry_id", entryID,
		"file", saved.Path,
		"bytes", saved.Size,
	)
	c.JSON(http.StatusOK, qrmodels.MessageResponse{Message: "Success"})
}

// GetQRCode handles GET /qrcode/:entry_id and serves a previously generated image
func (h *QRHandler) GetQRCode(c *gin.Context) {
	entryID := c.Param("entry_id")

	f, info, err := h.store.Open(entryID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsafeName):
			h.fail(c, newRequestError(ErrInvalidIdentifier, CodeIdentifierUnsafe, err))
		case errors.Is(err, storage.ErrNotFound):
			h.fail(c, newRequestError(ErrImageNotFound, CodeImageNotFound, err))
		default:
			h.fail(c, newRequestError(ErrStorageFailure, CodeStorageFailure, err))
		}
		return
	}
	defer f.Close()

	c.Header("Content-Type", "image/png")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// record hands gen to every recorder. Failures are logged and never change the response.
func (h *QRHandler) record(c *gin.Context, gen qrmodels.Generation) {
	if len(h.recorders) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.recordTimeout)
	defer cancel()

	for _, r := range h.recorders {
		if err := r.RecordGeneration(ctx, gen); err != nil {
			logWithContext(h.logger, c, "warn", "failed to record qr generation",
				"recorder", r.Name(),
				"entry_id", gen.EntryID,
				"error", err,
			)
		}
	}
}

func (h *QRHandler) fail(c *gin.Context, err error) {
	status, message := statusFor(err)
	code := codeFor(err)

	level := "warn"
	if status >= http.StatusInternalServerError {
		level = "error"
	}
	logWithContext(h.logger, c, level, "qr code request failed", "code", code, "error", err)

	c.Header(errorCodeHeader, code)
	c.JSON(status, qrmodels.MessageResponse{Message: message})
}
