package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.qrbackend/internal/handlers"
	"io.winapps.qrbackend/internal/middleware"
	"io.winapps.qrbackend/internal/qrcode"
)

// Dependencies are the collaborators the router wires into handlers
type Dependencies struct {
	Encoder       qrcode.Encoder
	Store         handlers.ImageStore
	Recorders     []handlers.GenerationRecorder
	RecordTimeout time.Duration
	Logger        *zap.SugaredLogger
}

// NewRouter builds the HTTP handler. Nothing is registered globally.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.RequestLoggingMiddleware(deps.Logger),
		middleware.CORSMiddleware(),
	)

	qrHandler := handlers.NewQRHandler(deps.Encoder, deps.Store, deps.Logger, deps.RecordTimeout, deps.Recorders...)

	router.GET("/", handlers.Home)
	router.GET("/health", handlers.Health)
	router.POST("/qrcode", qrHandler.GenerateQRCode)
	router.GET("/qrcode/:entry_id", qrHandler.GetQRCode)

	return router
}
