package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mangoleaf/internal/bootstrap"
	"mangoleaf/internal/transport/http/handler"
	"mangoleaf/internal/transport/http/middleware"
	"mangoleaf/internal/view"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	tmpl, err := view.Templates()
	if err != nil {
		return nil, fmt.Errorf("load view failed: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(view.Static()))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessions := middleware.Session(middleware.SessionOptions{
		CookieName: app.Config.Session.CookieName,
		Secret:     app.Config.Session.Secret,
		TTL:        time.Duration(app.Config.Session.TTLMinutes) * time.Minute,
		Secure:     app.Config.Session.SecureCookie,
	})
	bodyLimit := middleware.BodyLimit(app.Config.MaxUploadBytes())

	pageHandler := handler.NewPageHandler(app.Analysis, app.Config.UI.HealthyLabel)
	pages := router.Group("/", sessions)
	pages.GET("/", pageHandler.Index)
	pages.POST("/upload", bodyLimit, pageHandler.Upload)
	pages.POST("/analyze", pageHandler.Analyze)
	pages.POST("/reset", pageHandler.Reset)
	pages.GET("/preview/:id", pageHandler.Preview)

	analysisHandler := handler.NewAnalysisHandler(app.Analysis)
	v1 := router.Group("/api/v1", sessions)
	v1.GET("/state", analysisHandler.State)
	v1.POST("/image", bodyLimit, analysisHandler.Upload)
	v1.DELETE("/image", analysisHandler.Reset)
	v1.POST("/analyze", analysisHandler.Analyze)

	return router, nil
}
