// Package server is the HTTP delivery layer: object serving with
// conditional GET and on-the-fly image transforms, signed upload URL
// issuance and upload acknowledgement.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kennel_media/internal/acl"
	"kennel_media/internal/events"
	"kennel_media/internal/logging"
	"kennel_media/internal/models"
	"kennel_media/internal/objectpath"
	"kennel_media/internal/objectstore"
	"kennel_media/internal/transform"
)

// Ledger is the read side of the upload ledger.
type Ledger interface {
	GetUpload(ctx context.Context, objectPath string) (*models.Upload, error)
	ListUploads(ctx context.Context, status string, limit int) ([]models.Upload, error)
}

type Server struct {
	cfg        *models.Config
	router     *gin.Engine
	httpSrv    *http.Server
	objects    *objectstore.Client
	policies   *acl.Store
	normalizer *objectpath.Normalizer
	engine     *transform.Engine
	publisher  events.Publisher
	ledger     Ledger
	log        logging.Logger
	now        func() time.Time
}

// NewServer wires the routes. ledger may be nil when the upload ledger is
// disabled; its routes then answer 503.
func NewServer(cfg *models.Config, objects *objectstore.Client, publisher events.Publisher, ledger Ledger, log logging.Logger) *Server {
	r := gin.New()

	s := &Server{
		cfg:        cfg,
		router:     r,
		objects:    objects,
		policies:   acl.NewStore(objects),
		normalizer: objectpath.FromConfig(cfg.Storage),
		engine:     transform.NewEngine(),
		publisher:  publisher,
		ledger:     ledger,
		log:        log.With("component", "server"),
		now:        time.Now,
	}

	if cfg.UsesDefaultJWTSecret() {
		s.log.Warn(context.Background(), "JWT_SECRET is not set; requestor tokens are checked against the development default")
	}

	r.Use(requestLogger(s.log), recovery(s.log), corsMiddleware(), s.identify)

	r.GET("/health", s.handleHealth)
	r.GET("/objects/*objectPath", s.requireAuth, s.handleGetObject)
	r.GET("/public-objects/*filePath", s.handleGetPublicObject)

	api := r.Group("/api")
	{
		api.POST("/objects/upload", s.requireAuth, s.handleIssueUploadURL)
		api.POST("/public/upload", s.handleIssueUploadURL)
		api.PUT("/objects/acl", s.requireAuth, s.handleAcknowledge)
		api.PUT("/public/objects", s.handleAcknowledgePublic)
		api.GET("/uploads", s.requireAuth, s.handleListUploads)
		api.GET("/uploads/lookup", s.requireAuth, s.handleGetUpload)
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info(context.Background(), "server starting", "addr", s.cfg.ServerAddr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
