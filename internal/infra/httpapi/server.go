// internal/infra/httpapi/server.go
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/app"
)

const statsTimeout = 20 * time.Second

// Controller is the part of the guard the control plane drives.
type Controller interface {
	Limit() decimal.Decimal
	UpdateLimit(limit decimal.Decimal) error
	CurrentVolume(ctx context.Context) (decimal.Decimal, error)
}

// TransferCounter reports how many invoices were rescheduled on a local date.
type TransferCounter interface {
	CountOn(ctx context.Context, date string) (int, error)
}

type Options struct {
	Currency      string
	GatewaySecret string
	// Today returns the account-local date used for /stats.
	Today    func() string
	Counter  TransferCounter // optional
	Gatherer prometheus.Gatherer
}

type Server struct {
	ctrl   Controller
	opts   Options
	logger *logrus.Entry
}

func NewServer(ctrl Controller, opts Options, logger *logrus.Entry) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{ctrl: ctrl, opts: opts, logger: logger.WithField("component", "http_api")}
}

// Engine builds the gin router.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	protected := r.Group("/", s.GatewayAuth())
	protected.POST("/update-limit", s.UpdateLimit)
	protected.GET("/stats", s.Stats)
	return r
}

// GatewayAuth requires "Authorization: Bearer <secret>" when a secret is set.
func (s *Server) GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.GatewaySecret == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.GatewaySecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		}).Debug("HTTP request")
	}
}

type updateLimitRequest struct {
	NewLimit *decimal.Decimal `json:"newLimit"`
}

func (s *Server) UpdateLimit(c *gin.Context) {
	var req updateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewLimit == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newLimit must be a positive number"})
		return
	}
	if err := s.ctrl.UpdateLimit(*req.NewLimit); err != nil {
		if errors.Is(err, app.ErrInvalidLimit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "newLimit must be a positive number"})
			return
		}
		s.logger.WithError(err).Error("Failed to update daily limit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "newLimit": req.NewLimit.InexactFloat64()})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "currentLimit": s.ctrl.Limit().InexactFloat64()})
}

func (s *Server) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	volume, err := s.ctrl.CurrentVolume(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute gross volume for stats")
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not compute gross volume"})
		return
	}

	transferred := 0
	if s.opts.Counter != nil && s.opts.Today != nil {
		if n, err := s.opts.Counter.CountOn(ctx, s.opts.Today()); err != nil {
			s.logger.WithError(err).Warn("Failed to count transferred invoices")
		} else {
			transferred = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"grossVolume":              volume.InexactFloat64(),
		"transferredInvoicesToday": transferred,
		"currency":                 strings.ToUpper(s.opts.Currency),
		"currentDailyLimit":        s.ctrl.Limit().InexactFloat64(),
	})
}
