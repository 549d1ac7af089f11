package monitor

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomjnixon/mk2go/internal/observability"
	"github.com/tomjnixon/mk2go/internal/registry"
	"github.com/tomjnixon/mk2go/internal/vebus"
)

// Router builds the HTTP read surface. Writes go through the CLI, not HTTP.
func (s *Service) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(s.log))
	r.Use(observability.RequestMetricsMiddleware())
	if len(s.cfg.HTTP.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.HTTP.CORSOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.startedAt).String(),
			"service": "mk2mon",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Snapshot())
	})
	v1.GET("/variables", func(c *gin.Context) {
		c.JSON(http.StatusOK, variableCatalog())
	})
	v1.GET("/variables/:name", s.readVariable)
	v1.GET("/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, settingCatalog())
	})
	v1.GET("/settings/:name", s.readSetting)
	return r
}

type catalogEntry struct {
	ID         uint16  `json:"id"`
	Name       string  `json:"name"`
	Unit       string  `json:"unit,omitempty"`
	Scale      float64 `json:"scale"`
	Unverified bool    `json:"unverified,omitempty"`
}

func variableCatalog() []catalogEntry {
	vars := registry.Variables()
	out := make([]catalogEntry, 0, len(vars))
	for _, v := range vars {
		out = append(out, catalogEntry{
			ID: uint16(v.ID), Name: v.Name, Unit: v.Unit,
			Scale: v.Scale, Unverified: v.Unverified,
		})
	}
	return out
}

func settingCatalog() []catalogEntry {
	settings := registry.Settings()
	out := make([]catalogEntry, 0, len(settings))
	for _, v := range settings {
		out = append(out, catalogEntry{
			ID: v.ID, Name: v.Name, Unit: v.Unit,
			Scale: v.Scale, Unverified: v.Unverified,
		})
	}
	return out
}

type valueResponse struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

func (s *Service) readVariable(c *gin.Context) {
	name := c.Param("name")
	info, err := registry.LookupVariable(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	value, err := s.sess.GetRAMVar(c.Request.Context(), name)
	if err != nil {
		c.JSON(liveReadStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, valueResponse{Name: name, Value: value, Unit: info.Unit})
}

func (s *Service) readSetting(c *gin.Context) {
	name := c.Param("name")
	info, err := registry.LookupSetting(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	value, err := s.sess.GetSetting(c.Request.Context(), name)
	if err != nil {
		c.JSON(liveReadStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, valueResponse{Name: name, Value: value, Unit: info.Unit})
}

func liveReadStatus(err error) int {
	switch {
	case errors.Is(err, vebus.ErrUnsupported):
		return http.StatusNotFound
	case errors.Is(err, vebus.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
