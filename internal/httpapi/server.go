// Package httpapi implements component J: the gin router that exposes
// the /reads and /variants endpoints, translates query parameters and
// POST bodies into genomics.Query, and translates resolver errors into
// the wire error taxonomy. It is the only package in this module that
// imports gin or serves HTTP requests; the resolver package it calls
// never imports net/http.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ga4gh/htsget-ticket-server/internal/analytics"
	"github.com/ga4gh/htsget-ticket-server/internal/resolver"
	"github.com/ga4gh/htsget-ticket-server/internal/serviceinfo"
)

// Server holds everything the router needs to answer a request.
type Server struct {
	Resolver          *resolver.Resolver
	ServiceInfoExtras serviceinfo.Extras
	AllowedOrigins    []string
	Tracker           analytics.Tracker
	Log               *logrus.Logger
}

// New builds a Server with sane defaults for any unset field.
func New(res *resolver.Resolver) *Server {
	return &Server{
		Resolver: res,
		Tracker:  analytics.Disabled{},
		Log:      logrus.StandardLogger(),
	}
}

// Router builds the gin engine wired to every route of spec.md §6.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logMiddleware())
	r.Use(s.corsMiddleware())

	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		writeError(c, ticketNotFoundErr("no such route"))
	})

	r.GET("/reads/service-info", s.handleServiceInfo(serviceinfo.Reads))
	r.GET("/variants/service-info", s.handleServiceInfo(serviceinfo.Variants))

	r.GET("/reads/*id", s.handleGet(readsEndpoint))
	r.POST("/reads/*id", s.handlePost(readsEndpoint))
	r.GET("/variants/*id", s.handleGet(variantsEndpoint))
	r.POST("/variants/*id", s.handlePost(variantsEndpoint))

	return r
}

func (s *Server) handleServiceInfo(datatype serviceinfo.Datatype) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, serviceinfo.Build(datatype, s.ServiceInfoExtras))
	}
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.Log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Info("handled request")
	}
}
