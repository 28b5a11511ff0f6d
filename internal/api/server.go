// Package api exposes the verification suite and the fused kernels over
// HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fusenorm/internal/kernel"
	"github.com/samcharles93/fusenorm/internal/verify"
)

// Server handles the verification API.
type Server struct {
	clock func() time.Time
}

func NewServer() *Server {
	return &Server{clock: time.Now}
}

// Register wires the routes into e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/features", s.handleFeatures)
	e.POST("/v1/verify", s.handleVerify)
	e.POST("/v1/kernels/add-rmsnorm", s.handleAddRMSNorm)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.clock().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleFeatures(c *echo.Context) error {
	return c.JSON(http.StatusOK, kernel.DetectFeatures())
}

func (s *Server) handleVerify(c *echo.Context) error {
	req, err := decodeJSON[VerifyRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	for i := range req.Cases {
		if err := validateCase(&req.Cases[i]); err != nil {
			return writeBadRequest(c, err.Error())
		}
	}
	rep, err := verify.RunSuite(req.Seed, req.Cases)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

func (s *Server) handleAddRMSNorm(c *echo.Context) error {
	req, err := decodeJSON[KernelRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	resp, err := runKernelRequest(req)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
