// Package locate serves city and country lookups over HTTP.
package locate

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TomasB/sxgeo/internal/data"
	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// CountryResponse is the body of GET /api/v1/country/:ip.
type CountryResponse struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	ID      int    `json:"id"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves location lookups.
type Handler struct {
	lookup data.LocationLookup
}

// NewHandler creates a locate handler backed by lookup.
func NewHandler(lookup data.LocationLookup) *Handler {
	return &Handler{lookup: lookup}
}

// Register mounts the handler's routes on g.
func (h *Handler) Register(g gin.IRoutes) {
	g.GET("/locate/:ip", h.Locate)
	g.GET("/country/:ip", h.Country)
	g.GET("/about", h.About)
}

// Locate handles GET /api/v1/locate/:ip. With ?full=true the region and the
// full country record are included.
func (h *Handler) Locate(c *gin.Context) {
	ip, ok := parseIP(c)
	if !ok {
		return
	}
	full, _ := strconv.ParseBool(c.Query("full"))

	slog.Debug("locate request received", "ip", ip, "full", full)

	var (
		loc any
		err error
	)
	if full {
		var l *sxgeo.FullLocation
		if l, err = h.lookup.LookupCityFull(ip); l != nil {
			loc = l
		}
	} else {
		var l *sxgeo.CityLocation
		if l, err = h.lookup.LookupCity(ip); l != nil {
			loc = l
		}
	}
	if !handleErr(c, ip, err) {
		return
	}
	if loc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "location not found"})
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Country handles GET /api/v1/country/:ip
func (h *Handler) Country(c *gin.Context) {
	ip, ok := parseIP(c)
	if !ok {
		return
	}

	code, err := h.lookup.LookupCountry(ip)
	if !handleErr(c, ip, err) {
		return
	}
	if code == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "country not found"})
		return
	}
	id, err := h.lookup.LookupCountryID(ip)
	if !handleErr(c, ip, err) {
		return
	}
	c.JSON(http.StatusOK, CountryResponse{
		IP:      ip.String(),
		Country: code,
		ID:      id,
	})
}

// About handles GET /api/v1/about
func (h *Handler) About(c *gin.Context) {
	c.JSON(http.StatusOK, h.lookup.Info())
}

func parseIP(c *gin.Context) (net.IP, bool) {
	ip := net.ParseIP(c.Param("ip"))
	if ip == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid IP address"})
		return nil, false
	}
	return ip, true
}

// handleErr writes the error response for err and reports whether the
// request may continue.
func handleErr(c *gin.Context, ip net.IP, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, data.ErrUnsupportedAddress):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported address family"})
	case errors.Is(err, sxgeo.ErrNoCityData):
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "database has no city data"})
	case errors.Is(err, data.ErrNotLoaded):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "database not loaded"})
	default:
		slog.Error("location lookup failed", "ip", ip.String(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup failed"})
	}
	return false
}
