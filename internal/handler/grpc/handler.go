package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/TomasB/sxgeo/internal/data"
	"github.com/TomasB/sxgeo/internal/handler/check"
	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// Handler implements the gRPC GeoService.
type Handler struct {
	lookup data.LocationLookup
}

var _ GeoServiceServer = (*Handler)(nil)

// NewHandler creates a new gRPC handler with the given LocationLookup.
func NewHandler(lookup data.LocationLookup) *Handler {
	return &Handler{lookup: lookup}
}

// Check validates whether an IP is allowed for the given country list.
func (h *Handler) Check(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	ipStr := req.GetFields()["ip"].GetStringValue()
	if ipStr == "" {
		return nil, status.Error(codes.InvalidArgument, "ip is required")
	}
	var allowed []string
	for _, v := range req.GetFields()["allowed_countries"].GetListValue().GetValues() {
		allowed = append(allowed, v.GetStringValue())
	}
	if len(allowed) == 0 {
		return nil, status.Error(codes.InvalidArgument, "allowed_countries is required")
	}

	ip, err := parseIP(ipStr)
	if err != nil {
		return nil, err
	}

	country, err := h.lookup.LookupCountry(ip)
	if err != nil {
		return nil, lookupError(ipStr, err)
	}

	return structpb.NewStruct(map[string]any{
		"allowed": check.Allowed(country, allowed),
		"country": country,
	})
}

// Locate returns the city, region and country for an IP.
func (h *Handler) Locate(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ip, err := parseIP(req.GetValue())
	if err != nil {
		return nil, err
	}

	loc, err := h.lookup.LookupCityFull(ip)
	if err != nil {
		return nil, lookupError(req.GetValue(), err)
	}
	if loc == nil {
		return nil, status.Error(codes.NotFound, "location not found")
	}

	b, err := json.Marshal(loc)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode location")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "encode location")
	}
	return out, nil
}

// Country returns the ISO country code for an IP.
func (h *Handler) Country(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	ip, err := parseIP(req.GetValue())
	if err != nil {
		return nil, err
	}

	country, err := h.lookup.LookupCountry(ip)
	if err != nil {
		return nil, lookupError(req.GetValue(), err)
	}
	if country == "" {
		return nil, status.Error(codes.NotFound, "country not found")
	}
	return wrapperspb.String(country), nil
}

func parseIP(s string) (net.IP, error) {
	if s == "" {
		return nil, status.Error(codes.InvalidArgument, "ip is required")
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, status.Error(codes.InvalidArgument, "invalid IP address")
	}
	return ip, nil
}

func lookupError(ip string, err error) error {
	switch {
	case errors.Is(err, data.ErrUnsupportedAddress):
		return status.Error(codes.InvalidArgument, "unsupported address family")
	case errors.Is(err, sxgeo.ErrNoCityData):
		return status.Error(codes.Unimplemented, "database has no city data")
	case errors.Is(err, data.ErrNotLoaded):
		return status.Error(codes.Unavailable, "database not loaded")
	}
	slog.Error("lookup failed", "ip", ip, "error", err)
	return status.Error(codes.Internal, "lookup failed")
}
