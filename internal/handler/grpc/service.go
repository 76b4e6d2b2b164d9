package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName       = "sxgeo.v1.GeoService"
	checkFullMethod   = "/" + serviceName + "/Check"
	locateFullMethod  = "/" + serviceName + "/Locate"
	countryFullMethod = "/" + serviceName + "/Country"
)

// GeoServiceServer is the server API for sxgeo.v1.GeoService. Messages are
// protobuf well-known types so no generated code is needed:
//
//	Check(Struct{ip, allowed_countries}) returns Struct{allowed, country}
//	Locate(StringValue ip) returns Struct{kind, city, region, country}
//	Country(StringValue ip) returns StringValue iso
type GeoServiceServer interface {
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Locate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Country(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes sxgeo.v1.GeoService for grpc.Server.RegisterService.
var ServiceDesc = gogrpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*GeoServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "Check", Handler: checkHandler},
		{MethodName: "Locate", Handler: locateHandler},
		{MethodName: "Country", Handler: countryHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "sxgeo/v1/geo.proto",
}

// Register registers srv on s.
func Register(s gogrpc.ServiceRegistrar, srv GeoServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func checkHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeoServiceServer).Check(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: checkFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GeoServiceServer).Check(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func locateHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeoServiceServer).Locate(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: locateFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GeoServiceServer).Locate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func countryHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeoServiceServer).Country(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: countryFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GeoServiceServer).Country(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is a client for sxgeo.v1.GeoService.
type Client struct {
	cc gogrpc.ClientConnInterface
}

// NewClient creates a client on cc.
func NewClient(cc gogrpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Check(ctx context.Context, in *structpb.Struct, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, checkFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Locate(ctx context.Context, in *wrapperspb.StringValue, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, locateFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Country(ctx context.Context, in *wrapperspb.StringValue, opts ...gogrpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, countryFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
