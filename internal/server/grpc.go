package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"breachwatch/internal/common"
)

const intelServiceName = "breachwatch.v1.Intel"

// IntelServer is the gRPC check API. Requests and responses are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type IntelServer interface {
	CheckPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckIP(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SearchDarkWeb(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var intelServiceDesc = grpc.ServiceDesc{
	ServiceName: intelServiceName,
	HandlerType: (*IntelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckPassword", Handler: unaryHandler("CheckPassword", IntelServer.CheckPassword)},
		{MethodName: "CheckIP", Handler: unaryHandler("CheckIP", IntelServer.CheckIP)},
		{MethodName: "SearchDarkWeb", Handler: unaryHandler("SearchDarkWeb", IntelServer.SearchDarkWeb)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "breachwatch/v1/intel.proto",
}

func registerIntel(s *grpc.Server, srv IntelServer) {
	s.RegisterService(&intelServiceDesc, srv)
}

type intelMethod func(IntelServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method intelMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + intelServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(IntelServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(IntelServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type intelService struct {
	checks Checks
}

func (i *intelService) CheckPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := i.checks.CheckPassword(ctx, field(req, "password"))
	return toStruct(v, err)
}

func (i *intelService) CheckIP(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := i.checks.CheckIP(ctx, field(req, "ip"))
	return toStruct(v, err)
}

func (i *intelService) SearchDarkWeb(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := i.checks.SearchDarkWeb(ctx, field(req, "query"), field(req, "type"))
	return toStruct(v, err)
}

func field(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[name].GetStringValue()
}

// toStruct converts a verdict through its JSON form so gRPC clients see the
// same field names as HTTP clients.
func toStruct(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode verdict: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode verdict: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode verdict: %v", err))
	}
	return out, nil
}
