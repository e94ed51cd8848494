package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control API is described with well-known protobuf types only, so no
// generated message code is needed.

const ServiceName = "coinobserver.control.v1.CoinObserverControl"

// Full method names, for clients.
const (
	MethodGetStatus        = "/" + ServiceName + "/GetStatus"
	MethodListSources      = "/" + ServiceName + "/ListSources"
	MethodUpdateSymbols    = "/" + ServiceName + "/UpdateSymbols"
	MethodRefreshPartition = "/" + ServiceName + "/RefreshPartition"
	MethodClearCache       = "/" + ServiceName + "/ClearCache"
	MethodListRanking      = "/" + ServiceName + "/ListRanking"
)

// CoinObserverControlServer is the server API of the control service.
type CoinObserverControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSources(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdateSymbols(context.Context, *structpb.ListValue) (*structpb.Struct, error)
	RefreshPartition(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ClearCache(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ListRanking(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterCoinObserverControlServer(s grpc.ServiceRegistrar, srv CoinObserverControlServer) {
	s.RegisterService(&CoinObserverControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

// unaryHandler adapts a typed method to the grpc handler signature.
func unaryHandler[Req any, Resp any](
	method string,
	newReq func() Req,
	call func(CoinObserverControlServer, context.Context, Req) (Resp, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {

	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CoinObserverControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CoinObserverControlServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------

var CoinObserverControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoinObserverControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: unaryHandler(MethodGetStatus, func() *emptypb.Empty { return new(emptypb.Empty) },
				func(s CoinObserverControlServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
					return s.GetStatus(ctx, in)
				}),
		},
		{
			MethodName: "ListSources",
			Handler: unaryHandler(MethodListSources, func() *emptypb.Empty { return new(emptypb.Empty) },
				func(s CoinObserverControlServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
					return s.ListSources(ctx, in)
				}),
		},
		{
			MethodName: "UpdateSymbols",
			Handler: unaryHandler(MethodUpdateSymbols, func() *structpb.ListValue { return new(structpb.ListValue) },
				func(s CoinObserverControlServer, ctx context.Context, in *structpb.ListValue) (*structpb.Struct, error) {
					return s.UpdateSymbols(ctx, in)
				}),
		},
		{
			MethodName: "RefreshPartition",
			Handler: unaryHandler(MethodRefreshPartition, func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				func(s CoinObserverControlServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
					return s.RefreshPartition(ctx, in)
				}),
		},
		{
			MethodName: "ClearCache",
			Handler: unaryHandler(MethodClearCache, func() *emptypb.Empty { return new(emptypb.Empty) },
				func(s CoinObserverControlServer, ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error) {
					return s.ClearCache(ctx, in)
				}),
		},
		{
			MethodName: "ListRanking",
			Handler: unaryHandler(MethodListRanking, func() *structpb.Struct { return new(structpb.Struct) },
				func(s CoinObserverControlServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
					return s.ListRanking(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coin_observer_control.proto",
}
