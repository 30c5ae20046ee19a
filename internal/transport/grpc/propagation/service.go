package propagation

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "metasync.admin.v1.PropagationAdmin"

// Method names of the admin service.
const (
	MethodPropagate     = "Propagate"
	MethodListErrorLog  = "ListErrorLog"
	MethodClearErrorLog = "ClearErrorLog"
	MethodListRuns      = "ListRuns"
)

// AdminServer is the server API of the admin service. Requests and replies are
// google.protobuf.Struct messages.
type AdminServer interface {
	Propagate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListErrorLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearErrorLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AdminServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the admin service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodPropagate, Handler: unaryHandler(MethodPropagate, AdminServer.Propagate)},
		{MethodName: MethodListErrorLog, Handler: unaryHandler(MethodListErrorLog, AdminServer.ListErrorLog)},
		{MethodName: MethodClearErrorLog, Handler: unaryHandler(MethodClearErrorLog, AdminServer.ClearErrorLog)},
		{MethodName: MethodListRuns, Handler: unaryHandler(MethodListRuns, AdminServer.ListRuns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "metasync/admin/v1/admin.proto",
}

// RegisterAdminServer registers srv on s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns "/<service>/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AdminClient calls the admin service.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

// NewAdminClient creates a new admin client on cc.
func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Propagate runs a propagation and waits for its completion.
func (c *AdminClient) Propagate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPropagate, in, opts...)
}

// ListErrorLog lists error log entries, newest first.
func (c *AdminClient) ListErrorLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListErrorLog, in, opts...)
}

// ClearErrorLog empties the error log.
func (c *AdminClient) ClearErrorLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodClearErrorLog, in, opts...)
}

// ListRuns lists recorded runs, most recent first.
func (c *AdminClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListRuns, in, opts...)
}
