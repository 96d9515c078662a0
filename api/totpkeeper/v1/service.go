// Package totpkeeperv1 describes the TOTPKeeper gRPC service.
//
// Requests and responses travel as google.protobuf.Struct (or Empty) so no generated
// stubs are needed; messages.go defines their typed form.
package totpkeeperv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "totpkeeper.v1.TOTPKeeper"

// Full method names.
const (
	FullMethodRegister   = "/" + ServiceName + "/Register"
	FullMethodLogin      = "/" + ServiceName + "/Login"
	FullMethodGetQRCode  = "/" + ServiceName + "/GetQRCode"
	FullMethodVerifyTOTP = "/" + ServiceName + "/VerifyTOTP"
	FullMethodEnableTOTP = "/" + ServiceName + "/EnableTOTP"
)

// TOTPKeeperServer is the server API for the TOTPKeeper service.
type TOTPKeeperServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQRCode(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	VerifyTOTP(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	EnableTOTP(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterTOTPKeeperServer registers srv on s.
func RegisterTOTPKeeperServer(s grpc.ServiceRegistrar, srv TOTPKeeperServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for the TOTPKeeper service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TOTPKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(FullMethodRegister, TOTPKeeperServer.Register)},
		{MethodName: "Login", Handler: unary(FullMethodLogin, TOTPKeeperServer.Login)},
		{MethodName: "GetQRCode", Handler: unary(FullMethodGetQRCode, TOTPKeeperServer.GetQRCode)},
		{MethodName: "VerifyTOTP", Handler: unary(FullMethodVerifyTOTP, TOTPKeeperServer.VerifyTOTP)},
		{MethodName: "EnableTOTP", Handler: unary(FullMethodEnableTOTP, TOTPKeeperServer.EnableTOTP)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "totpkeeper/v1/totpkeeper.proto",
}

func unary[Req, Resp proto.Message](
	fullMethod string, call func(TOTPKeeperServer, context.Context, Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newMessage[Req]()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TOTPKeeperServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TOTPKeeperServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// newMessage allocates the concrete message behind a pointer type parameter.
func newMessage[M proto.Message]() M {
	var zero M
	return zero.ProtoReflect().Type().New().Interface().(M)
}

// TOTPKeeperClient is the client API for the TOTPKeeper service.
type TOTPKeeperClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetQRCode(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	VerifyTOTP(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	EnableTOTP(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type totpKeeperClient struct {
	cc grpc.ClientConnInterface
}

// NewTOTPKeeperClient returns a client bound to cc.
func NewTOTPKeeperClient(cc grpc.ClientConnInterface) TOTPKeeperClient {
	return &totpKeeperClient{cc: cc}
}

func (c *totpKeeperClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodRegister, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *totpKeeperClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *totpKeeperClient) GetQRCode(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodGetQRCode, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *totpKeeperClient) VerifyTOTP(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, FullMethodVerifyTOTP, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *totpKeeperClient) EnableTOTP(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, FullMethodEnableTOTP, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
