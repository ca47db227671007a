package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Admin_Sweep_FullMethodName      = "/webxfer.Admin/Sweep"
	Admin_PruneAudit_FullMethodName = "/webxfer.Admin/PruneAudit"
)

// AdminServer is the server API for the Admin service. Every method
// requires an operator token.
type AdminServer interface {
	Sweep(context.Context, *SweepRequest) (*SweepResponse, error)
	PruneAudit(context.Context, *PruneAuditRequest) (*PruneAuditResponse, error)
}

type UnimplementedAdminServer struct{}

func (UnimplementedAdminServer) Sweep(context.Context, *SweepRequest) (*SweepResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Sweep not implemented")
}
func (UnimplementedAdminServer) PruneAudit(context.Context, *PruneAuditRequest) (*PruneAuditResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PruneAudit not implemented")
}

func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&Admin_ServiceDesc, srv)
}

func _Admin_Sweep_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SweepRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Sweep(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Admin_Sweep_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).Sweep(ctx, req.(*SweepRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Admin_PruneAudit_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PruneAuditRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).PruneAudit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Admin_PruneAudit_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).PruneAudit(ctx, req.(*PruneAuditRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Admin_ServiceDesc is the grpc.ServiceDesc for the Admin service.
var Admin_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "webxfer.Admin",
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Sweep", Handler: _Admin_Sweep_Handler},
		{MethodName: "PruneAudit", Handler: _Admin_PruneAudit_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "webxfer/admin",
}

type AdminClient interface {
	Sweep(ctx context.Context, in *SweepRequest, opts ...grpc.CallOption) (*SweepResponse, error)
	PruneAudit(ctx context.Context, in *PruneAuditRequest, opts ...grpc.CallOption) (*PruneAuditResponse, error)
}

type adminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) AdminClient {
	return &adminClient{cc}
}

func (c *adminClient) Sweep(ctx context.Context, in *SweepRequest, opts ...grpc.CallOption) (*SweepResponse, error) {
	out := new(SweepResponse)
	if err := c.cc.Invoke(ctx, Admin_Sweep_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminClient) PruneAudit(ctx context.Context, in *PruneAuditRequest, opts ...grpc.CallOption) (*PruneAuditResponse, error) {
	out := new(PruneAuditResponse)
	if err := c.cc.Invoke(ctx, Admin_PruneAudit_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
