package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Transfer_Upload_FullMethodName       = "/webxfer.Transfer/Upload"
	Transfer_Status_FullMethodName       = "/webxfer.Transfer/Status"
	Transfer_PeekMetadata_FullMethodName = "/webxfer.Transfer/PeekMetadata"
	Transfer_Download_FullMethodName     = "/webxfer.Transfer/Download"
)

// TransferServer is the server API for the Transfer service.
type TransferServer interface {
	Upload(context.Context, *UploadRequest) (*UploadResponse, error)
	Status(context.Context, *TokenRequest) (*StatusResponse, error)
	PeekMetadata(context.Context, *TokenRequest) (*MetadataResponse, error)
	Download(*TokenRequest, grpc.ServerStreamingServer[DownloadChunk]) error
}

// UnimplementedTransferServer can be embedded to have forward compatible implementations.
type UnimplementedTransferServer struct{}

func (UnimplementedTransferServer) Upload(context.Context, *UploadRequest) (*UploadResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedTransferServer) Status(context.Context, *TokenRequest) (*StatusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedTransferServer) PeekMetadata(context.Context, *TokenRequest) (*MetadataResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PeekMetadata not implemented")
}
func (UnimplementedTransferServer) Download(*TokenRequest, grpc.ServerStreamingServer[DownloadChunk]) error {
	return status.Errorf(codes.Unimplemented, "method Download not implemented")
}

func RegisterTransferServer(s grpc.ServiceRegistrar, srv TransferServer) {
	s.RegisterService(&Transfer_ServiceDesc, srv)
}

func _Transfer_Upload_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UploadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Transfer_Upload_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransferServer).Upload(ctx, req.(*UploadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Transfer_Status_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Transfer_Status_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransferServer).Status(ctx, req.(*TokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Transfer_PeekMetadata_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServer).PeekMetadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Transfer_PeekMetadata_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransferServer).PeekMetadata(ctx, req.(*TokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Transfer_Download_Handler(srv any, stream grpc.ServerStream) error {
	m := new(TokenRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TransferServer).Download(m, &grpc.GenericServerStream[TokenRequest, DownloadChunk]{ServerStream: stream})
}

// Transfer_ServiceDesc is the grpc.ServiceDesc for the Transfer service.
var Transfer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "webxfer.Transfer",
	HandlerType: (*TransferServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Upload", Handler: _Transfer_Upload_Handler},
		{MethodName: "Status", Handler: _Transfer_Status_Handler},
		{MethodName: "PeekMetadata", Handler: _Transfer_PeekMetadata_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Download", Handler: _Transfer_Download_Handler, ServerStreams: true},
	},
	Metadata: "webxfer/transfer",
}

// TransferClient is the client API for the Transfer service.
type TransferClient interface {
	Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error)
	Status(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	PeekMetadata(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*MetadataResponse, error)
	Download(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DownloadChunk], error)
}

type transferClient struct {
	cc grpc.ClientConnInterface
}

func NewTransferClient(cc grpc.ClientConnInterface) TransferClient {
	return &transferClient{cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *transferClient) Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error) {
	out := new(UploadResponse)
	if err := c.cc.Invoke(ctx, Transfer_Upload_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transferClient) Status(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.cc.Invoke(ctx, Transfer_Status_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transferClient) PeekMetadata(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*MetadataResponse, error) {
	out := new(MetadataResponse)
	if err := c.cc.Invoke(ctx, Transfer_PeekMetadata_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transferClient) Download(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DownloadChunk], error) {
	stream, err := c.cc.NewStream(ctx, &Transfer_ServiceDesc.Streams[0], Transfer_Download_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[TokenRequest, DownloadChunk]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
