package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// maxSendMsgSize matches the server's default upload limit plus base64 overhead.
const maxSendMsgSize = 140 << 20

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	transfer    rpc.TransferClient
	admin       rpc.AdminClient
	accessToken string
}

// Download is a finished download: the ciphertext was written to the
// caller's writer, and Salt came with the stream header.
type Download struct {
	Salt    string
	Length  int64
	Written int64
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the operator token, if any, to unary calls.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects to endpointURL. accessToken is only needed for the
// admin calls and may be empty.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(maxSendMsgSize)),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}

	c.conn = conn
	c.transfer = rpc.NewTransferClient(conn)
	c.admin = rpc.NewAdminClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Upload(ctx context.Context, req *rpc.UploadRequest) (string, error) {
	res, err := s.transfer.Upload(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}
	return res.ShareReference, nil
}

func (s *GRPCClient) Status(ctx context.Context, token string) (*rpc.StatusResponse, error) {
	res, err := s.transfer.Status(ctx, &rpc.TokenRequest{Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}
	return res, nil
}

func (s *GRPCClient) PeekMetadata(ctx context.Context, token string) (*rpc.MetadataResponse, error) {
	res, err := s.transfer.PeekMetadata(ctx, &rpc.TokenRequest{Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}
	return res, nil
}

// Download consumes one download of the file and copies its ciphertext to w.
func (s *GRPCClient) Download(ctx context.Context, token string, w io.Writer) (*Download, error) {
	stream, err := s.transfer.Download(ctx, &rpc.TokenRequest{Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}

	header, err := stream.Header()
	if err != nil {
		return nil, s.mapError(err)
	}

	d := &Download{}
	if v := header.Get(common.SaltMetadataKey); len(v) > 0 {
		d.Salt = v[0]
	}
	if v := header.Get(common.CiphertextLengthMetadataKey); len(v) > 0 {
		d.Length, _ = strconv.ParseInt(v[0], 10, 64)
	}

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, s.mapError(err)
		}
		n, err := w.Write(chunk.Data)
		d.Written += int64(n)
		if err != nil {
			return nil, err
		}
	}

	if d.Salt == "" {
		return nil, fmt.Errorf("%w: no salt in response", common.ErrMalformedSalt)
	}
	if d.Length > 0 && d.Written != d.Length {
		return nil, fmt.Errorf("download truncated: got %d of %d bytes", d.Written, d.Length)
	}
	return d, nil
}

func (s *GRPCClient) Sweep(ctx context.Context) (*rpc.SweepResponse, error) {
	res, err := s.admin.Sweep(ctx, &rpc.SweepRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return res, nil
}

func (s *GRPCClient) PruneAudit(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.admin.PruneAudit(ctx, &rpc.PruneAuditRequest{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return 0, s.mapError(err)
	}
	return res.Deleted, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return ErrFileUnavailable
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.ResourceExhausted:
		return common.ErrRateLimited
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
