package grpc

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/rpc"
	"github.com/dmitrijs2005/webxfer/internal/server/auth"
	"github.com/dmitrijs2005/webxfer/internal/server/lifecycle"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "secret"

type fakeTransfer struct {
	uploadReq   services.UploadRequest
	uploadActor string
	uploadErr   error

	download    *services.Download
	downloadErr error

	status    *models.Status
	statusErr error

	sealed  *services.SealedMetadata
	peekErr error

	pingErr error
}

func (f *fakeTransfer) Upload(ctx context.Context, req services.UploadRequest) (*services.ShareReference, error) {
	f.uploadReq = req
	f.uploadActor = services.ActorFromContext(ctx)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &services.ShareReference{ID: "file-1"}, nil
}
func (f *fakeTransfer) Download(ctx context.Context, token cryptox.Token) (*services.Download, error) {
	return f.download, f.downloadErr
}
func (f *fakeTransfer) Status(ctx context.Context, token cryptox.Token) (*models.Status, error) {
	return f.status, f.statusErr
}
func (f *fakeTransfer) PeekMetadata(ctx context.Context, token cryptox.Token) (*services.SealedMetadata, error) {
	return f.sealed, f.peekErr
}
func (f *fakeTransfer) Ping(ctx context.Context) error { return f.pingErr }

type fakeAdmin struct {
	report    *lifecycle.SweepReport
	retention time.Duration
	pruned    int64
}

func (f *fakeAdmin) Sweep(ctx context.Context) (*lifecycle.SweepReport, error) {
	return f.report, nil
}
func (f *fakeAdmin) PruneAudit(ctx context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return f.pruned, nil
}

func newTestServer(ts *fakeTransfer, as *fakeAdmin) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.NewNop(), ts, as, testSecret, 1024)
}

func dial(t *testing.T, s *GRPCServer) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return conn
}

func TestUpload_OK(t *testing.T) {
	ft := &fakeTransfer{}
	client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

	token := cryptox.GenerateToken()
	salt := cryptox.GenerateSalt()

	resp, err := client.Upload(context.Background(), &rpc.UploadRequest{
		EncryptedPayload:  []byte("ciphertext"),
		EncryptedMetadata: []byte("meta"),
		Salt:              salt.String(),
		Token:             token.Encode(),
		MaxDownloads:      3,
		NotifyEmail:       "a@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "file-1", resp.ShareReference)

	assert.Equal(t, token, ft.uploadReq.Token)
	assert.Equal(t, salt, ft.uploadReq.Salt)
	assert.Equal(t, []byte("ciphertext"), ft.uploadReq.EncryptedPayload)
	assert.Equal(t, int64(3), ft.uploadReq.MaxDownloads)
	assert.Equal(t, "a@example.com", ft.uploadReq.NotifyEmail)
	assert.NotEqual(t, "unknown", ft.uploadActor)
}

func TestUpload_RejectsBadInput(t *testing.T) {
	client := rpc.NewTransferClient(dial(t, newTestServer(&fakeTransfer{}, &fakeAdmin{})))
	salt := cryptox.GenerateSalt().String()
	token := cryptox.GenerateToken().Encode()

	tests := []struct {
		name string
		req  *rpc.UploadRequest
	}{
		{"malformed token", &rpc.UploadRequest{Token: "%%%", Salt: salt, MaxDownloads: 1}},
		{"salt in token slot", &rpc.UploadRequest{Token: salt, Salt: salt, MaxDownloads: 1}},
		{"malformed salt", &rpc.UploadRequest{Token: token, Salt: "short", MaxDownloads: 1}},
		{"too large", &rpc.UploadRequest{Token: token, Salt: salt, MaxDownloads: 1, EncryptedPayload: make([]byte, 2048)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Upload(context.Background(), tt.req)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestUpload_RateLimited(t *testing.T) {
	ft := &fakeTransfer{uploadErr: common.ErrRateLimited}
	client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

	_, err := client.Upload(context.Background(), &rpc.UploadRequest{
		Token: cryptox.GenerateToken().Encode(), Salt: cryptox.GenerateSalt().String(), MaxDownloads: 1,
	})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestStatus_UnavailableIsOpaque(t *testing.T) {
	for _, cause := range []error{common.ErrorNotFound, common.ErrExhausted, common.ErrExpired} {
		ft := &fakeTransfer{statusErr: cause}
		client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

		_, err := client.Status(context.Background(), &rpc.TokenRequest{Token: cryptox.GenerateToken().Encode()})
		st, _ := status.FromError(err)
		assert.Equal(t, codes.NotFound, st.Code())
		assert.Equal(t, "file unavailable", st.Message())
	}
}

func TestStatus_OK(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ft := &fakeTransfer{status: &models.Status{DownloadsRemaining: 2, CreatedAt: created, State: models.StateActive}}
	client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

	resp, err := client.Status(context.Background(), &rpc.TokenRequest{Token: cryptox.GenerateToken().Encode()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.DownloadsRemaining)
	assert.Nil(t, resp.ExpiresAt)
	assert.True(t, created.Equal(resp.CreatedAt))
}

func TestPeekMetadata_OK(t *testing.T) {
	salt := cryptox.GenerateSalt()
	ft := &fakeTransfer{sealed: &services.SealedMetadata{EncryptedMetadata: []byte("sealed"), Salt: salt}}
	client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

	resp, err := client.PeekMetadata(context.Background(), &rpc.TokenRequest{Token: cryptox.GenerateToken().Encode()})
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), resp.EncryptedMetadata)
	assert.Equal(t, salt.String(), resp.Salt)
}

func TestDownload_StreamsChunksWithHeaders(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 15000)
	salt := cryptox.GenerateSalt()
	ft := &fakeTransfer{download: &services.Download{
		FileID: "file-1",
		Body:   io.NopCloser(bytes.NewReader(payload)),
		Salt:   salt,
		Length: int64(len(payload)),
	}}
	client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

	stream, err := client.Download(context.Background(), &rpc.TokenRequest{Token: cryptox.GenerateToken().Encode()})
	require.NoError(t, err)

	header, err := stream.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{salt.String()}, header.Get(common.SaltMetadataKey))
	assert.Equal(t, []string{"150000"}, header.Get(common.CiphertextLengthMetadataKey))

	var got bytes.Buffer
	chunks := 0
	for {
		c, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(c.Data), rpc.DownloadChunkSize)
		got.Write(c.Data)
		chunks++
	}
	assert.Equal(t, payload, got.Bytes())
	assert.GreaterOrEqual(t, chunks, 3)
}

func TestDownload_Exhausted(t *testing.T) {
	ft := &fakeTransfer{downloadErr: common.ErrExhausted}
	client := rpc.NewTransferClient(dial(t, newTestServer(ft, &fakeAdmin{})))

	stream, err := client.Download(context.Background(), &rpc.TokenRequest{Token: cryptox.GenerateToken().Encode()})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestAdmin_RequiresOperatorToken(t *testing.T) {
	fa := &fakeAdmin{report: &lifecycle.SweepReport{Deleted: 2, Failed: 1}, pruned: 7}
	client := rpc.NewAdminClient(dial(t, newTestServer(&fakeTransfer{}, fa)))

	_, err := client.Sweep(context.Background(), &rpc.SweepRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "garbage")
	_, err = client.Sweep(bad, &rpc.SweepRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := auth.GenerateToken("sweeper", []byte(testSecret), time.Minute)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)

	rep, err := client.Sweep(ctx, &rpc.SweepRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Deleted)
	assert.Equal(t, 1, rep.Failed)

	pr, err := client.PruneAudit(ctx, &rpc.PruneAuditRequest{RetentionSeconds: 3600})
	require.NoError(t, err)
	assert.Equal(t, int64(7), pr.Deleted)
	assert.Equal(t, time.Hour, fa.retention)
}

func TestAdmin_ExpiredToken(t *testing.T) {
	client := rpc.NewAdminClient(dial(t, newTestServer(&fakeTransfer{}, &fakeAdmin{report: &lifecycle.SweepReport{}})))

	tok, err := auth.GenerateToken("sweeper", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)

	_, err = client.Sweep(ctx, &rpc.SweepRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealth_Serving(t *testing.T) {
	conn := dial(t, newTestServer(&fakeTransfer{}, &fakeAdmin{}))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrMalformedToken, codes.InvalidArgument},
		{common.ErrInvalidPolicy, codes.InvalidArgument},
		{common.ErrRateLimited, codes.ResourceExhausted},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrStorageFailure, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
	}

	st, _ := status.FromError(toStatus(common.ErrStorageFailure))
	assert.False(t, strings.Contains(st.Message(), "storage"))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeTransfer{}, &fakeAdmin{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.NewNop(), &fakeTransfer{}, &fakeAdmin{}, testSecret, 1024)

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
