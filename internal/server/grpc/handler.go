package grpc

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/rpc"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func (s *GRPCServer) Upload(ctx context.Context, req *rpc.UploadRequest) (*rpc.UploadResponse, error) {

	if int64(len(req.EncryptedPayload)) > s.maxUploadSize {
		return nil, toStatus(common.ErrPayloadTooLarge)
	}

	token, err := cryptox.ParseToken(req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	salt, err := cryptox.ParseSalt(req.Salt)
	if err != nil {
		return nil, toStatus(err)
	}

	ref, err := s.transfer.Upload(ctx, services.UploadRequest{
		Token:             token,
		Salt:              salt,
		EncryptedPayload:  req.EncryptedPayload,
		EncryptedMetadata: req.EncryptedMetadata,
		MaxDownloads:      req.MaxDownloads,
		ExpiresAt:         req.ExpiresAt,
		NotifyEmail:       req.NotifyEmail,
	})
	if err != nil {
		s.logger.Error(ctx, "upload failed", "error", err)
		return nil, toStatus(err)
	}

	return &rpc.UploadResponse{ShareReference: ref.ID}, nil
}

func (s *GRPCServer) Status(ctx context.Context, req *rpc.TokenRequest) (*rpc.StatusResponse, error) {

	token, err := cryptox.ParseToken(req.Token)
	if err != nil {
		return nil, toStatus(err)
	}

	st, err := s.transfer.Status(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}

	return &rpc.StatusResponse{
		DownloadsRemaining: st.DownloadsRemaining,
		ExpiresAt:          st.ExpiresAt,
		CreatedAt:          st.CreatedAt,
	}, nil
}

func (s *GRPCServer) PeekMetadata(ctx context.Context, req *rpc.TokenRequest) (*rpc.MetadataResponse, error) {

	token, err := cryptox.ParseToken(req.Token)
	if err != nil {
		return nil, toStatus(err)
	}

	m, err := s.transfer.PeekMetadata(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}

	return &rpc.MetadataResponse{EncryptedMetadata: m.EncryptedMetadata, Salt: m.Salt.String()}, nil
}

// Download streams the ciphertext in chunks. The salt and the total length
// are sent as header metadata before the first chunk.
func (s *GRPCServer) Download(req *rpc.TokenRequest, stream grpc.ServerStreamingServer[rpc.DownloadChunk]) error {
	ctx := stream.Context()

	token, err := cryptox.ParseToken(req.Token)
	if err != nil {
		return toStatus(err)
	}

	d, err := s.transfer.Download(ctx, token)
	if err != nil {
		return toStatus(err)
	}
	defer d.Body.Close()

	header := metadata.Pairs(
		common.SaltMetadataKey, d.Salt.String(),
		common.CiphertextLengthMetadataKey, strconv.FormatInt(d.Length, 10),
	)
	if err := stream.SendHeader(header); err != nil {
		return err
	}

	buf := make([]byte, rpc.DownloadChunkSize)
	for {
		n, err := d.Body.Read(buf)
		if n > 0 {
			if serr := stream.Send(&rpc.DownloadChunk{Data: buf[:n]}); serr != nil {
				return serr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.logger.Error(ctx, "download stream failed", "file_id", d.FileID, "error", err)
			return toStatus(err)
		}
	}
}

func (s *GRPCServer) Sweep(ctx context.Context, req *rpc.SweepRequest) (*rpc.SweepResponse, error) {
	rep, err := s.admin.Sweep(ctx)
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "error", err)
		return nil, toStatus(err)
	}
	return &rpc.SweepResponse{Deleted: rep.Deleted, Failed: rep.Failed}, nil
}

func (s *GRPCServer) PruneAudit(ctx context.Context, req *rpc.PruneAuditRequest) (*rpc.PruneAuditResponse, error) {
	n, err := s.admin.PruneAudit(ctx, time.Duration(req.RetentionSeconds)*time.Second)
	if err != nil {
		s.logger.Error(ctx, "audit prune failed", "error", err)
		return nil, toStatus(err)
	}
	return &rpc.PruneAuditResponse{Deleted: n}, nil
}
