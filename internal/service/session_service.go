package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/rs/zerolog"
)

const archiveName = "placement_results.zip"

type SessionService interface {
	GetArtifact(ctx context.Context, sessionID, fileName string) (*storage.Artifact, error)
	Archive(ctx context.Context, sessionID string) (*storage.Artifact, error)
	Cleanup(ctx context.Context, sessionID string) error
}

type sessionService struct {
	store  storage.SessionStore
	logger zerolog.Logger
}

func NewSessionService(store storage.SessionStore, logger zerolog.Logger) SessionService {
	return &sessionService{
		store:  store,
		logger: logger,
	}
}

func (s *sessionService) GetArtifact(ctx context.Context, sessionID, fileName string) (*storage.Artifact, error) {
	return s.store.Get(ctx, sessionID, fileName)
}

// Archive собирает все артефакты сессии в один zip.
func (s *sessionService) Archive(ctx context.Context, sessionID string) (*storage.Artifact, error) {
	artifacts, err := s.store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, artifact := range artifacts {
		entry, err := zw.Create(artifact.Name)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to add %s to archive: %w", artifact.Name, err)
		}
		if _, err := entry.Write(artifact.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to write %s to archive: %w", artifact.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return &storage.Artifact{
		Name:        archiveName,
		ContentType: "application/zip",
		Data:        buf.Bytes(),
		CreatedAt:   time.Now(),
	}, nil
}

func (s *sessionService) Cleanup(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.logger.Info().Str("session_id", sessionID).Msg("Session cleaned up")
	return nil
}
