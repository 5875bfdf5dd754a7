package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Маркер живой сессии: его отсутствие означает, что сессия удалена
// или не существовала, даже если в бакете остался мусор.
const sessionMarker = ".session"

// MinIOStore — SessionStore поверх MinIO: артефакты лежат объектами
// под префиксом сессии.
type MinIOStore struct {
	client *minio.Client
	bucket string
	region string
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewMinIOStore(endpoint, accessKey, secretKey, bucket, region string, useSSL bool, connectTimeout time.Duration, logger zerolog.Logger) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOStore{
		client: client,
		bucket: bucket,
		region: region,
		logger: logger,
	}

	// Best-effort bootstrap: если MinIO еще не поднялся, сервис
	// продолжает работать и повторит попытку при первом обращении.
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := store.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", endpoint).
			Str("bucket", bucket).
			Msg("MinIO not ready during startup; will retry on demand")
	} else {
		logger.Info().
			Str("endpoint", endpoint).
			Str("bucket", bucket).
			Bool("ssl", useSSL).
			Msg("Connected to MinIO")
	}

	return store, nil
}

func (s *MinIOStore) ensureBucket(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.bucketEnsured {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio not ready: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.logger.Info().Str("bucket", s.bucket).Msg("Created new bucket")
	}

	s.bucketEnsured = true
	return nil
}

func (s *MinIOStore) Create(ctx context.Context) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(id, sessionMarker),
		bytes.NewReader(nil), 0, minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("failed to create session marker: %w", err)
	}

	s.logger.Debug().Str("session_id", id).Msg("Session created")
	return id, nil
}

func (s *MinIOStore) Put(ctx context.Context, sessionID string, artifact Artifact) error {
	if err := s.sessionAlive(ctx, sessionID); err != nil {
		return err
	}

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(sessionID, artifact.Name),
		bytes.NewReader(artifact.Data), int64(len(artifact.Data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, sessionID, name string) (*Artifact, error) {
	if err := s.sessionAlive(ctx, sessionID); err != nil {
		return nil, err
	}

	object := s.objectName(sessionID, name)
	info, err := s.client.StatObject(ctx, s.bucket, object, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	reader, err := s.client.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return &Artifact{
		Name:        name,
		ContentType: info.ContentType,
		Data:        data,
		CreatedAt:   info.LastModified,
	}, nil
}

func (s *MinIOStore) List(ctx context.Context, sessionID string) ([]Artifact, error) {
	if err := s.sessionAlive(ctx, sessionID); err != nil {
		return nil, err
	}

	var artifacts []Artifact
	prefix := sessionID + "/"
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %w", object.Err)
		}
		name := strings.TrimPrefix(object.Key, prefix)
		if name == sessionMarker {
			continue
		}
		artifact, err := s.Get(ctx, sessionID, name)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, nil
}

func (s *MinIOStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	prefix := sessionID + "/"
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return fmt.Errorf("failed to list session objects: %w", object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", object.Key, err)
		}
	}

	s.logger.Debug().Str("session_id", sessionID).Msg("Session deleted")
	return nil
}

func (s *MinIOStore) Close() error {
	return nil
}

func (s *MinIOStore) sessionAlive(ctx context.Context, sessionID string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := s.client.StatObject(ctx, s.bucket, s.objectName(sessionID, sessionMarker), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to check session: %w", err)
	}
	return nil
}

func (s *MinIOStore) objectName(sessionID, name string) string {
	return sessionID + "/" + name
}
