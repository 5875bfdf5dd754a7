package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound — сессия истекла, удалена или не существовала.
	// На границе HTTP превращается в 404 "please re-upload".
	ErrSessionNotFound = errors.New("session not found")
	// ErrArtifactNotFound — сессия жива, но такого файла в ней нет.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Artifact — один сгенерированный файл результата внутри сессии.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// SessionStore хранит артефакты загрузки до скачивания или очистки.
// Чтения конкурентны; Delete идемпотентен, после него любые чтения
// сессии возвращают ErrSessionNotFound.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Put(ctx context.Context, sessionID string, artifact Artifact) error
	Get(ctx context.Context, sessionID, name string) (*Artifact, error)
	List(ctx context.Context, sessionID string) ([]Artifact, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
