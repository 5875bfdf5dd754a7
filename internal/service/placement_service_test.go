package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/RubachokBoss/class-balancer/internal/balancer"
	"github.com/RubachokBoss/class-balancer/internal/exporter"
	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/RubachokBoss/class-balancer/internal/parser"
	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/RubachokBoss/class-balancer/internal/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlacementService(t *testing.T) (PlacementService, storage.SessionStore) {
	t.Helper()
	log := zerolog.Nop()

	store := storage.NewMemoryStore(0, 0, log)
	t.Cleanup(func() { store.Close() })

	svc := NewPlacementService(
		parser.New(log),
		balancer.NewEngine(balancer.DefaultConfig(), log),
		exporter.New(log),
		store,
		worker.NewPool(2, log),
		nil,
		nil,
		1,
		log,
	)
	return svc, store
}

func rosterCSV(name string, students int) parser.UploadedFile {
	var b strings.Builder
	b.WriteString("id,math,physics\n")
	for i := 0; i < students; i++ {
		fmt.Fprintf(&b, "%s-%02d,%d,%d\n", name, i, 50+i%50, 45+(i*7)%50)
	}
	return parser.UploadedFile{Name: name, Data: []byte(b.String())}
}

func TestProcessUploadStoresArtifacts(t *testing.T) {
	svc, store := newTestPlacementService(t)
	ctx := context.Background()

	files := []parser.UploadedFile{rosterCSV("3.1.csv", 40)}

	summary, err := svc.ProcessUpload(ctx, files, models.ClassConfig{BigCount: 2}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, summary.SessionID)
	require.Len(t, summary.Results, 1)
	assert.Empty(t, summary.Failed)

	outcome := summary.Results[0]
	assert.Equal(t, "3", outcome.GradeID)
	assert.Equal(t, 40, outcome.StudentCount)
	assert.Equal(t, 2, outcome.ClassCount)
	assert.Equal(t, exporter.FileName("3"), outcome.ResultFile)

	artifact, err := store.Get(ctx, summary.SessionID, outcome.ResultFile)
	require.NoError(t, err)
	assert.Equal(t, exporter.ContentTypeXLSX, artifact.ContentType)
	assert.NotEmpty(t, artifact.Data)
}

func TestProcessUploadIsolatesFailedGrade(t *testing.T) {
	svc, store := newTestPlacementService(t)
	ctx := context.Background()

	// 40 учеников делятся на 2 малых класса по 20, 30 — нет.
	files := []parser.UploadedFile{
		rosterCSV("3.1.csv", 40),
		rosterCSV("4.1.csv", 30),
	}
	classCfg := models.ClassConfig{SmallCount: 2, SmallSize: 20}

	summary, err := svc.ProcessUpload(ctx, files, classCfg, 1)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "3", summary.Results[0].GradeID)

	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "4", summary.Failed[0].GradeID)
	assert.Contains(t, summary.Failed[0].Error, "invalid class configuration")

	// Артефакт успешной параллели на месте.
	_, err = store.Get(ctx, summary.SessionID, exporter.FileName("3"))
	require.NoError(t, err)
}

func TestProcessUploadNoRosters(t *testing.T) {
	svc, _ := newTestPlacementService(t)

	_, err := svc.ProcessUpload(context.Background(),
		[]parser.UploadedFile{{Name: "garbage.bin", Data: []byte("x")}},
		models.ClassConfig{}, 1)
	require.ErrorIs(t, err, parser.ErrNoRosters)
}

func TestProcessUploadDeterministicForSeed(t *testing.T) {
	svc, store := newTestPlacementService(t)
	ctx := context.Background()

	run := func() []byte {
		summary, err := svc.ProcessUpload(ctx,
			[]parser.UploadedFile{rosterCSV("3.1.csv", 30)},
			models.ClassConfig{BigCount: 2}, 42)
		require.NoError(t, err)
		require.Len(t, summary.Results, 1)

		artifact, err := store.Get(ctx, summary.SessionID, summary.Results[0].ResultFile)
		require.NoError(t, err)
		return artifact.Data
	}

	assert.Equal(t, len(run()), len(run()))
}

func TestHistoryWithoutRepository(t *testing.T) {
	svc, _ := newTestPlacementService(t)

	entries, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionServiceArchiveAndCleanup(t *testing.T) {
	log := zerolog.Nop()
	store := storage.NewMemoryStore(0, 0, log)
	defer store.Close()

	svc := NewSessionService(store, log)
	ctx := context.Background()

	sessionID, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, sessionID, storage.Artifact{Name: "a.xlsx", Data: []byte("aa")}))
	require.NoError(t, store.Put(ctx, sessionID, storage.Artifact{Name: "b.xlsx", Data: []byte("bb")}))

	archive, err := svc.Archive(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "application/zip", archive.ContentType)
	assert.NotEmpty(t, archive.Data)

	require.NoError(t, svc.Cleanup(ctx, sessionID))
	// Повторная очистка идемпотентна.
	require.NoError(t, svc.Cleanup(ctx, sessionID))

	_, err = svc.Archive(ctx, sessionID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
