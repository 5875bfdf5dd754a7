package httpd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RubachokBoss/class-balancer/internal/balancer"
	"github.com/RubachokBoss/class-balancer/internal/config"
	"github.com/RubachokBoss/class-balancer/internal/exporter"
	"github.com/RubachokBoss/class-balancer/internal/parser"
	"github.com/RubachokBoss/class-balancer/internal/service"
	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/RubachokBoss/class-balancer/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()

	store := storage.NewMemoryStore(0, 0, log)
	t.Cleanup(func() { store.Close() })

	placementService := service.NewPlacementService(
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
	sessionService := service.NewSessionService(store, log)

	handler := NewHandler(placementService, sessionService, store, config.UploadConfig{
		MaxFileSizeMB:     32,
		AllowedExtensions: []string{".xlsx", ".csv"},
	}, log)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func uploadBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func sampleRoster(students int) string {
	var b strings.Builder
	b.WriteString("id,math,physics\n")
	for i := 0; i < students; i++ {
		fmt.Fprintf(&b, "%03d,%d,%d\n", i, 50+i%50, 45+(i*7)%50)
	}
	return b.String()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type uploadData struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Results   []struct {
		GradeID    string `json:"grade_id"`
		ResultFile string `json:"result_file"`
	} `json:"results"`
	Failed []struct {
		GradeID string `json:"grade_id"`
		Error   string `json:"error"`
	} `json:"failed"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestUploadDownloadCleanupFlow(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	body, contentType := uploadBody(t,
		map[string]string{"big_count": "2", "seed": "7"},
		map[string]string{"3.1.csv": sampleRoster(40)},
	)

	resp, err := client.Post(server.URL+"/api/v1/placements/upload", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)

	var data uploadData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.SessionID)
	require.Len(t, data.Results, 1)
	assert.Equal(t, "3", data.Results[0].GradeID)

	// Скачиваем файл результата.
	fileURL := fmt.Sprintf("%s/api/v1/placements/%s/files/%s",
		server.URL, data.SessionID, data.Results[0].ResultFile)
	resp, err = client.Get(fileURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, exporter.ContentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), data.Results[0].ResultFile)
	resp.Body.Close()

	// Скачиваем архив.
	resp, err = client.Get(fmt.Sprintf("%s/api/v1/placements/%s/archive", server.URL, data.SessionID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	// Удаляем сессию.
	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/v1/placements/%s", server.URL, data.SessionID), nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Повторное удаление тоже 200.
	resp, err = client.Do(req.Clone(req.Context()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// После очистки файл недоступен.
	resp, err = client.Get(fileURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env = decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error.Message, "re-upload")
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	server := newTestServer(t)

	body, contentType := uploadBody(t, nil, nil)
	resp, err := server.Client().Post(server.URL+"/api/v1/placements/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	server := newTestServer(t)

	body, contentType := uploadBody(t, nil, map[string]string{"roster.pdf": "binary"})
	resp, err := server.Client().Post(server.URL+"/api/v1/placements/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestUploadNoValidRosters(t *testing.T) {
	server := newTestServer(t)

	body, contentType := uploadBody(t, nil, map[string]string{"empty.csv": "not,a,roster"})
	resp, err := server.Client().Post(server.URL+"/api/v1/placements/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadConfigErrorUnprocessable(t *testing.T) {
	server := newTestServer(t)

	// 30 учеников не делятся на 2 малых класса по 20.
	body, contentType := uploadBody(t,
		map[string]string{"small_count": "2", "small_size": "20"},
		map[string]string{"3.1.csv": sampleRoster(30)},
	)

	resp, err := server.Client().Post(server.URL+"/api/v1/placements/upload", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)

	var data uploadData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Failed, 1)
	assert.Contains(t, data.Failed[0].Error, "invalid class configuration")
}

func TestUnknownSessionIs404(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/api/v1/placements/no-such-session/archive")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	for _, path := range []string{"/health", "/ready", "/stats"} {
		resp, err := client.Get(server.URL + path)
		require.NoError(t, err, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/api/v1/placements/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)
}
