package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversation"
	convagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversion"
	evalagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/evaluation"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/transport/push"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logging.Logger {
	l, err := logging.New("development")
	if err != nil {
		panic(err)
	}
	return l
}

func newTestRouter(t *testing.T) (*gin.Engine, *state.WorkflowState, string) {
	t.Helper()
	stagingDir := t.TempDir()

	b := bus.New()
	s := state.New(10)

	convAgent := convagent.New(&convagent.MockConverter{}, nil, testLogger())
	require.NoError(t, convAgent.RegisterHandlers(b))
	evalAgent := evalagent.New(&evalagent.MockInspector{}, testLogger())
	require.NoError(t, evalAgent.RegisterHandlers(b))

	agent := conversation.New(s, b, nil, testLogger())
	hub := push.NewHub(s, testLogger())
	h := NewHandler(agent, s, testLogger(), stagingDir, 5*1024)

	return NewRouter(h, hub), s, stagingDir
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doUpload(r *gin.Engine, fieldName, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile(fieldName, filename)
	_, _ = part.Write(content)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck_ReportsOKWithoutMutatingState(t *testing.T) {
	r, s, _ := newTestRouter(t)
	rec := doJSON(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IDLE", string(s.Status()))
}

func TestStatus_ReturnsSnapshot(t *testing.T) {
	r, _, _ := newTestRouter(t)
	rec := doJSON(r, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "IDLE", string(snap.Status))
}

func TestUpload_StagesFileAndSetsInputPath(t *testing.T) {
	r, s, _ := newTestRouter(t)
	rec := doUpload(r, "file", "recording.bin", []byte("some bytes"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, s.InputPath(), "recording.bin")
}

func TestUpload_RejectsDisallowedExtension(t *testing.T) {
	r, _, _ := newTestRouter(t)
	rec := doUpload(r, "file", "payload.exe", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestUpload_WhileBusyReturnsBusy(t *testing.T) {
	r, s, _ := newTestRouter(t)
	require.NoError(t, s.BeginUpload("already-uploading.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())

	rec := doUpload(r, "file", "second.bin", []byte("x"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "BUSY", env.Error.Code)
}

func TestFullConversationFlow_UploadThroughDownload(t *testing.T) {
	r, s, stagingDir := newTestRouter(t)

	hint := map[string]string{
		"subject_id": "mouse001", "species": "Mus musculus", "sex": "M",
		"age": "P60D", "experimenter": "Smith, Jane", "institution": "MIT",
	}
	hintJSON, _ := json.Marshal(hint)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "Noise4Sam_g0_t0.imec0.ap.bin")
	_, _ = part.Write([]byte("raw data"))
	_ = w.WriteField("metadata_hint", string(hintJSON))
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/start_conversion", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "COMPLETED", string(s.Status()))
	assert.NotEmpty(t, s.OutputPath())

	// MockConverter computes the output path without writing it; stand in
	// for a real converter's write so the download has a file to serve.
	require.NoError(t, os.WriteFile(s.OutputPath(), []byte("nwb bytes"), 0o644))

	rec = doJSON(r, http.MethodGet, "/api/download/nwb", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/download/report", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_ = os.RemoveAll(filepath.Join(stagingDir))
}

func TestChat_RespondsWithSnapshotDuringMetadataCollection(t *testing.T) {
	r, s, _ := newTestRouter(t)
	rec := doUpload(r, "file", "Noise4Sam_g0_t0.imec0.ap.bin", []byte("raw data"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/start_conversion", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "METADATA_COLLECTION", string(s.ConversationPhase()))

	rec = doJSON(r, http.MethodPost, "/api/chat", chatRequest{Message: "just proceed without it"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COMPLETED", string(s.Status()))
}

func TestReset_ReinitializesState(t *testing.T) {
	r, s, _ := newTestRouter(t)
	require.NoError(t, s.BeginUpload("recording.bin"))

	rec := doJSON(r, http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IDLE", string(s.Status()))
	assert.Empty(t, s.InputPath())
}

func TestDownload_NotFoundBeforeCompletion(t *testing.T) {
	r, _, _ := newTestRouter(t)
	rec := doJSON(r, http.MethodGet, "/api/download/nwb", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_UnknownKindIsInvalidInput(t *testing.T) {
	r, s, _ := newTestRouter(t)
	require.NoError(t, s.BeginUpload("x.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())
	require.NoError(t, s.SetFormatDetectionResult("SpikeGLX", 95, nil))
	require.NoError(t, s.BeginConversion())
	_ = s.SetTerminal(models.DispositionPassed)
	rec := doJSON(r, http.MethodGet, "/api/download/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
