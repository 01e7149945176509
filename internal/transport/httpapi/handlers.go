package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversation"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/validation"
)

// Handler holds the collaborators every endpoint needs, collapsed to one
// struct since the whole External Interface Layer fronts a single
// Conversation Agent instance (§5: at most one active conversion per
// process).
type Handler struct {
	agent       *conversation.Agent
	state       *state.WorkflowState
	log         *logging.Logger
	stagingDir  string
	maxUploadMB int
}

// NewHandler constructs the External Interface Layer's handler set.
func NewHandler(agent *conversation.Agent, s *state.WorkflowState, log *logging.Logger, stagingDir string, maxUploadMB int) *Handler {
	return &Handler{agent: agent, state: s, log: log.With("component", "httpapi"), stagingDir: stagingDir, maxUploadMB: maxUploadMB}
}

// HealthCheck reports process liveness and the current status without
// mutating state (§C.2).
func (h *Handler) HealthCheck(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok", "conversion_status": h.state.Status()})
}

// Status implements status() (§6): returns the snapshot unconditionally.
func (h *Handler) Status(c *gin.Context) {
	respondOK(c, h.state.Snapshot())
}

// Upload implements upload(file, additional_files?, metadata_hint?) (§6).
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	fileHeaders := form.File["file"]
	fileHeaders = append(fileHeaders, form.File["additional_files"]...)
	if len(fileHeaders) == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New("no files provided"))
		return
	}

	files := make([]validation.UploadFile, len(fileHeaders))
	for i, fh := range fileHeaders {
		files[i] = validation.UploadFile{Name: fh.Filename, Size: fh.Size}
	}

	req := validation.UploadRequest{Primary: files[0], Additional: files[1:], MaxUploadMB: int64(h.maxUploadMB)}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	maxBytes := int64(h.maxUploadMB) * 1024 * 1024
	if err := validation.CheckComposition(files, maxBytes); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}

	if err := os.MkdirAll(h.stagingDir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err)
		return
	}

	paths := make([]string, len(fileHeaders))
	for i, fh := range fileHeaders {
		dst := filepath.Join(h.stagingDir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL", err)
			return
		}
		paths[i] = dst
	}

	primary := paths[0]
	siblings := paths[1:]

	if err := h.state.BeginUpload(primary); err != nil {
		writeOrchestratorError(c, err)
		return
	}

	if metadataHint := form.Value["metadata_hint"]; len(metadataHint) > 0 && strings.TrimSpace(metadataHint[0]) != "" {
		var hint map[string]string
		if err := json.Unmarshal([]byte(metadataHint[0]), &hint); err == nil {
			h.state.MergeUserProvided(hint)
		}
	}

	respondOK(c, gin.H{"snapshot": h.state.Snapshot(), "siblings": siblings})
}

// StartConversion implements start_conversion() (§6).
func (h *Handler) StartConversion(c *gin.Context) {
	inputPath := h.state.InputPath()
	if inputPath == "" {
		respondError(c, http.StatusConflict, "INVALID_STATE", errors.New("no input staged"))
		return
	}
	if h.state.Status().IsBlocking() {
		respondError(c, http.StatusConflict, "BUSY", apperrors.ErrBusy)
		return
	}

	siblings := siblingsOf(inputPath)
	if err := h.agent.StartConversion(c.Request.Context(), inputPath, siblings); err != nil {
		writeOrchestratorError(c, err)
		return
	}
	respondOK(c, h.state.Snapshot())
}

func siblingsOf(primary string) []string {
	dir := filepath.Dir(primary)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if p != primary {
			out = append(out, p)
		}
	}
	return out
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat implements chat(message) (§6), routed by the current conversation
// phase per §4.7.2.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}
	if err := h.agent.Chat(c.Request.Context(), req.Message); err != nil {
		writeOrchestratorError(c, err)
		return
	}
	respondOK(c, h.state.Snapshot())
}

type decisionRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// DecideImprovement implements decide_improvement(choice) (§6).
func (h *Handler) DecideImprovement(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}
	if err := h.agent.DecideImprovement(c.Request.Context(), req.Choice); err != nil {
		writeOrchestratorError(c, err)
		return
	}
	respondOK(c, h.state.Snapshot())
}

// DecideRetry implements decide_retry(choice) (§6).
func (h *Handler) DecideRetry(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}
	if err := h.agent.DecideRetry(c.Request.Context(), req.Choice); err != nil {
		writeOrchestratorError(c, err)
		return
	}
	respondOK(c, h.state.Snapshot())
}

// Reset implements reset() (§6): unconditional.
func (h *Handler) Reset(c *gin.Context) {
	h.state.Reset()
	respondOK(c, h.state.Snapshot())
}

// Download implements download(kind) (§6): kind is "nwb" or "report".
func (h *Handler) Download(c *gin.Context) {
	kind := c.Param("kind")

	status := h.state.Status()
	outputReady := h.state.OutputPath() != ""
	if !(status == models.StatusCompleted || (status == models.StatusFailed && outputReady)) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", apperrors.ErrNotFound)
		return
	}

	switch kind {
	case "nwb":
		path := h.state.OutputPath()
		if path == "" {
			respondError(c, http.StatusNotFound, "NOT_FOUND", apperrors.ErrNotFound)
			return
		}
		c.FileAttachment(path, filepath.Base(path))
	case "report":
		report, ok := h.agent.LastReport()
		if !ok {
			respondError(c, http.StatusNotFound, "NOT_FOUND", apperrors.ErrNotFound)
			return
		}
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL", err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "validation_report.json"))
		c.Data(http.StatusOK, "application/json", body)
	default:
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", fmt.Errorf("unknown download kind %q", kind))
	}
}

// writeOrchestratorError maps an *apperrors.OrchestratorError to the §6
// exit-condition codes; any other error surfaces as INTERNAL.
func writeOrchestratorError(c *gin.Context, err error) {
	var oe *apperrors.OrchestratorError
	if !errors.As(err, &oe) {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrBusy):
		respondError(c, http.StatusConflict, "BUSY", err)
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err)
	case oe.Kind == apperrors.Invariant:
		respondError(c, http.StatusInternalServerError, "INTERNAL", err)
	case oe.Kind == apperrors.UserRecoverable:
		respondError(c, http.StatusConflict, "INVALID_STATE", err)
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL", err)
	}
}
