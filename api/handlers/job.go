package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/BaSui01/extrudeflow/jobs"
	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🧱 任务接口 Handler
// =============================================================================

// JobService 任务调度能力，由 *jobs.Manager 实现
type JobService interface {
	Submit(ctx context.Context, job *jobs.Job) error
	Pending() []string
	Workers() map[int]string
	Completed(ctx context.Context) (map[string]jobs.Summary, error)
	Download(ctx context.Context, id string) (jobs.Result, error)
	Config() jobs.PoolConfig
	SetConfig(cfg jobs.PoolConfig) error
}

// JobHandler 任务接口处理器
type JobHandler struct {
	jobs   JobService
	logger *zap.Logger
}

// NewJobHandler 创建任务处理器
func NewJobHandler(svc JobService, logger *zap.Logger) *JobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{jobs: svc, logger: logger.With(zap.String("handler", "job"))}
}

// HandleSubmit 处理 POST /job/submit/。校验失败时结果表中同样记录一条失败结果。
func (h *JobHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var job jobs.Job
	if err := DecodeJSONBody(w, r, &job, h.logger); err != nil {
		return
	}
	if err := h.jobs.Submit(r.Context(), &job); err != nil {
		WriteError(w, jobError(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleCurrent 处理 GET /job/current/，返回排队任务的文件名
func (h *JobHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.jobs.Pending())
}

// HandleComplete 处理 GET /job/complete/，返回不含产物的结果摘要
func (h *JobHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	sums, err := h.jobs.Completed(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, sums)
}

// HandleWorkers 处理 GET /job/workers/
func (h *JobHandler) HandleWorkers(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.jobs.Workers())
}

// HandleDownload 处理 GET /job/download/?id=。结果只能取一次，
// 失败结果以 500 返回其摘要。
func (h *JobHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteErrorMessage(w, types.ErrValidation, "must pass id", h.logger)
		return
	}

	res, err := h.jobs.Download(r.Context(), id)
	if err != nil {
		WriteError(w, jobError(err), h.logger)
		return
	}
	if !res.OK {
		WriteJSON(w, http.StatusInternalServerError, res.Summary())
		return
	}

	w.Header().Set("Content-Type", ContentType(res.Filename))
	if res.Filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Payload()); err != nil {
		h.logger.Warn("download write failed", zap.String("id", id), zap.Error(err))
	}
}

// HandleGetConfig 处理 GET /job/config/
func (h *JobHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.jobs.Config())
}

// HandleSetConfig 处理 POST /job/config/，新边界在下一个伸缩周期生效
func (h *JobHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg jobs.PoolConfig
	if err := DecodeJSONBody(w, r, &cfg, h.logger); err != nil {
		return
	}
	if err := h.jobs.SetConfig(cfg); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.logger.Info("worker pool bounds updated",
		zap.Uint("min", cfg.Min),
		zap.Uint("max", cfg.Max),
		zap.Uint("ratio", cfg.Ratio),
	)
	WriteJSON(w, http.StatusOK, cfg)
}

// ContentType 按文件扩展名推断下载的 Content-Type
func ContentType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	switch ext {
	case "":
		return "application/octet-stream"
	case "svg":
		return "image/svg+xml"
	default:
		return "model/" + ext
	}
}

func jobError(err error) error {
	switch {
	case errors.Is(err, jobs.ErrResultNotFound):
		return types.NewError(types.ErrNotFound, "no completed job with that id").WithCause(err)
	case errors.Is(err, jobs.ErrQueueClosed), errors.Is(err, jobs.ErrNotStarted):
		return types.NewError(types.ErrUnavailable, "job queue is not accepting work").WithCause(err)
	}
	return err
}
