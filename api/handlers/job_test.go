package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/BaSui01/extrudeflow/jobs"
	"github.com/BaSui01/extrudeflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

type fakeJobs struct {
	mu        sync.Mutex
	submitted []*jobs.Job
	submitErr error
	pending   []string
	workers   map[int]string
	results   map[string]jobs.Result
	cfg       jobs.PoolConfig
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		workers: map[int]string{},
		results: map[string]jobs.Result{},
		cfg:     jobs.PoolConfig{Min: 1, Max: 4, Ratio: 2},
	}
}

func (f *fakeJobs) Submit(_ context.Context, job *jobs.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, job)
	return nil
}

func (f *fakeJobs) Pending() []string { return f.pending }

func (f *fakeJobs) Workers() map[int]string { return f.workers }

func (f *fakeJobs) Config() jobs.PoolConfig { return f.cfg }

func (f *fakeJobs) Completed(context.Context) (map[string]jobs.Summary, error) {
	out := make(map[string]jobs.Summary, len(f.results))
	for id, r := range f.results {
		out[id] = r.Summary()
	}
	return out, nil
}

func (f *fakeJobs) Download(_ context.Context, id string) (jobs.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[id]
	if !ok {
		return jobs.Result{}, jobs.ErrResultNotFound
	}
	delete(f.results, id)
	return r, nil
}

func (f *fakeJobs) SetConfig(cfg jobs.PoolConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f.cfg = cfg
	return nil
}

// =============================================================================
// 🧪 JobHandler 测试
// =============================================================================

func TestJobHandler_Submit(t *testing.T) {
	svc := newFakeJobs()
	h := NewJobHandler(svc, nil)

	body := `{"type":"3mf","meta":{"filename":"logo.3mf","x":60,"y":40,"z":2},"files":["aGVsbG8="]}`
	w := httptest.NewRecorder()
	h.HandleSubmit(w, httptest.NewRequest(http.MethodPost, "/job/submit/", strings.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, svc.submitted, 1)
	job := svc.submitted[0]
	assert.Equal(t, jobs.Type3MF, job.Type)
	assert.Equal(t, "logo.3mf", job.Filename())
	assert.Equal(t, []string{"aGVsbG8="}, job.Files)
	assert.False(t, job.Meta.Has("blackThickness"))
}

func TestJobHandler_SubmitRejected(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{"validation", types.ValidationError("'meta/filename' key missing"), http.StatusBadRequest, types.ErrValidation},
		{"queue closed", jobs.ErrQueueClosed, http.StatusServiceUnavailable, types.ErrUnavailable},
		{"not started", jobs.ErrNotStarted, http.StatusServiceUnavailable, types.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeJobs()
			svc.submitErr = tt.err
			h := NewJobHandler(svc, nil)

			w := httptest.NewRecorder()
			h.HandleSubmit(w, httptest.NewRequest(http.MethodPost, "/job/submit/", strings.NewReader(`{"type":"svg"}`)))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
		})
	}
}

func TestJobHandler_SubmitBadJSON(t *testing.T) {
	svc := newFakeJobs()
	h := NewJobHandler(svc, nil)

	w := httptest.NewRecorder()
	h.HandleSubmit(w, httptest.NewRequest(http.MethodPost, "/job/submit/", strings.NewReader(`{"type":`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.submitted)
}

func TestJobHandler_Introspection(t *testing.T) {
	svc := newFakeJobs()
	svc.pending = []string{"a.png", "b.png"}
	svc.workers = map[int]string{0: jobs.StatusIdle, 1: "svg / a.png"}
	svc.results["r1"] = jobs.Result{OK: true, Filename: "cat.svg", Text: "<svg/>"}
	svc.results["r2"] = jobs.Result{OK: false, Filename: "Missing", Error: "'meta/filename' key missing"}
	h := NewJobHandler(svc, nil)

	t.Run("current", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleCurrent(w, httptest.NewRequest(http.MethodGet, "/job/current/", nil))
		assert.JSONEq(t, `["a.png","b.png"]`, w.Body.String())
	})

	t.Run("workers", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleWorkers(w, httptest.NewRequest(http.MethodGet, "/job/workers/", nil))
		assert.JSONEq(t, `{"0":"idle","1":"svg / a.png"}`, w.Body.String())
	})

	t.Run("complete", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleComplete(w, httptest.NewRequest(http.MethodGet, "/job/complete/", nil))
		assert.JSONEq(t, `{
			"r1":{"ok":true,"filename":"cat.svg"},
			"r2":{"ok":false,"filename":"Missing","error":"'meta/filename' key missing"}
		}`, w.Body.String())
	})
}

func TestJobHandler_Download(t *testing.T) {
	svc := newFakeJobs()
	svc.results["svg"] = jobs.Result{OK: true, Filename: "cat.svg", Text: "<svg/>"}
	svc.results["model"] = jobs.Result{OK: true, Filename: "logo.3mf", File: []byte("PK\x03\x04")}
	svc.results["bad"] = jobs.Result{OK: false, Filename: "logo.3mf", Error: "openscad failure"}
	h := NewJobHandler(svc, nil)

	get := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.HandleDownload(w, httptest.NewRequest(http.MethodGet, "/job/download/?id="+id, nil))
		return w
	}

	w := get("svg")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=cat.svg`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "<svg/>", w.Body.String())

	w = get("model")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "model/3mf", w.Header().Get("Content-Type"))
	assert.Equal(t, "PK\x03\x04", w.Body.String())

	w = get("bad")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"filename":"logo.3mf","error":"openscad failure"}`, w.Body.String())

	// 结果只能取一次
	w = get("svg")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get("")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must pass id")
}

func TestJobHandler_Config(t *testing.T) {
	svc := newFakeJobs()
	h := NewJobHandler(svc, nil)

	w := httptest.NewRecorder()
	h.HandleSetConfig(w, httptest.NewRequest(http.MethodPost, "/job/config/", strings.NewReader(`{"min":2,"max":8,"ratio":3}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jobs.PoolConfig{Min: 2, Max: 8, Ratio: 3}, svc.cfg)

	w = httptest.NewRecorder()
	h.HandleGetConfig(w, httptest.NewRequest(http.MethodGet, "/job/config/", nil))
	assert.JSONEq(t, `{"min":2,"max":8,"ratio":3}`, w.Body.String())

	w = httptest.NewRecorder()
	h.HandleSetConfig(w, httptest.NewRequest(http.MethodPost, "/job/config/", strings.NewReader(`{"min":5,"max":1,"ratio":1}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, jobs.PoolConfig{Min: 2, Max: 8, Ratio: 3}, svc.cfg)
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"cat.svg":   "image/svg+xml",
		"CAT.SVG":   "image/svg+xml",
		"logo.3mf":  "model/3mf",
		"part.stl":  "model/stl",
		"a.b.stl":   "model/stl",
		"noext":     "application/octet-stream",
		"":          "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
}
