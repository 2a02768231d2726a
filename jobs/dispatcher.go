package jobs

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/BaSui01/extrudeflow/convert"
	"github.com/BaSui01/extrudeflow/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// missingFilename is reported for jobs submitted without meta.filename.
const missingFilename = "Missing"

// Dispatcher validates jobs and routes them to their converter. Every
// failure is turned into an unsuccessful Result.
type Dispatcher struct {
	converters map[Type]convert.Converter
	logger     *zap.Logger
	metrics    Observer
	tracer     trace.Tracer
}

// NewDispatcher creates a dispatcher over the given converter registry.
func NewDispatcher(converters map[string]convert.Converter, logger *zap.Logger, metrics Observer) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopObserver{}
	}
	reg := make(map[Type]convert.Converter, len(converters))
	for name, c := range converters {
		reg[Type(name)] = c
	}
	return &Dispatcher{
		converters: reg,
		logger:     logger.With(zap.String("component", "dispatcher")),
		metrics:    metrics,
		tracer:     otel.Tracer("github.com/BaSui01/extrudeflow/jobs"),
	}
}

// Types lists the registered conversion types.
func (d *Dispatcher) Types() []Type {
	out := make([]Type, 0, len(d.converters))
	for t := range d.converters {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks the job shape. Checks run in a fixed order and the first
// failure is reported.
func (d *Dispatcher) Validate(job *Job) error {
	conv, ok := d.converters[job.Type]
	if !ok {
		return types.NewError(types.ErrUnknownType, "type is not a valid converter")
	}
	if job.Meta == nil {
		return types.ValidationError("'meta' key missing")
	}
	if job.Meta.Filename == nil {
		return types.ValidationError("'meta/filename' key missing")
	}
	if job.Files == nil {
		return types.ValidationError("'files' key missing")
	}
	if len(job.Files) == 0 {
		return types.ValidationError("'files' key empty")
	}
	for _, key := range conv.Required() {
		if !job.Meta.Has(key) {
			return types.ValidationError(fmt.Sprintf("'meta/%s' key missing", key))
		}
	}
	return nil
}

// Dispatch runs job to completion and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, job *Job) (res Result) {
	filename := job.Filename()
	if job.Meta == nil || job.Meta.Filename == nil {
		filename = missingFilename
	}
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "job.dispatch", trace.WithAttributes(
		attribute.String("job.type", string(job.Type)),
		attribute.String("job.filename", filename),
		attribute.Int("job.files", len(job.Files)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("converter panicked",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			res = Failed(filename, types.NewError(types.ErrInternal, "internal error"))
		}
		if !res.OK {
			span.SetStatus(codes.Error, res.Error)
		}
		d.metrics.JobFinished(string(job.Type), res.OK, time.Since(start))
	}()

	if err := d.Validate(job); err != nil {
		return Failed(filename, err)
	}

	req, err := decode(job)
	if err != nil {
		return Failed(filename, err)
	}

	d.logger.Info("job started", zap.String("type", string(job.Type)), zap.String("filename", filename))
	out, err := d.converters[job.Type].Convert(ctx, req)
	if err != nil {
		span.RecordError(err)
		d.logger.Warn("job failed",
			zap.String("type", string(job.Type)),
			zap.String("filename", filename),
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Error(err),
		)
		return Failed(filename, err)
	}

	d.logger.Info("job finished",
		zap.String("type", string(job.Type)),
		zap.String("filename", filename),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{OK: true, File: out.File, Text: out.Text, Filename: filename}
}

// Failed builds an unsuccessful result carrying err's user-facing message.
func Failed(filename string, err error) Result {
	return Result{OK: false, Filename: filename, Error: types.Message(err)}
}

func decode(job *Job) (convert.Request, error) {
	files := make([][]byte, len(job.Files))
	for i, f := range job.Files {
		data, err := base64.StdEncoding.DecodeString(f)
		if err != nil {
			return convert.Request{}, types.ValidationError(fmt.Sprintf("'files' entry %d is not valid base64", i)).WithCause(err)
		}
		files[i] = data
	}
	m := job.Meta
	return convert.Request{
		Filename:       job.Filename(),
		Files:          files,
		X:              float(m.X),
		Y:              float(m.Y),
		Z:              float(m.Z),
		BlackThickness: float(m.BlackThickness),
		Colours:        integer(m.Colours),
		Reduce:         str(m.Reduce),
		MinIsland:      integer(m.MinIsland),
	}, nil
}
