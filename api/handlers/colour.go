package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
)

// ColourIdentifier 将图像中的每种颜色映射到调色板名称
type ColourIdentifier interface {
	Identify(ctx context.Context, data []byte) (map[string]string, error)
}

// ColourHandler 颜色识别处理器
type ColourHandler struct {
	identifier ColourIdentifier
	logger     *zap.Logger
}

// NewColourHandler 创建颜色识别处理器
func NewColourHandler(identifier ColourIdentifier, logger *zap.Logger) *ColourHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColourHandler{identifier: identifier, logger: logger.With(zap.String("handler", "colour"))}
}

// HandleIdentify 处理 POST /colouridentify/，请求体为原始图像字节
func (h *ColourHandler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, types.ValidationError("request body too large").WithCause(err), h.logger)
			return
		}
		WriteError(w, types.ValidationError("failed to read request body").WithCause(err), h.logger)
		return
	}
	if len(data) == 0 {
		WriteErrorMessage(w, types.ErrEmptyInput, "request body is empty", h.logger)
		return
	}

	colours, err := h.identifier.Identify(r.Context(), data)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, colours)
}
