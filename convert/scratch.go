package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scratch is the directory holding intermediate files of conversions.
type Scratch struct {
	dir    string
	logger *zap.Logger
}

// NewScratch creates dir if needed.
func NewScratch(dir string, logger *zap.Logger) (*Scratch, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{dir: dir, logger: logger.With(zap.String("component", "scratch"))}, nil
}

// Dir returns the scratch root.
func (s *Scratch) Dir() string { return s.dir }

// Space is a uniquely prefixed set of scratch files owned by one operation.
type Space struct {
	scratch *Scratch
	prefix  string

	mu    sync.Mutex
	files []string
}

// Space opens a fresh namespace.
func (s *Scratch) Space() *Space {
	return &Space{scratch: s, prefix: uuid.NewString()}
}

// Path reserves a file name in the namespace. The file is removed by Cleanup.
func (sp *Space) Path(name string) string {
	p := filepath.Join(sp.scratch.dir, sp.prefix+"_"+name)
	sp.mu.Lock()
	sp.files = append(sp.files, p)
	sp.mu.Unlock()
	return p
}

// Write stores data under name and returns its path.
func (sp *Space) Write(name string, data []byte) (string, error) {
	p := sp.Path(name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write scratch file %s: %w", name, err)
	}
	return p, nil
}

// Cleanup removes every reserved file. Failures are logged and ignored.
func (sp *Space) Cleanup() {
	sp.mu.Lock()
	files := sp.files
	sp.files = nil
	sp.mu.Unlock()

	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			sp.scratch.logger.Debug("scratch cleanup failed", zap.String("path", f), zap.Error(err))
		}
	}
}
