// Package colour classifies raster pixels against a named palette and splits
// images into per-colour masks.
package colour

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
)

// BackgroundChannel names the aggregate mask of every non-background pixel.
const BackgroundChannel = "background"

// DefaultBackground lists the hex values treated as background.
var DefaultBackground = []string{"fefefe", "ffffff"}

// Channel is a single-colour mask: white canvas, black where the colour occurs.
type Channel struct {
	Name string
	Mask *image.Gray
}

// Empty reports whether the mask carries no marked pixel.
func (c Channel) Empty() bool {
	return !HasInk(c.Mask)
}

// CacheObserver is notified on every ClosestMatch lookup.
type CacheObserver func(hit bool)

// Option configures a Classifier.
type Option func(*Classifier)

// WithPalette replaces the reference palette.
func WithPalette(p Palette) Option {
	return func(c *Classifier) { c.palette = p }
}

// WithBackground replaces the background hex set.
func WithBackground(hexes ...string) Option {
	return func(c *Classifier) {
		c.background = make(map[uint32]struct{}, len(hexes))
		for _, h := range hexes {
			if r, g, b, err := parseHex(h); err == nil {
				c.background[pack(r, g, b)] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheObserver registers a hook for cache hit/miss accounting.
func WithCacheObserver(fn CacheObserver) Option {
	return func(c *Classifier) { c.observe = fn }
}

// Classifier maps pixels to their nearest palette entry. Matches are cached
// for the lifetime of the classifier; safe for concurrent use.
type Classifier struct {
	palette    Palette
	background map[uint32]struct{}
	logger     *zap.Logger
	observe    CacheObserver

	mu    sync.RWMutex
	cache map[uint32]string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewClassifier creates a classifier over the OpenSCAD palette.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		palette: OpenSCAD,
		logger:  zap.NewNop(),
		cache:   make(map[uint32]string),
	}
	WithBackground(DefaultBackground...)(c)
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "colour_classifier"))
	return c
}

// Palette returns the reference palette.
func (c *Classifier) Palette() Palette { return c.palette }

// ClosestMatch returns the palette entry name nearest to hex by Manhattan
// distance over RGB. The first entry wins ties.
func (c *Classifier) ClosestMatch(hex string) (string, error) {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return "", types.ValidationError(fmt.Sprintf("invalid colour %q", hex)).WithCause(err)
	}
	return c.match(r, g, b), nil
}

// CacheStats reports cache hits and misses since creation.
func (c *Classifier) CacheStats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Classifier) match(r, g, b uint8) string {
	key := pack(r, g, b)

	c.mu.RLock()
	name, ok := c.cache[key]
	c.mu.RUnlock()
	c.record(ok)
	if ok {
		return name
	}

	best := -1
	for _, e := range c.palette {
		d := absDiff(r, e.R) + absDiff(g, e.G) + absDiff(b, e.B)
		if best < 0 || d < best {
			best = d
			name = e.Name
		}
	}

	c.mu.Lock()
	c.cache[key] = name
	c.mu.Unlock()
	return name
}

func (c *Classifier) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observe != nil {
		c.observe(hit)
	}
}

// IsBackground reports whether the pixel is excluded from every channel.
func (c *Classifier) IsBackground(px color.NRGBA) bool {
	if px.A == 0 {
		return true
	}
	_, ok := c.background[pack(px.R, px.G, px.B)]
	return ok
}

// Separate splits img into one mask per matched palette colour. Background
// pixels are skipped; with withBackground an extra "background" channel marks
// every pixel that is not background. Channels are returned sorted by name.
func (c *Classifier) Separate(ctx context.Context, img image.Image, withBackground bool) ([]Channel, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h

	canvases := make(map[string]*image.Gray)
	var bg *image.Gray
	if withBackground {
		bg = NewCanvas(w, h)
	}

	lastReport := time.Now()
	start := lastReport
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			px := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			if c.IsBackground(px) {
				continue
			}
			name := c.match(px.R, px.G, px.B)
			canvas, ok := canvases[name]
			if !ok {
				canvas = NewCanvas(w, h)
				canvases[name] = canvas
			}
			canvas.SetGray(x, y, ink)
			if bg != nil {
				bg.SetGray(x, y, ink)
			}
		}
		if now := time.Now(); now.Sub(lastReport) >= time.Second {
			lastReport = now
			done := (y + 1) * w
			elapsed := now.Sub(start)
			eta := time.Duration(float64(elapsed) / float64(done) * float64(total-done))
			c.logger.Debug("separating colours",
				zap.Int("processed", done),
				zap.Int("total", total),
				zap.Float64("percent", float64(done)*100/float64(total)),
				zap.Duration("eta", eta),
			)
		}
	}

	channels := make([]Channel, 0, len(canvases)+1)
	for name, mask := range canvases {
		channels = append(channels, Channel{Name: name, Mask: mask})
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })
	if bg != nil {
		channels = append(channels, Channel{Name: BackgroundChannel, Mask: bg})
	}
	return channels, nil
}

// Identify maps every distinct non-background hex in img to its palette name.
func (c *Classifier) Identify(img image.Image) map[string]string {
	bounds := img.Bounds()
	out := make(map[string]string)
	seen := make(map[uint32]struct{})
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.IsBackground(px) {
				continue
			}
			key := pack(px.R, px.G, px.B)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out[formatHex(px.R, px.G, px.B)] = c.match(px.R, px.G, px.B)
		}
	}
	return out
}

// SanitizeName turns a colour name into an identifier-safe token.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func pack(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func formatHex(r, g, b uint8) string {
	return fmt.Sprintf("%02x%02x%02x", r, g, b)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
