package colour

import (
	"image"

	"github.com/BaSui01/extrudeflow/internal/pool"
)

// Island is a 4-connected region of marked mask pixels.
type Island struct {
	Area   int
	Bounds image.Rectangle
	pixels []int
}

// FindIslands returns every 4-connected region of marked pixels in m, in
// scan order of their first pixel. The fill is iterative so large regions
// cannot exhaust the stack.
func FindIslands(m *image.Gray) []Island {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	var islands []Island
	stack := pool.PixelStack.Get()
	defer func() { pool.PixelStack.Put(stack) }()

	for start := range visited {
		if visited[start] || m.Pix[pixOffset(m, start, w)] == paper.Y {
			continue
		}
		visited[start] = true
		stack = append(stack[:0], start)
		island := Island{Bounds: image.Rect(start%w, start/w, start%w+1, start/w+1)}

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			island.pixels = append(island.pixels, i)
			x, y := i%w, i/w
			island.Bounds = island.Bounds.Union(image.Rect(x, y, x+1, y+1))

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				if n[0] < 0 || n[1] < 0 || n[0] >= w || n[1] >= h {
					continue
				}
				j := n[1]*w + n[0]
				if visited[j] || m.Pix[pixOffset(m, j, w)] == paper.Y {
					continue
				}
				visited[j] = true
				stack = append(stack, j)
			}
		}
		island.Area = len(island.pixels)
		islands = append(islands, island)
	}
	return islands
}

// RemoveIslands clears every island smaller than minArea and returns how
// many were removed.
func RemoveIslands(m *image.Gray, minArea int) int {
	if minArea <= 1 {
		return 0
	}
	w := m.Bounds().Dx()
	removed := 0
	for _, island := range FindIslands(m) {
		if island.Area >= minArea {
			continue
		}
		for _, i := range island.pixels {
			m.Pix[pixOffset(m, i, w)] = paper.Y
		}
		removed++
	}
	return removed
}

func pixOffset(m *image.Gray, i, w int) int {
	return (i/w)*m.Stride + i%w
}
