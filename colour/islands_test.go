package colour

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maskFrom(rows ...string) *image.Gray {
	m := NewCanvas(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				m.SetGray(x, y, ink)
			}
		}
	}
	return m
}

func TestFindIslands(t *testing.T) {
	m := maskFrom(
		"##..#",
		"#...#",
		".....",
		"..#.#",
	)
	islands := FindIslands(m)
	require.Len(t, islands, 4)
	assert.Equal(t, 3, islands[0].Area)
	assert.Equal(t, image.Rect(0, 0, 2, 2), islands[0].Bounds)
	assert.Equal(t, 2, islands[1].Area)
	assert.Equal(t, 1, islands[2].Area)
	assert.Equal(t, 1, islands[3].Area)
}

func TestFindIslands_DiagonalIsNotConnected(t *testing.T) {
	m := maskFrom(
		"#.",
		".#",
	)
	assert.Len(t, FindIslands(m), 2)
}

func TestFindIslands_LargeRegion(t *testing.T) {
	m := NewCanvas(400, 400)
	for i := range m.Pix {
		m.Pix[i] = ink.Y
	}
	islands := FindIslands(m)
	require.Len(t, islands, 1)
	assert.Equal(t, 400*400, islands[0].Area)
}

func TestRemoveIslands(t *testing.T) {
	m := maskFrom(
		"###.#",
		"###..",
		".....",
		"....#",
	)
	removed := RemoveIslands(m, 2)
	assert.Equal(t, 2, removed)
	assert.True(t, Marked(m, 0, 0))
	assert.False(t, Marked(m, 4, 0))
	assert.False(t, Marked(m, 4, 3))

	assert.Equal(t, 0, RemoveIslands(m, 1))
	assert.True(t, HasInk(m))
}
