// Package scene serializes placed parts into OpenSCAD scripts.
package scene

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/types"
)

// Mode selects the serialization layout.
type Mode int

const (
	// ModeFlat places every part on the bed at z=0, one module per colour.
	ModeFlat Mode = iota
	// ModeBacked places parts at explicit heights and thicknesses. Ids follow
	// render order.
	ModeBacked
)

// Part is one placed solid.
type Part struct {
	// Colour identifies the part; it becomes part of the module name.
	Colour string
	// Display is the color() argument. Defaults to Colour.
	Display string
	// Source is the path of the solid to import.
	Source    string
	OffsetX   float64
	OffsetY   float64
	OffsetZ   float64
	Thickness float64
	Area      int
}

// Builder accumulates parts and renders them once.
type Builder struct {
	mode  Mode
	parts []Part
}

// NewBuilder creates an empty builder.
func NewBuilder(mode Mode) *Builder {
	return &Builder{mode: mode}
}

// Add appends a part.
func (b *Builder) Add(p Part) *Builder {
	if p.Display == "" {
		p.Display = p.Colour
	}
	b.parts = append(b.parts, p)
	return b
}

// Len returns the number of parts added.
func (b *Builder) Len() int { return len(b.parts) }

// Parts returns the parts in render order: ascending area, ties by colour.
func (b *Builder) Parts() []Part {
	parts := append([]Part(nil), b.parts...)
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].Area != parts[j].Area {
			return parts[i].Area < parts[j].Area
		}
		return parts[i].Colour < parts[j].Colour
	})
	return parts
}

// Build renders the scene script.
func (b *Builder) Build() (string, error) {
	if len(b.parts) == 0 {
		return "", types.EmptyInputError("scene has no parts")
	}
	parts := b.Parts()

	names := make([]string, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for i, p := range parts {
		name := "part_" + colour.SanitizeName(p.Colour)
		if b.mode == ModeBacked {
			name += "_" + strconv.Itoa(i)
		}
		if _, dup := seen[name]; dup {
			return "", types.NewError(types.ErrInternal, fmt.Sprintf("duplicate scene part %q", p.Colour))
		}
		seen[name] = struct{}{}
		names[i] = name
	}

	var sb strings.Builder
	sb.WriteString("/* Define colours */\n")
	for i, p := range parts {
		fmt.Fprintf(&sb, "module %s() {\n", names[i])
		switch b.mode {
		case ModeBacked:
			fmt.Fprintf(&sb, "  color(%s) translate([%s, %s, %s]) resize([0, 0, %s]) import(%s);\n",
				quote(p.Display), num(p.OffsetX), num(p.OffsetY), num(p.OffsetZ), num(p.Thickness), quote(p.Source))
		default:
			fmt.Fprintf(&sb, "  color(%s) translate([%s, %s, 0]) import(%s);\n",
				quote(p.Display), num(p.OffsetX), num(p.OffsetY), quote(p.Source))
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\n/* Main module */\nmodule combined_model() {\n")
	for _, name := range names {
		sb.WriteString(name + "();\n")
	}
	sb.WriteString("}\n\n/* Render the model */\ncombined_model();\n")
	return sb.String(), nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
