/*
PURPOSE:
  Geometry of the expansion channel used by the CFD case: the 26 blockMesh vertices of the
  half domain and the cell counts of its six hex blocks.

REQUIREMENTS:
  User-specified:
  - Channel: inlet 37 mm long and 25 mm wide, 110 mm expansion, 50 mm outlet 63.2 mm wide,
    2 mm high. Smallest cell 0.74 mm.
  - Cell size stays continuous across blocks.

  Implementation-discovered:
  - Symmetry at y = 0, z spans [-h/2, h/2].
  - blockMesh accepts "0" and "%f" coordinates; exact zeros are written as "0".

ARCHITECTURE INTEGRATION:
  - Called by: internal/foamcase/case.go
  - Uses: internal/config.Geometry

ERROR HANDLING:
  - Validate() rejects non-positive lengths.

IMPLEMENTATION RULES:
  - n = max(1, round(length / dx)) for every direction.

USAGE:
  vars := foamcase.MeshVariables(cfg.Case.Geometry)

SELF-HEALING INSTRUCTIONS:
  - If blockMesh reports inverted blocks, compare Vertices() with the hex lists in the template.

RELATED FILES:
  - internal/foamcase/template/system/blockMeshDict

MAINTENANCE:
  - Vertex order is referenced by index from the template; append, never reorder.
*/

package foamcase

import (
	"fmt"
	"math"
	"strings"

	"github.com/daryltucker/flame-speed/internal/config"
)

// Vertex is a blockMesh point in millimetres.
type Vertex struct {
	X, Y, Z float64
}

// String formats the vertex as a blockMesh tuple.
func (v Vertex) String() string {
	return "(" + coord(v.X) + " " + coord(v.Y) + " " + coord(v.Z) + ")"
}

func coord(v float64) string {
	if v == 0 {
		return "0"
	}
	return fmt.Sprintf("%f", v)
}

// Validate checks that every dimension is positive.
func Validate(g config.Geometry) error {
	dims := []struct {
		name  string
		value float64
	}{
		{"height_channel", g.HeightChannel},
		{"length_inlet", g.LengthInlet},
		{"length_expansion", g.LengthExpansion},
		{"length_outlet", g.LengthOutlet},
		{"width_inlet", g.WidthInlet},
		{"width_outlet", g.WidthOutlet},
		{"min_cell_size", g.MinCellSize},
	}
	for _, d := range dims {
		if !(d.value > 0) {
			return fmt.Errorf("geometry.%s must be positive, got %g", d.name, d.value)
		}
	}
	if g.WidthOutlet < g.WidthInlet {
		return fmt.Errorf("geometry.width_outlet (%g) is narrower than width_inlet (%g)", g.WidthOutlet, g.WidthInlet)
	}
	return nil
}

// Vertices returns the 26 vertices of the half domain.
func Vertices(g config.Geometry) []Vertex {
	h := g.HeightChannel * 0.5
	x1 := g.LengthInlet
	x2 := g.LengthInlet + g.LengthExpansion
	x3 := g.LengthInlet + g.LengthExpansion + g.LengthOutlet
	yIn := g.WidthInlet / 2
	yOut := g.WidthOutlet / 2
	ySide := g.WidthOutlet/2 + g.WidthInlet/2

	return []Vertex{
		{0, 0, -h}, // 0
		{0, 0, 0},
		{0, yIn, -h},
		{0, yIn, 0},
		{x1, 0, -h}, // 4
		{x1, 0, 0},
		{x1, yIn, -h},
		{x1, yIn, 0},
		{x2, 0, -h}, // 8
		{x2, 0, 0},
		{x2, yOut, -h},
		{x2, yOut, 0},
		{x3, 0, -h}, // 12
		{x3, 0, 0},
		{x3, yOut, -h},
		{x3, yOut, 0},
		{x2, ySide, -h}, // 16
		{x2, ySide, 0},
		{x3, ySide, -h},
		{x3, ySide, 0},
		{x2, 0, h}, // 20
		{x2, yOut, h},
		{x3, 0, h},
		{x3, yOut, h},
		{x2, ySide, h}, // 24
		{x3, ySide, h},
	}
}

// Cells holds the cell counts of the mesh.
type Cells struct {
	Inlet, Expansion, Outlet int // along x
	Y, Z                     int
}

// CellCounts keeps the cell size close to MinCellSize in every block.
func CellCounts(g config.Geometry) Cells {
	dx := g.MinCellSize
	n := func(length float64) int {
		return max(1, int(math.Round(length/dx)))
	}
	return Cells{
		Inlet:     n(g.LengthInlet),
		Expansion: n(g.LengthExpansion),
		Outlet:    n(g.LengthOutlet),
		Y:         n(g.WidthInlet * 0.5),
		Z:         n(g.HeightChannel * 0.5),
	}
}

// Blocks returns the "nx ny nz" size of blocks 1 to 6.
func (c Cells) Blocks() [6]string {
	size := func(nx int) string {
		return fmt.Sprintf("%d %d %d", nx, c.Y, c.Z)
	}
	return [6]string{
		size(c.Inlet),
		size(c.Expansion),
		size(c.Outlet),
		size(c.Outlet),
		size(c.Outlet),
		size(c.Outlet),
	}
}

// VertexList renders vertices one per line, indented for the blockMeshDict vertices list.
func VertexList(vs []Vertex) string {
	lines := make([]string, len(vs))
	for i, v := range vs {
		lines[i] = "    " + v.String()
	}
	return strings.Join(lines, "\n")
}

// MeshVariables returns the blockMeshDict placeholders for a geometry.
func MeshVariables(g config.Geometry) map[string]string {
	vars := map[string]string{
		"vertex_list": VertexList(Vertices(g)),
	}
	for i, b := range CellCounts(g).Blocks() {
		vars[fmt.Sprintf("mesh_sizes_block%d", i+1)] = b
	}
	return vars
}
