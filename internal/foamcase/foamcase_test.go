package foamcase

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/output"
)

func defaultGeometry() config.Geometry {
	return config.DefaultConfig().Case.Geometry
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCellCounts(t *testing.T) {
	c := CellCounts(defaultGeometry())
	assert.Equal(t, Cells{Inlet: 50, Expansion: 149, Outlet: 68, Y: 17, Z: 1}, c)
	assert.Equal(t, [6]string{"50 17 1", "149 17 1", "68 17 1", "68 17 1", "68 17 1", "68 17 1"}, c.Blocks())
}

func TestCellCountsNeverZero(t *testing.T) {
	g := defaultGeometry()
	g.MinCellSize = 1000
	c := CellCounts(g)
	assert.Equal(t, Cells{Inlet: 1, Expansion: 1, Outlet: 1, Y: 1, Z: 1}, c)
}

func TestVertices(t *testing.T) {
	vs := Vertices(defaultGeometry())
	require.Len(t, vs, 26)

	assert.Equal(t, "(0 0 -1.000000)", vs[0].String())
	assert.Equal(t, "(0 0 0)", vs[1].String())
	assert.Equal(t, "(0 12.500000 0)", vs[3].String())
	assert.Equal(t, "(147.000000 31.600000 -1.000000)", vs[10].String())
	assert.Equal(t, "(197.000000 44.100000 1.000000)", vs[25].String())
}

func TestValidateGeometry(t *testing.T) {
	require.NoError(t, Validate(defaultGeometry()))

	g := defaultGeometry()
	g.MinCellSize = 0
	assert.Error(t, Validate(g))

	g = defaultGeometry()
	g.WidthOutlet = 10
	assert.Error(t, Validate(g))
}

func TestRenderKnownPlaceholdersOnly(t *testing.T) {
	text := "object ${MOLECULE}; value $internalField; other ${UNKNOWN}; again ${MOLECULE}"
	got := Render(text, map[string]string{"MOLECULE": "O2"})
	assert.Equal(t, "object O2; value $internalField; other ${UNKNOWN}; again O2", got)
}

func TestPlaceholders(t *testing.T) {
	text, err := fs.ReadFile(DefaultTemplate(), "system/blockMeshDict")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"mesh_sizes_block1", "mesh_sizes_block2", "mesh_sizes_block3",
		"mesh_sizes_block4", "mesh_sizes_block5", "mesh_sizes_block6",
		"vertex_list",
	}, Placeholders(string(text)))
}

func TestSpeciesVariables(t *testing.T) {
	vars := SpeciesVariables("N2", 0.724)
	assert.Equal(t, "N2", vars["MOLECULE"])
	assert.Equal(t, "0.724000", vars["INITIAL_CONCENTRATION"])
	assert.Equal(t, "0.724000", vars["OUTPUT_CONCENTRATION"])
}

func TestGenerateCase(t *testing.T) {
	dest := memfs.New()
	require.NoError(t, util.WriteFile(dest, "canal/stale.txt", []byte("old run"), 0o644))

	g := NewGenerator(config.DefaultConfig().Case, DefaultTemplate(), dest)
	require.NoError(t, g.Generate())

	_, err := dest.Stat("canal/stale.txt")
	assert.True(t, os.IsNotExist(err), "case directory is wiped")

	_, err = dest.Stat("canal/0/Y_temp")
	assert.True(t, os.IsNotExist(err), "species template is removed")

	for _, sp := range []string{"CH4", "N2", "O2"} {
		_, err := dest.Stat("canal/0/" + sp)
		assert.NoError(t, err, sp)
	}

	mesh, err := util.ReadFile(dest, "canal/system/blockMeshDict")
	require.NoError(t, err)
	assert.NotContains(t, string(mesh), "${")
	golden(t).Assert(t, "blockMeshDict", mesh)

	ch4, err := util.ReadFile(dest, "canal/0/CH4")
	require.NoError(t, err)
	assert.Contains(t, string(ch4), "$internalField")
	golden(t).Assert(t, "CH4", ch4)

	o2, err := util.ReadFile(dest, "canal/0/O2")
	require.NoError(t, err)
	assert.Contains(t, string(o2), "uniform 0.220000;")

	ctrl, err := util.ReadFile(dest, "canal/system/controlDict")
	require.NoError(t, err)
	assert.Contains(t, string(ctrl), "reactingFoam")
}

func TestGenerateCustomSpecies(t *testing.T) {
	dest := memfs.New()
	cfg := config.DefaultConfig().Case
	cfg.Species = map[string]float64{"H2": 0.028}

	require.NoError(t, NewGenerator(cfg, DefaultTemplate(), dest).Generate())

	h2, err := util.ReadFile(dest, "canal/0/H2")
	require.NoError(t, err)
	assert.Contains(t, string(h2), "uniform 0.028000;")

	_, err = dest.Stat("canal/0/CH4")
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateMakesBuildScriptExecutable(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(config.DefaultConfig().Case, DefaultTemplate(), osfs.New(dir))
	require.NoError(t, g.Generate())

	fi, err := os.Stat(filepath.Join(dir, "canal", "buildrun.sh"))
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode().Perm()&0o111)
}

func TestInstallWritesExecutableScript(t *testing.T) {
	dir := t.TempDir()
	_, err := Install(osfs.New(dir))
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(dir, "buildrun.sh"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o111), fi.Mode().Perm()&0o111)

	fi, err = os.Stat(filepath.Join(dir, "system", "blockMeshDict"))
	require.NoError(t, err)
	assert.Zero(t, fi.Mode().Perm()&0o111)
}

func TestFileMode(t *testing.T) {
	assert.Equal(t, fs.FileMode(0o755), fileMode("canal/buildrun.sh", 0o444))
	assert.Equal(t, fs.FileMode(0o644), fileMode("canal/system/controlDict", 0o444))
	assert.Equal(t, fs.FileMode(0o600), fileMode("0/Y_temp", 0))
}

func TestGenerateWarnsOnUnresolvedPlaceholders(t *testing.T) {
	var logs bytes.Buffer
	prev := output.Logger
	output.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { output.SetLogger(prev) })

	tmpl := fstest.MapFS{
		"system/blockMeshDict": &fstest.MapFile{Data: []byte("vertices (${vertex_list});\nscale ${scale};\n")},
		"0/Y_temp":             &fstest.MapFile{Data: []byte("object ${MOLECULE};\n")},
	}
	require.NoError(t, NewGenerator(config.DefaultConfig().Case, tmpl, memfs.New()).Generate())

	assert.Contains(t, logs.String(), "Unresolved template placeholders")
	assert.Contains(t, logs.String(), "file=canal/system/blockMeshDict")
	assert.Contains(t, logs.String(), "scale")
	assert.NotContains(t, logs.String(), "file=canal/0/CH4")
}

func TestGenerateMissingTemplateFile(t *testing.T) {
	tmpl := fstest.MapFS{
		"system/blockMeshDict": &fstest.MapFile{Data: []byte("vertices (${vertex_list});\n")},
	}
	err := NewGenerator(config.DefaultConfig().Case, tmpl, memfs.New()).Generate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0/Y_temp")
}

func TestCopyTree(t *testing.T) {
	tmpl := fstest.MapFS{
		"a.txt":     &fstest.MapFile{Data: []byte("a")},
		"sub/b.txt": &fstest.MapFile{Data: []byte("b")},
	}
	dest := memfs.New()
	n, err := CopyTree(tmpl, dest, "case")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := util.ReadFile(dest, "case/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", strings.TrimSpace(string(data)))
}

func TestInstall(t *testing.T) {
	dest := memfs.New()
	n, err := Install(dest)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, f := range []string{"system/blockMeshDict", "system/controlDict", "0/Y_temp", "buildrun.sh"} {
		_, err := dest.Stat(f)
		assert.NoError(t, err, f)
	}
}
