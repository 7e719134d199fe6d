/*
PURPOSE:
  Generates the OpenFOAM case of the expansion channel: copies a case template, renders the
  mesh dictionary for the configured geometry and writes one mass-fraction field per species.

REQUIREMENTS:
  User-specified:
  - Destination is $FOAM_RUN/canal, wiped before the template is copied in.
  - Template comes from $BUILD_WORKSPACE_DIRECTORY/canal_base (or the config).
  - buildrun.sh is made executable when present.
  - 0/<species> is rendered from 0/Y_temp for CH4, N2 and O2; 0/Y_temp is removed afterwards.

  Implementation-discovered:
  - A template is bundled in the binary so a case can be generated without a checkout.
  - Filesystems are injected (go-billy) so generation is testable in memory.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/case.go
  - Uses: internal/foamcase (geometry.go, template.go), internal/config

ERROR HANDLING:
  - Missing template files are returned as errors; chmod failures are logged only.

IMPLEMENTATION RULES:
  - Species are written in name order.
  - Only known ${name} placeholders are substituted.

USAGE:
  g := foamcase.Generator{Template: os.DirFS(dir), Dest: osfs.New(foamRun), Name: "canal", ...}
  err := g.Generate()

SELF-HEALING INSTRUCTIONS:
  - If a field file is missing, check the template contains 0/Y_temp.

RELATED FILES:
  - internal/foamcase/geometry.go
  - internal/foamcase/template/

MAINTENANCE:
  - Add new rendered files to Generate().
*/

package foamcase

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/output"
)

const (
	meshDict     = "system/blockMeshDict"
	speciesField = "0/Y_temp"
	buildScript  = "buildrun.sh"
)

//go:embed all:template
var bundled embed.FS

// DefaultTemplate returns the bundled case template.
func DefaultTemplate() fs.FS {
	sub, err := fs.Sub(bundled, "template")
	if err != nil {
		panic(err)
	}
	return sub
}

// DefaultSpecies are the initial mass fractions of a stoichiometric methane/air mixture.
func DefaultSpecies() map[string]float64 {
	return map[string]float64{
		"CH4": 0.055,
		"N2":  0.724,
		"O2":  0.22,
	}
}

// Generator writes a case from a template.
type Generator struct {
	Template fs.FS
	Dest     billy.Filesystem
	Name     string // case directory inside Dest
	Geometry config.Geometry
	Species  map[string]float64 // empty means DefaultSpecies
}

// NewGenerator builds a Generator from the case configuration.
func NewGenerator(cfg config.CaseConf, template fs.FS, dest billy.Filesystem) *Generator {
	return &Generator{
		Template: template,
		Dest:     dest,
		Name:     cfg.Name,
		Geometry: cfg.Geometry,
		Species:  cfg.Species,
	}
}

// Generate wipes the case directory and writes the case.
func (g *Generator) Generate() error {
	if g.Name == "" {
		return errors.New("case name is required")
	}
	if err := Validate(g.Geometry); err != nil {
		return err
	}

	if err := util.RemoveAll(g.Dest, g.Name); err != nil {
		return fmt.Errorf("failed to clear case directory %s: %w", g.Name, err)
	}
	if err := g.Dest.MkdirAll(g.Name, 0o755); err != nil {
		return fmt.Errorf("failed to create case directory %s: %w", g.Name, err)
	}

	n, err := CopyTree(g.Template, g.Dest, g.Name)
	if err != nil {
		return err
	}
	output.Logger.Info("Template copied", "case", g.Name, "files", n)

	if err := g.renderMesh(); err != nil {
		return err
	}
	if err := g.renderSpecies(); err != nil {
		return err
	}
	return nil
}

func (g *Generator) renderMesh() error {
	text, err := fs.ReadFile(g.Template, meshDict)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", meshDict, err)
	}
	cells := CellCounts(g.Geometry)
	rendered := Render(string(text), MeshVariables(g.Geometry))

	target := path.Join(g.Name, meshDict)
	warnUnresolved(target, rendered)
	if err := util.WriteFile(g.Dest, target, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	output.Logger.Info("Mesh written",
		"file", target,
		"cells_inlet", cells.Inlet,
		"cells_expansion", cells.Expansion,
		"cells_outlet", cells.Outlet,
		"cells_y", cells.Y,
		"cells_z", cells.Z,
	)
	return nil
}

func (g *Generator) renderSpecies() error {
	text, err := fs.ReadFile(g.Template, speciesField)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", speciesField, err)
	}

	species := g.Species
	if len(species) == 0 {
		species = DefaultSpecies()
	}
	names := make([]string, 0, len(species))
	for name := range species {
		names = append(names, name)
	}
	sort.Strings(names)

	dir := path.Dir(speciesField)
	for _, name := range names {
		rendered := Render(string(text), SpeciesVariables(name, species[name]))
		target := path.Join(g.Name, dir, name)
		warnUnresolved(target, rendered)
		if err := util.WriteFile(g.Dest, target, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		output.Logger.Info("Species field written", "file", target, "mass_fraction", species[name])
	}

	tmp := path.Join(g.Name, speciesField)
	if err := g.Dest.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", tmp, err)
	}
	return nil
}

// warnUnresolved logs ${name} placeholders left in a rendered file.
func warnUnresolved(file, rendered string) {
	if left := Placeholders(rendered); len(left) > 0 {
		output.Logger.Warn("Unresolved template placeholders", "file", file, "names", left)
	}
}

// fileMode returns the mode a template file is written with. Build scripts are executable
// whatever mode the template reports (embedded files are read-only).
func fileMode(name string, perm fs.FileMode) fs.FileMode {
	perm |= 0o600
	if path.Base(name) == buildScript {
		perm |= 0o111
	}
	return perm
}

// Install writes the bundled template into dst and returns the number of files written.
func Install(dst billy.Filesystem) (int, error) {
	return CopyTree(DefaultTemplate(), dst, ".")
}

// CopyTree copies every file of src under dir in dst, keeping permission bits, and returns
// the number of files copied. buildrun.sh is always written executable.
func CopyTree(src fs.FS, dst billy.Filesystem, dir string) (int, error) {
	count := 0
	err := fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		target := path.Join(dir, p)
		if d.IsDir() {
			return dst.MkdirAll(target, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := copyFile(src, p, dst, target, fileMode(p, info.Mode().Perm())); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to copy template: %w", err)
	}
	return count, nil
}

func copyFile(src fs.FS, name string, dst billy.Filesystem, target string, perm fs.FileMode) error {
	in, err := src.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := dst.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
