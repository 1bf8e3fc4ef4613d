// Command meshrefine reads a tetrahedral mesh file (gmsh or gambit formats,
// via the gocfd readers), runs a number of uniform longest-edge bisection
// passes over it, and reports the mesh sizes after each pass.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"github.com/notargets/gocfd/utils"
	"github.com/notargets/meshadapt/mesh"
	"github.com/notargets/meshadapt/refine"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of a refinement run.
type Config struct {
	// Mesh is the path of the input mesh file. All elements must be
	// tetrahedra.
	Mesh string `yaml:"mesh"`

	// Passes is the number of uniform refinement passes to run.
	Passes int `yaml:"passes"`

	// ParentFacets requests parent-facet provenance on each pass.
	ParentFacets bool `yaml:"parent_facets"`
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Passes: 1}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Mesh == "" {
		return nil, fmt.Errorf("config %s: mesh file not set", path)
	}
	if cfg.Passes < 1 {
		return nil, fmt.Errorf("config %s: passes must be positive, got %d", path, cfg.Passes)
	}
	return cfg, nil
}

// loadTetMesh reads a mesh file and converts it to the refinement mesh
// representation. Global vertex numbering is the file's own 0-based
// numbering.
func loadTetMesh(path string) (*mesh.Mesh, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, err
	}
	for i := 0; i < msh.NumElements; i++ {
		et := msh.ElementTypes[i]
		if et != utils.Tet && et != utils.Tet10 {
			return nil, fmt.Errorf("mesh file %s: element %d is not a tetrahedron (type %v)",
				path, i, et)
		}
	}

	nv := len(msh.Vertices)
	coords := mat.NewDense(nv, 3, nil)
	vertexGlobal := make([]int, nv)
	for i, v := range msh.Vertices {
		coords.SetRow(i, v[:3])
		vertexGlobal[i] = i
	}
	cells := make([][]int, msh.NumElements)
	for i := 0; i < msh.NumElements; i++ {
		// Tet10 midside nodes are ignored; the four corner vertices come
		// first.
		cells[i] = msh.EtoV[i][:4]
	}
	return mesh.New(3, coords, vertexGlobal, cells, nil)
}

func run(cfg *Config, log *slog.Logger) error {
	m, err := loadTetMesh(cfg.Mesh)
	if err != nil {
		return err
	}
	log.Info("mesh loaded", "file", cfg.Mesh,
		"cells", m.NumCells(), "vertices", m.NumVertices(), "edges", m.NumEdges())

	for pass := 1; pass <= cfg.Passes; pass++ {
		refined, _, err := refine.RefineUniform(m, false, cfg.ParentFacets)
		if err != nil {
			return fmt.Errorf("refinement pass %d: %w", pass, err)
		}
		log.Info("pass complete", "pass", pass,
			"cells", refined.NumCells(), "vertices", refined.NumVertices(),
			"edges", refined.NumEdges())
		m = refined
	}
	return nil
}

func main() {
	configPath := flag.String("config", "meshrefine.yaml", "path of the YAML run configuration")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("configuration error", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("refinement failed", "err", err)
		os.Exit(1)
	}
}
