package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chazu/nocap/pkg/export"
	"github.com/chazu/nocap/pkg/kernel"
	"github.com/chazu/nocap/pkg/kernel/sdfx"
	"github.com/chazu/nocap/pkg/keycap"
	"github.com/chazu/nocap/pkg/logger"
	"github.com/chazu/nocap/pkg/model"
	"github.com/chazu/nocap/pkg/preview"
	"github.com/chazu/nocap/pkg/tessellate"
)

// Config holds the run options taken from the command line.
type Config struct {
	ParamsPath string // optional .toml or .zy override file
	OutDir     string
	Name       string
	Cells      int

	PNGPath   string
	Serve     bool
	Port      int
	Highlight string // name of a builder highlight set to draw
	Preview   preview.Options
}

// DefaultConfig returns the options used when no flags are given.
func DefaultConfig() Config {
	return Config{
		OutDir:  ".",
		Name:    "NoCap",
		Cells:   tessellate.DefaultCells,
		Port:    preview.DefaultPort,
		Preview: preview.DefaultOptions(),
	}
}

// RunResult describes a finished run.
type RunResult struct {
	Params  keycap.Params
	Build   *keycap.Result
	Mesh    *kernel.Mesh
	Stats   tessellate.Stats
	STEP    string
	STL     string
	PNG     string
	Elapsed time.Duration
}

// App builds keycaps with the sdfx kernel.
type App struct {
	kernel kernel.Kernel
	log    *slog.Logger
}

// NewApp creates a new App with the sdfx kernel.
func NewApp(log *slog.Logger) *App {
	return &App{kernel: sdfx.New(), log: log}
}

// Run loads parameters, builds the cap, meshes it and writes the STEP, STL
// and optional PNG outputs.
func (a *App) Run(ctx context.Context, cfg Config) (*RunResult, error) {
	start := time.Now()
	if cfg.Name == "" {
		return nil, errors.New("output name is empty")
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{Part: cfg.Name, Source: cfg.ParamsPath})

	p, err := a.LoadParams(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := keycap.Build(ctx, a.kernel, p, keycap.WithLogger(a.log))
	if err != nil {
		return nil, err
	}

	mesh, st, err := tessellate.Tessellate(res.Model, cfg.Cells)
	if err != nil {
		return nil, err
	}
	mesh.PartName = cfg.Name
	a.log.InfoContext(ctx, "mesh ready",
		"triangles", st.Triangles,
		"vertices", st.Vertices,
		"cracks_fixed", st.CracksFixed,
		"volume_mm3", strconv.FormatFloat(st.Volume, 'f', 2, 64),
	)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, &kernel.ExportError{Format: "dir", Path: cfg.OutDir, Err: err}
	}
	out := &RunResult{Params: p, Build: res, Mesh: mesh, Stats: st,
		STEP: filepath.Join(cfg.OutDir, cfg.Name+".step"),
		STL:  filepath.Join(cfg.OutDir, cfg.Name+".stl"),
	}
	if err := export.STEP(mesh, out.STEP, cfg.Name); err != nil {
		return nil, err
	}
	if err := export.STL(mesh, out.STL, cfg.Name); err != nil {
		return nil, err
	}
	a.log.InfoContext(ctx, "exported", "step", out.STEP, "stl", out.STL)

	if cfg.PNGPath != "" {
		opts, err := a.previewOptions(cfg, res)
		if err != nil {
			return nil, err
		}
		if err := preview.SavePNG(cfg.PNGPath, mesh, opts); err != nil {
			return nil, err
		}
		out.PNG = cfg.PNGPath
		a.log.InfoContext(ctx, "preview written", "png", out.PNG)
	}
	out.Elapsed = time.Since(start)
	return out, nil
}

// LoadParams returns the defaults with the configured override file applied.
func (a *App) LoadParams(ctx context.Context, cfg Config) (keycap.Params, error) {
	p := keycap.Defaults()
	if cfg.ParamsPath == "" {
		return p, nil
	}
	p, err := keycap.LoadFile(cfg.ParamsPath, p)
	if err != nil {
		return p, err
	}
	a.log.InfoContext(ctx, "parameters loaded", "file", cfg.ParamsPath)
	return p, nil
}

// Serve publishes a finished run on the preview server until ctx is done.
func (a *App) Serve(ctx context.Context, cfg Config, r *RunResult) error {
	opts, err := a.previewOptions(cfg, r.Build)
	if err != nil {
		return err
	}
	snap := &preview.Snapshot{
		Name:    cfg.Name,
		Mesh:    r.Mesh,
		Options: opts,
		Ledger:  r.Build.Model.Ledger(),
	}
	return preview.Serve(ctx, fmt.Sprintf(":%d", cfg.Port), snap, a.log)
}

func (a *App) previewOptions(cfg Config, res *keycap.Result) (preview.Options, error) {
	opts := cfg.Preview
	if cfg.Highlight == "" {
		return opts, nil
	}
	edges, ok := res.Highlights[cfg.Highlight]
	if !ok {
		return opts, fmt.Errorf("unknown highlight %q (have %s, %s)",
			cfg.Highlight, keycap.HighlightRimEdge, keycap.HighlightSlotRimEdges)
	}
	opts.Highlight = append([]model.Edge(nil), edges...)
	return opts, nil
}
