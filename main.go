// Command nocap builds a Cherry MX compatible keycap and writes it as STEP
// and STL.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/nocap/pkg/keycap"
	"github.com/chazu/nocap/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	log, err := logger.Setup(opts.logLevel, opts.logJSON, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(log)
	if opts.printParams {
		p, err := app.LoadParams(ctx, cfg)
		if err == nil {
			var out string
			if out, err = keycap.EncodeTOML(p); err == nil {
				fmt.Fprint(stdout, out)
				return 0
			}
		}
		fmt.Fprintln(stderr, failureStyle.Render("nocap: "+err.Error()))
		return 1
	}

	res, err := app.Run(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "build failed", "error", err)
		fmt.Fprintln(stderr, failureStyle.Render("nocap: "+err.Error()))
		return 1
	}
	fmt.Fprintln(stdout, Summary(cfg, res))

	if cfg.Serve {
		gin.SetMode(gin.ReleaseMode)
		fmt.Fprintf(stdout, "preview on http://localhost:%d (Ctrl-C to stop)\n", cfg.Port)
		if err := app.Serve(ctx, cfg, res); err != nil {
			log.ErrorContext(ctx, "preview server failed", "error", err)
			return 1
		}
	}
	return 0
}

// cliOptions are the flags that steer the process rather than the build.
type cliOptions struct {
	logLevel    string
	logJSON     bool
	printParams bool
}

func parseFlags(args []string, stderr io.Writer) (cfg Config, opts cliOptions, err error) {
	cfg = DefaultConfig()
	fs := flag.NewFlagSet("nocap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.ParamsPath, "params", "", "parameter override file (.toml or .zy)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "output directory")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "base name of the output files")
	fs.IntVar(&cfg.Cells, "cells", cfg.Cells, "marching cubes cells along the longest axis")
	fs.StringVar(&cfg.PNGPath, "png", "", "also render a preview image to this file")
	fs.BoolVar(&cfg.Serve, "serve", false, "serve the preview over HTTP after building")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "preview server port")
	fs.StringVar(&cfg.Preview.Grid, "grid", "", "axis planes to draw a grid on, e.g. xyz")
	fs.BoolVar(&cfg.Preview.Axes, "axes", false, "draw the coordinate axes")
	fs.StringVar(&cfg.Preview.Color, "color", cfg.Preview.Color, "part colour, named or #rrggbb")
	fs.BoolVar(&cfg.Preview.Transparent, "transparent", false, "draw the part translucent")
	fs.StringVar(&cfg.Highlight, "highlight", "", "edge set to highlight: inside-circle-edge or stem-top-inner-edges")
	fs.IntVar(&cfg.Preview.Width, "width", cfg.Preview.Width, "preview width in pixels")
	fs.IntVar(&cfg.Preview.Height, "height", cfg.Preview.Height, "preview height in pixels")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	fs.BoolVar(&opts.printParams, "print-params", false, "print the effective parameters as TOML and exit")
	err = fs.Parse(args)
	if err == nil && fs.NArg() > 0 {
		err = fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(stderr, err)
	}
	return cfg, opts, err
}
