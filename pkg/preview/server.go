package preview

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/chazu/nocap/pkg/export"
	"github.com/chazu/nocap/pkg/kernel"
	"github.com/chazu/nocap/pkg/model"
	"github.com/gin-gonic/gin"
)

// DefaultPort is the port the preview server listens on.
const DefaultPort = 3939

// Snapshot is the finished build a preview server publishes.
type Snapshot struct {
	Name    string
	Mesh    *kernel.Mesh
	Options Options
	Ledger  []model.Entry
}

var page = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>{{.Name}}</title></head>
<body style="background:#222;color:#ddd;font-family:sans-serif">
<h1>{{.Name}}</h1>
<img src="/preview.png" alt="{{.Name}} preview">
<p>{{.Triangles}} triangles, {{.Vertices}} vertices.
<a href="/model.stl">Download STL</a> · <a href="/ledger">Feature ledger</a></p>
</body></html>
`))

// Router returns the preview routes for the snapshot.
func Router(s *Snapshot, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(recovery(log), requestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/", func(c *gin.Context) {
		var buf bytes.Buffer
		err := page.Execute(&buf, map[string]any{
			"Name":      s.Name,
			"Triangles": s.Mesh.TriangleCount(),
			"Vertices":  s.Mesh.VertexCount(),
		})
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	})
	r.GET("/preview.png", func(c *gin.Context) {
		opts, err := queryOptions(c, s.Options)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var buf bytes.Buffer
		if err := WritePNG(&buf, s.Mesh, opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	})
	r.GET("/model.stl", func(c *gin.Context) {
		var buf bytes.Buffer
		if err := export.WriteSTL(&buf, s.Mesh, s.Name); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+s.Name+`.stl"`)
		c.Data(http.StatusOK, "model/stl", buf.Bytes())
	})
	r.GET("/ledger", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Ledger)
	})
	return r
}

// queryOptions applies grid, axes, color, transparent, width and height
// query parameters on top of base.
func queryOptions(c *gin.Context, base Options) (Options, error) {
	opts := base
	if v, ok := c.GetQuery("grid"); ok {
		opts.Grid = v
	}
	if v, ok := c.GetQuery("color"); ok {
		opts.Color = v
	}
	for name, dst := range map[string]*bool{"axes": &opts.Axes, "transparent": &opts.Transparent} {
		if v, ok := c.GetQuery(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.New(name + ": " + err.Error())
			}
			*dst = b
		}
	}
	for name, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		if v, ok := c.GetQuery(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 4096 {
				return opts, errors.New(name + " must be between 1 and 4096")
			}
			*dst = n
		}
	}
	if _, err := ParseColor(opts.Color); opts.Color != "" && err != nil {
		return opts, err
	}
	if _, err := ParseGrid(opts.Grid); err != nil {
		return opts, err
	}
	return opts, nil
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		status := c.Writer.Status()
		ctx := c.Request.Context()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			log.WarnContext(ctx, "request error", attrs...)
		default:
			log.DebugContext(ctx, "request", attrs...)
		}
	}
}

func recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.ErrorContext(c.Request.Context(), "panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// Serve publishes the snapshot on addr until ctx is done, then shuts the
// server down.
func Serve(ctx context.Context, addr string, s *Snapshot, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(s, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "preview server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.InfoContext(ctx, "preview server stopping")
	return srv.Shutdown(shutdownCtx)
}
