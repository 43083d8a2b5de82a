package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/itsatony/go-mustache"
)

// serveConfig holds parsed serve command configuration
type serveConfig struct {
	addr        string
	partialsDir string
	configPath  string
	verbose     bool
}

type renderRequest struct {
	Template string            `json:"template" binding:"required"`
	Data     map[string]any    `json:"data"`
	Partials map[string]string `json:"partials"`
}

type renderResponse struct {
	Output string `json:"output"`
}

type validateRequest struct {
	Template string            `json:"template" binding:"required"`
	Partials map[string]string `json:"partials"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type partialsResponse struct {
	Registered []string `json:"registered"`
	Stored     []string `json:"stored"`
}

func runServe(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseServeFlags(args)
	if err != nil {
		printError(stderr, ErrMsgUsage, err)
		return ExitCodeUsageError
	}

	engine, storage, logger, code := setupEngine(cfg.configPath, cfg.partialsDir, cfg.verbose, stderr)
	if code != ExitCodeSuccess {
		return code
	}
	if storage != nil {
		defer storage.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cached filesystem partials are invalidated as their files change.
	if fsStorage, invalidate, ok := watchablePartials(storage); ok {
		if _, cached := storage.(*mustache.CachedStorage); cached {
			go func() {
				if err := fsStorage.Watch(ctx, invalidate); err != nil {
					logger.Warn(ErrMsgWatchFailed, zap.Error(err))
				}
			}()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: ServeReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(LogMsgServing, zap.String(LogFieldAddr, cfg.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			printError(stderr, ErrMsgServeFailed, err)
			return ExitCodeError
		}
	case <-ctx.Done():
		logger.Info(LogMsgShuttingDown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ServeShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			printError(stderr, ErrMsgServeFailed, err)
			return ExitCodeError
		}
	}
	return ExitCodeSuccess
}

// newRouter builds the HTTP API on top of engine.
func newRouter(engine *mustache.Engine, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	h := &apiHandler{engine: engine, logger: logger}
	router.GET(RouteHealth, h.health)
	router.POST(RouteRender, h.render)
	router.POST(RouteValidate, h.validate)
	router.GET(RoutePartials, h.partials)
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Method+" "+c.FullPath(),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

type apiHandler struct {
	engine *mustache.Engine
	logger *zap.Logger
}

func (h *apiHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": HealthStatusOK})
}

func (h *apiHandler) render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: ErrMsgInvalidRequest + ": " + err.Error()})
		return
	}

	tmpl, err := h.engine.ParseWithPartials(req.Template, req.Partials)
	if err != nil {
		h.fail(c, err)
		return
	}

	out, err := tmpl.Render(req.Data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderResponse{Output: out})
}

// validate always answers 200; the body says whether the template compiled.
func (h *apiHandler) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: ErrMsgInvalidRequest + ": " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, validateSource(h.engine, req.Template, req.Partials))
}

func (h *apiHandler) partials(c *gin.Context) {
	resp := partialsResponse{Registered: h.engine.ListPartials(), Stored: []string{}}
	if storage := h.engine.Storage(); storage != nil {
		names, err := storage.List(c.Request.Context())
		if err != nil {
			h.logger.Warn(ErrMsgListPartialsFailed, zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorResponse{Error: ErrMsgListPartialsFailed})
			return
		}
		resp.Stored = names
	}
	c.JSON(http.StatusOK, resp)
}

// fail maps template errors to 422 with their kind and anything else to 500.
func (h *apiHandler) fail(c *gin.Context, err error) {
	if kind, ok := mustache.ErrorKindOf(err); ok {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: string(kind)})
		return
	}
	h.logger.Warn(ErrMsgRenderFailed, zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func parseServeFlags(args []string) (*serveConfig, error) {
	fs := flag.NewFlagSet(CmdNameServe, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &serveConfig{}

	fs.StringVar(&cfg.addr, FlagAddr, FlagDefaultAddr, "")
	fs.StringVar(&cfg.addr, FlagAddrShort, FlagDefaultAddr, "")
	fs.StringVar(&cfg.partialsDir, FlagPartials, "", "")
	fs.StringVar(&cfg.partialsDir, FlagPartialsShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
