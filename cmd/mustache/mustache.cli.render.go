package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/itsatony/go-mustache"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	data         string
	dataFilePath string
	partialsDir  string
	lambdasPath  string
	configPath   string
	outputPath   string
	watch        bool
	verbose      bool
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runRenderContext(ctx, args, stdin, stdout, stderr)
}

func runRenderContext(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		printError(stderr, ErrMsgUsage, err)
		return ExitCodeUsageError
	}

	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		printError(stderr, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	view, err := loadData(cfg.data, cfg.dataFilePath)
	if err != nil {
		printError(stderr, ErrMsgInvalidData, err)
		return ExitCodeInputError
	}

	var lambdas *scriptLambdas
	if cfg.lambdasPath != "" {
		script, err := os.ReadFile(cfg.lambdasPath)
		if err == nil {
			lambdas, err = loadLambdas(script)
		}
		if err != nil {
			printError(stderr, ErrMsgLambdasFailed, err)
			return ExitCodeInputError
		}
		lambdas.Merge(view)
	}

	engine, storage, logger, code := setupEngine(cfg.configPath, cfg.partialsDir, cfg.verbose, stderr)
	if code != ExitCodeSuccess {
		return code
	}
	if storage != nil {
		defer storage.Close()
	}

	render := func() int {
		return renderOnce(engine, string(templateSource), view, lambdas, cfg.outputPath, stdout, stderr)
	}

	if code := render(); code != ExitCodeSuccess || !cfg.watch {
		return code
	}

	fsStorage, invalidate, ok := watchablePartials(storage)
	if !ok {
		printError(stderr, ErrMsgUsage, errors.New(ErrMsgWatchNeedsPartials))
		return ExitCodeUsageError
	}
	return watchAndRender(ctx, fsStorage, func(name string) {
		invalidate(name)
		render()
	}, logger, stderr)
}

// renderOnce parses the template against the current partials and writes one
// rendering. Each call re-reads stored partials, so edits show up.
func renderOnce(engine *mustache.Engine, source string, view map[string]any, lambdas *scriptLambdas, outputPath string, stdout, stderr io.Writer) int {
	tmpl, err := engine.Parse(source)
	if err != nil {
		printError(stderr, ErrMsgParseTemplateFailed, err)
		return ExitCodeValidationError
	}

	if lambdas != nil {
		lambdas.Reset()
	}
	result, err := tmpl.Render(view)
	if err != nil {
		printError(stderr, ErrMsgRenderFailed, err)
		return ExitCodeError
	}
	if lambdas != nil && lambdas.Err() != nil {
		printError(stderr, ErrMsgRenderFailed, lambdas.Err())
		return ExitCodeError
	}

	if err := writeOutput(outputPath, []byte(result), stdout); err != nil {
		printError(stderr, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

// watchAndRender calls onChange whenever a partial file changes, until ctx
// ends. Render failures while watching are reported but do not stop the loop.
func watchAndRender(ctx context.Context, storage *mustache.FilesystemStorage, onChange func(name string), logger *zap.Logger, stderr io.Writer) int {
	err := storage.Watch(ctx, func(name string) {
		logger.Info(LogMsgRerender, zap.String(mustache.LogFieldPartial, name))
		onChange(name)
	})
	if err != nil {
		printError(stderr, ErrMsgWatchFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := flag.NewFlagSet(CmdNameRender, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &renderConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.data, FlagData, "", "")
	fs.StringVar(&cfg.data, FlagDataShort, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.partialsDir, FlagPartials, "", "")
	fs.StringVar(&cfg.partialsDir, FlagPartialsShort, "", "")
	fs.StringVar(&cfg.lambdasPath, FlagLambdas, "", "")
	fs.StringVar(&cfg.lambdasPath, FlagLambdasShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.BoolVar(&cfg.watch, FlagWatch, false, "")
	fs.BoolVar(&cfg.watch, FlagWatchShort, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	if cfg.watch && cfg.partialsDir == "" && cfg.configPath == "" {
		return nil, errors.New(ErrMsgWatchNeedsPartials)
	}

	return cfg, nil
}

// loadData reads view data from a file or an inline string, file first.
func loadData(inline, filePath string) (map[string]any, error) {
	var raw []byte
	switch {
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		raw = data
	case inline != "":
		raw = []byte(inline)
	default:
		return make(map[string]any), nil
	}

	view, err := parseViewData(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidData, err)
	}
	return view, nil
}
