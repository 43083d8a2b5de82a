package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-mustache"
)

// fileConfig is the YAML document accepted by --config.
//
//	delimiters:
//	  open: "<%"
//	  close: "%>"
//	iterator: item
//	max_depth: 50
//	partials_dir: ./partials
//	storage:
//	  driver: sqlite
//	  dsn: partials.db
//	  cache_ttl: 5m
//	log_level: debug
type fileConfig struct {
	Delimiters struct {
		Open  string `yaml:"open"`
		Close string `yaml:"close"`
	} `yaml:"delimiters"`
	Iterator    string `yaml:"iterator"`
	MaxDepth    *int   `yaml:"max_depth"`
	PartialsDir string `yaml:"partials_dir"`
	Storage     struct {
		Driver   string        `yaml:"driver"`
		DSN      string        `yaml:"dsn"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"storage"`
	LogLevel string `yaml:"log_level"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a console logger on w, or a no-op logger when quiet.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

// openPartialStorage resolves where named partials come from. A partials
// directory given on the command line beats the config file, which beats the
// configured storage driver. It returns nil when no source is configured.
// A positive cache_ttl wraps the result in a CachedStorage.
func openPartialStorage(partialsDir string, cfg *fileConfig, logger *zap.Logger) (mustache.PartialStorage, error) {
	storage, err := openBackingStorage(partialsDir, cfg, logger)
	if err != nil || storage == nil || cfg.Storage.CacheTTL <= 0 {
		return storage, err
	}
	return mustache.NewCachedStorage(storage, mustache.CacheConfig{TTL: cfg.Storage.CacheTTL}), nil
}

func openBackingStorage(partialsDir string, cfg *fileConfig, logger *zap.Logger) (mustache.PartialStorage, error) {
	dir := partialsDir
	if dir == "" {
		dir = cfg.PartialsDir
	}
	if dir != "" {
		fs, err := mustache.NewFilesystemStorage(dir)
		if err != nil {
			return nil, err
		}
		return fs.WithLogger(logger), nil
	}

	if cfg.Storage.Driver != "" {
		return mustache.OpenStorage(cfg.Storage.Driver, cfg.Storage.DSN)
	}
	return nil, nil
}

// buildEngine applies the config file on top of the engine defaults.
func buildEngine(cfg *fileConfig, storage mustache.PartialStorage, logger *zap.Logger) (*mustache.Engine, error) {
	opts := []mustache.Option{mustache.WithLogger(logger)}

	if cfg.Delimiters.Open != "" || cfg.Delimiters.Close != "" {
		if cfg.Delimiters.Open == "" || cfg.Delimiters.Close == "" {
			return nil, fmt.Errorf("%s: delimiters need both open and close", ErrMsgConfigFailed)
		}
		opts = append(opts, mustache.WithDelimiters(cfg.Delimiters.Open, cfg.Delimiters.Close))
	}
	if cfg.Iterator != "" {
		opts = append(opts, mustache.WithIterator(cfg.Iterator))
	}
	if cfg.MaxDepth != nil {
		opts = append(opts, mustache.WithMaxDepth(*cfg.MaxDepth))
	}
	if storage != nil {
		opts = append(opts, mustache.WithPartialStorage(storage))
	}

	return mustache.New(opts...)
}

// setupEngine loads the config file, opens partial storage and builds the
// engine in one step. The returned storage may be nil.
func setupEngine(configPath, partialsDir string, verbose bool, stderr io.Writer) (*mustache.Engine, mustache.PartialStorage, *zap.Logger, int) {
	cfg, err := loadFileConfig(configPath)
	if err != nil {
		printError(stderr, ErrMsgConfigFailed, err)
		return nil, nil, nil, ExitCodeInputError
	}

	logger := newLogger(stderr, verbose || cfg.LogLevel == ConfigLogLevelDebug)

	storage, err := openPartialStorage(partialsDir, cfg, logger)
	if err != nil {
		printError(stderr, ErrMsgStorageFailed, err)
		return nil, nil, nil, ExitCodeInputError
	}

	engine, err := buildEngine(cfg, storage, logger)
	if err != nil {
		if storage != nil {
			_ = storage.Close()
		}
		printError(stderr, ErrMsgConfigFailed, err)
		return nil, nil, nil, ExitCodeUsageError
	}
	return engine, storage, logger, ExitCodeSuccess
}

// watchablePartials finds the filesystem storage behind storage, if any, and
// returns the callback that should run when one of its partials changes.
func watchablePartials(storage mustache.PartialStorage) (*mustache.FilesystemStorage, func(name string), bool) {
	onChange := func(string) {}
	if cached, ok := storage.(*mustache.CachedStorage); ok {
		onChange = cached.Invalidate
		storage = cached.Unwrap()
	}
	fs, ok := storage.(*mustache.FilesystemStorage)
	return fs, onChange, ok
}
