package app

import (
	"io"
	"log/slog"

	"github.com/specialistvlad/pipegridgo/internal/hcldef"
	"github.com/specialistvlad/pipegridgo/internal/images"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	loader *hcldef.Loader
	config *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	resolver := images.NewResolver(nil)
	loader := hcldef.NewLoader(resolver)
	loader.DefaultNetwork = networkFromEnv()

	return &App{
		outW:   outW,
		logger: logger,
		loader: loader,
		config: config,
	}
}
