package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipegridgo/internal/builder"
	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/hcldef"
	"github.com/specialistvlad/pipegridgo/internal/images"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a pipeline assembly test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	Graph     *builder.Graph
	Dir       string
}

// RunPipelineTest writes the given files into a temporary directory, loads
// them as a pipeline definition, and assembles the graph. Load or build
// failures land in the result rather than failing the test, so error cases
// can assert on them.
func RunPipelineTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	logBuf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	result := &HarnessResult{Dir: dir}
	defer func() { result.LogOutput = logBuf.String() }()

	loader := hcldef.NewLoader(images.NewResolver(nil))
	b, err := loader.Load(ctx, dir)
	if err != nil {
		result.Err = err
		return result
	}

	g, err := b.Build(ctx)
	if err != nil {
		result.Err = err
		return result
	}
	result.Graph = g
	return result
}
