package hcldef

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/pipegridgo/internal/builder"
	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/fsutil"
	"github.com/specialistvlad/pipegridgo/internal/images"
	"github.com/specialistvlad/pipegridgo/internal/model"
	"github.com/specialistvlad/pipegridgo/internal/schema"
)

// Loader discovers and decodes HCL pipeline definitions.
type Loader struct {
	resolver *images.Resolver

	// DefaultNetwork is applied during translation to every step whose
	// compute block sets no network fields of its own. Filling it in here,
	// before the builder ever sees a step, keeps built graphs independent
	// of later environment changes.
	DefaultNetwork model.NetworkConfig
}

// NewLoader creates a Loader. The resolver supplies container images for
// compute blocks that name a framework instead of a full image reference.
func NewLoader(resolver *images.Resolver) *Loader {
	return &Loader{resolver: resolver}
}

// Load parses every .hcl file reachable from the given paths, merges the
// decoded blocks, and returns a builder populated with the result. Each path
// may be a single file or a directory searched recursively. Exactly one
// pipeline block must exist across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*builder.Builder, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := collectHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found in %v", paths)
	}
	logger.Debug("Discovered pipeline files.", "count", len(files))

	parser := hclparse.NewParser()
	merged := &schema.PipelineFile{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var parsed schema.PipelineFile
		diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if parsed.Pipeline != nil {
			if merged.Pipeline != nil {
				return nil, fmt.Errorf("duplicate pipeline block in %s: pipeline %q already defined",
					file, merged.Pipeline.Name)
			}
			merged.Pipeline = parsed.Pipeline
		}
		merged.Parameters = append(merged.Parameters, parsed.Parameters...)
		merged.Steps = append(merged.Steps, parsed.Steps...)
		merged.Conditionals = append(merged.Conditionals, parsed.Conditionals...)
	}

	if merged.Pipeline == nil {
		return nil, fmt.Errorf("no pipeline block found in %v", paths)
	}

	return l.translate(ctx, merged)
}

// collectHCLFiles expands each path into the .hcl files beneath it. Files
// are used as given; directories are searched recursively. The resulting
// order is deterministic.
func collectHCLFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find pipeline files in %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}
