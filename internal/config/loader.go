package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/predictflow/internal/ctxlog"
)

// Load reads and decodes a pipeline configuration file.
func Load(ctx context.Context, path string) (*Pipeline, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}
	return decode(ctx, file)
}

// Parse decodes a pipeline configuration from an in-memory buffer. The
// filename is only used in diagnostics.
func Parse(ctx context.Context, src []byte, filename string) (*Pipeline, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}
	return decode(ctx, file)
}

func decode(ctx context.Context, file *hcl.File) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	var root Root
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &root); diags.HasErrors() {
		return nil, fmt.Errorf("decoding pipeline config: %w", diags)
	}
	if root.Pipeline == nil {
		return nil, fmt.Errorf("config must contain a pipeline block")
	}

	p := root.Pipeline
	p.normalize()
	if err := p.validate(); err != nil {
		return nil, err
	}

	logger.Debug("Pipeline configuration loaded.",
		"symbols", len(p.Symbols),
		"sources", len(p.Sources),
		"intervals", len(p.Intervals),
		"max_concurrent", p.MaxConcurrent,
	)
	return p, nil
}

// evalContext exposes process environment variables to HCL expressions as
// the `env` object, so configs can write base_url = env.MARKET_API_URL.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	vars := map[string]cty.Value{}
	if len(env) > 0 {
		vars["env"] = cty.ObjectVal(env)
	}
	return &hcl.EvalContext{Variables: vars}
}
