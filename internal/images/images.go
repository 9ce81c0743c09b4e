// SPDX-License-Identifier: MIT
package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
)

// ErrImageNotFound is returned when neither the registry nor the built-in
// default table can produce an image for the requested framework.
var ErrImageNotFound = errors.New("container image not found")

// Source records where a resolved image reference came from.
type Source string

const (
	// SourceRegistry means the live registry answered the lookup.
	SourceRegistry Source = "registry"
	// SourceDefault means the registry had no answer and the built-in
	// framework default was used instead.
	SourceDefault Source = "default"
)

// Resolution is the outcome of an image lookup.
type Resolution struct {
	Ref    string
	Source Source
}

// Registry answers live image lookups. Implementations may hit a remote
// service; a failed lookup is not fatal because the resolver falls back to
// the framework defaults.
type Registry interface {
	Lookup(ctx context.Context, framework, version, region string) (string, error)
}

// StaticRegistry is a Registry backed by a fixed map, keyed by
// "framework:version". Lookups for absent keys fail with ErrImageNotFound.
type StaticRegistry map[string]string

func (r StaticRegistry) Lookup(_ context.Context, framework, version, _ string) (string, error) {
	ref, ok := r[framework+":"+version]
	if !ok {
		return "", fmt.Errorf("%w: %s:%s", ErrImageNotFound, framework, version)
	}
	return ref, nil
}

// Resolver turns a framework name and version into a concrete container
// image reference. The registry is consulted first; any registry failure
// falls through to the default table, so resolution only fails for
// frameworks the default table has never heard of.
type Resolver struct {
	registry Registry
}

// NewResolver builds a Resolver. A nil registry is allowed and means
// resolution always uses the defaults.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve looks up the image for framework:version in region. Registry
// misses are logged and absorbed; the returned Resolution says which path
// produced the reference.
func (r *Resolver) Resolve(ctx context.Context, framework, version, region string) (Resolution, error) {
	log := ctxlog.FromContext(ctx)

	if r.registry != nil {
		ref, err := r.registry.Lookup(ctx, framework, version, region)
		if err == nil {
			return Resolution{Ref: ref, Source: SourceRegistry}, nil
		}
		log.Debug("Image registry lookup missed, falling back to defaults.",
			"framework", framework, "version", version, "error", err)
	}

	ref, err := defaultImage(framework, version, region)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Ref: ref, Source: SourceDefault}, nil
}

// Hosted framework images live in fixed per-region accounts. The table
// mirrors the public hosting accounts for the frameworks the pipeline
// kinds actually use.
var defaultAccounts = map[string]map[string]string{
	"xgboost": {
		"us-east-1": "683313688378",
		"us-east-2": "257758044811",
		"us-west-2": "246618743249",
		"eu-west-1": "685385470294",
		"eu-west-2": "764974769150",
	},
	"sklearn": {
		"us-east-1": "683313688378",
		"us-east-2": "257758044811",
		"us-west-2": "246618743249",
		"eu-west-1": "685385470294",
		"eu-west-2": "764974769150",
	},
}

var defaultRepos = map[string]string{
	"xgboost": "sagemaker-xgboost",
	"sklearn": "sagemaker-scikit-learn",
}

func defaultImage(framework, version, region string) (string, error) {
	accounts, ok := defaultAccounts[framework]
	if !ok {
		return "", fmt.Errorf("%w: no default image for framework %q", ErrImageNotFound, framework)
	}
	account, ok := accounts[region]
	if !ok {
		return "", fmt.Errorf("%w: framework %q is not hosted in region %q", ErrImageNotFound, framework, region)
	}
	repo := defaultRepos[framework]
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s:%s", account, region, repo, version), nil
}
