package bootstrap

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-editorial"
	"github.com/goliatone/go-editorial/internal/di"
	"github.com/goliatone/go-editorial/internal/identity"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// Options captures configuration for CLI bootstraps.
type Options struct {
	ConfigPath     string
	Author         string
	LoggerProvider interfaces.LoggerProvider
	DIOptions      []di.Option
}

// BuildModule loads the config and constructs an editorial module acting as
// the given author.
func BuildModule(opts Options) (*editorial.Module, error) {
	cfg, err := editorial.LoadConfig(strings.TrimSpace(opts.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	diOpts := []di.Option{}
	if author := strings.TrimSpace(opts.Author); author != "" {
		diOpts = append(diOpts, di.WithIdentityProvider(identity.Static{User: &interfaces.User{ID: author}}))
	}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}
	diOpts = append(diOpts, opts.DIOptions...)

	module, err := editorial.New(cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise editorial module: %w", err)
	}
	return module, nil
}
