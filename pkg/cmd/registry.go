// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/executors/ainode"
	"github.com/cadenzahq/cadenza/pkg/executors/createtask"
	"github.com/cadenzahq/cadenza/pkg/executors/sendemail"
	"github.com/cadenzahq/cadenza/pkg/executors/sendsms"
	"github.com/cadenzahq/cadenza/pkg/executors/updatecontact"
	"github.com/cadenzahq/cadenza/pkg/registry"
)

// NewRegistry builds the executor registry with all built-in action types.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(createtask.NewFactory())
	reg.Register(sendemail.NewFactory())
	reg.Register(sendsms.NewFactory())
	reg.Register(updatecontact.NewFactory())
	reg.Register(ainode.NewFactory())

	return reg
}
