// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/nurture/pkg/actions/email"
	"github.com/dukex/nurture/pkg/actions/field"
	"github.com/dukex/nurture/pkg/actions/notification"
	"github.com/dukex/nurture/pkg/actions/score"
	"github.com/dukex/nurture/pkg/actions/tag"
	"github.com/dukex/nurture/pkg/actions/webhook"
	"github.com/dukex/nurture/pkg/actions/whatsapp"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/dukex/nurture/pkg/registry"
)

func registerActionPlugins(reg *registry.Registry, pluginsPath string) error {
	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}

	return nil
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(tag.NewAddActionFactory())
	reg.RegisterAction(tag.NewRemoveActionFactory())
	reg.RegisterAction(field.NewActionFactory())
	reg.RegisterAction(score.NewActionFactory())
	reg.RegisterAction(email.NewActionFactory())
	reg.RegisterAction(whatsapp.NewActionFactory())
	reg.RegisterAction(webhook.NewActionFactory())
	reg.RegisterAction(notification.NewActionFactory())
}

// NewRegistry registers the native actions and any plugins, then builds every handler.
// Native actions win over plugins with the same id.
func NewRegistry(log *slog.Logger, pluginsPath string, deps protocol.Dependencies) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		if err := registerActionPlugins(reg, pluginsPath); err != nil {
			return nil, err
		}
	}

	registerNativeActions(reg)

	if err := reg.Initialize(deps); err != nil {
		return nil, err
	}

	return reg, nil
}
