// Package commands declares the command descriptor shared by the registry
// and the routers.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command binds a handler to its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly restricts the command to the configured operator identity.
	AdminOnly bool
	// Hidden keeps the command out of the platform command menu.
	Hidden  bool
	Aliases []string
}
