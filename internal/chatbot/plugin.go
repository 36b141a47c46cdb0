// Package chatbot dispatches user messages to keyword driven bot plugins.
//
// Every plugin whose Supports method accepts a message gets a chance to
// process it, highest priority first. A failing plugin is logged and skipped
// so the remaining plugins and the request that triggered them carry on.
package chatbot

import (
	"context"
	"fmt"
	"runtime/debug"

	"chat-assistant/backend/internal/models"
)

// Plugin is a single chatbot behaviour
type Plugin interface {
	// Name identifies the plugin and its bot user
	Name() string
	// Priority orders plugins, higher runs first
	Priority() int
	// Supports reports whether the plugin wants to handle msg
	Supports(msg *models.Message) bool
	// Process reacts to msg, usually by storing a reply
	Process(ctx context.Context, msg *models.Message) error
}

// PanicError wraps a value recovered from a panicking plugin
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("plugin panicked: %v", e.Value)
}

// SafeCall runs fn and turns a panic into a *PanicError
func SafeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return fn()
}
