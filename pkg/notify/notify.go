// Package notify opens alert URLs, either in a desktop viewer or by
// requesting them directly.
package notify

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Notifier delivers one notification by opening url.
type Notifier interface {
	Open(ctx context.Context, url string) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Open(context.Context, string) error { return nil }

// Viewer launches an external program with the URL as its last argument,
// e.g. a browser.
type Viewer struct {
	Command string
	Args    []string
	Stderr  io.Writer // nil discards the viewer's stderr
}

func (v Viewer) Open(ctx context.Context, url string) error {
	if v.Command == "" {
		return fmt.Errorf("no viewer command configured")
	}
	args := append(append([]string{}, v.Args...), url)
	cmd := exec.CommandContext(ctx, v.Command, args...)
	cmd.Stderr = v.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launch %s: %w", v.Command, err)
	}
	return nil
}
