// Package xbrowser opens URLs for the serve command.
package xbrowser

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/browser"

	"oss.terrastruct.com/xos"
)

// Disabled reports whether $BROWSER asks for no browser at all.
func Disabled(env *xos.Env) bool {
	b := env.Getenv("BROWSER")
	return b == "0" || b == "false" || b == "none"
}

// Open opens url with $BROWSER if set and the system default otherwise. It
// does nothing when Disabled.
func Open(ctx context.Context, env *xos.Env, url string) error {
	if Disabled(env) {
		return nil
	}
	if b := env.Getenv("BROWSER"); b != "" {
		cmd := exec.CommandContext(ctx, "sh", "-c", fmt.Sprintf("%s \"$1\"", b), "--", url)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to run %v (out: %q): %w", cmd.Args, out, err)
		}
		return nil
	}
	return browser.OpenURL(url)
}
