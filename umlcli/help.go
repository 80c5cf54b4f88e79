package umlcli

import (
	"fmt"
	"path/filepath"

	"oss.terrastruct.com/umlcanvas/lib/version"
	"oss.terrastruct.com/umlcanvas/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s [--debug] [--config file] <subcommand> [flags] [args]

%[1]s is the geometry and interaction core of a UML diagram editor.
Diagrams are JSON snapshots. Use - to read from stdin or write to stdout.

Flags:
%[3]s

Subcommands:
  %[1]s place [--width 80] [--height 80] diagram.json - Prints a free spot for a new shape in view
  %[1]s replay [-o out.json] diagram.json events.json - Replays pointer events against a diagram
  %[1]s validate [--json] diagram.json - Reports dropped edges and modeling warnings
  %[1]s sessions list | create <name> | rename <id> <name> | delete <id> - Manages stored sessions
  %[1]s serve [--host localhost] [--port 0] [--watch diagram.json] - Serves the rendering-surface bridge
  %[1]s config - Prints the effective config
  %[1]s version - Prints the version
`, filepath.Base(ms.Name), version.Version, ms.Opts.Help())
}
