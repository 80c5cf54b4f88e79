// Package umlcli implements the umlcanvas command: placement and replay of
// diagrams, validation, session management and the rendering-surface bridge.
package umlcli

import (
	"context"
	"errors"
	"fmt"

	"cdr.dev/slog"
	"github.com/spf13/pflag"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/umlcanvas/lib/log"
	"oss.terrastruct.com/umlcanvas/lib/version"
	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlconfig"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umlsession"
)

func Run(ctx context.Context, ms *xmain.State) (err error) {
	// Flags after the subcommand belong to it.
	ms.Opts.Flags.SetInterspersed(false)

	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		return err
	}
	configFlag := ms.Opts.String("UMLCANVAS_CONFIG", "config", "c", "", "path to the config file. Defaults to ./"+umlconfig.FileName)
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}
	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}
	if *versionFlag {
		fmt.Fprintln(ms.Stdout, version.Version)
		return nil
	}
	if *debugFlag {
		ctx = log.Leveled(ctx, slog.LevelDebug)
		ms.Env.Setenv("DEBUG", "1")
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	args := ms.Opts.Flags.Args()
	if len(args) == 0 {
		help(ms)
		return xmain.UsageErrorf("missing subcommand")
	}
	switch args[0] {
	case "place":
		return placeCmd(ctx, ms, cfg, args[1:])
	case "replay":
		return replayCmd(ctx, ms, cfg, args[1:])
	case "validate":
		return validateCmd(ctx, ms, args[1:])
	case "sessions":
		return sessionsCmd(ctx, ms, cfg, args[1:])
	case "serve":
		return serveCmd(ctx, ms, cfg, args[1:])
	case "config":
		return configCmd(ms, cfg, args[1:])
	case "version":
		fmt.Fprintln(ms.Stdout, version.Version)
		return nil
	case "help":
		help(ms)
		return nil
	default:
		return xmain.UsageErrorf("unknown subcommand %q", args[0])
	}
}

func loadConfig(path string) (*umlconfig.Config, error) {
	if path != "" {
		return umlconfig.LoadFromPath(path)
	}
	return umlconfig.Load(".")
}

// parse parses args into a fresh flag set after define registers the
// subcommand's flags on it. It reports true when --help was printed.
func parse(ms *xmain.State, args []string, define func(o *xmain.Opts) error) (bool, error) {
	ms.Opts = xmain.NewOpts(ms.Env, ms.Log, args)
	if define != nil {
		if err := define(ms.Opts); err != nil {
			return false, err
		}
	}
	err := ms.Opts.Flags.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(ms.Stdout, "Flags:\n%s\n", ms.Opts.Help())
		return true, nil
	}
	if err != nil {
		return false, xmain.UsageErrorf("failed to parse flags: %v", err)
	}
	return false, nil
}

func readSnapshot(ms *xmain.State, path string) (_ *umlgraph.Snapshot, err error) {
	defer xdefer.Errorf(&err, "failed to read diagram %s", ms.HumanPath(path))

	b, err := ms.ReadPath(path)
	if err != nil {
		return nil, err
	}
	return umlgraph.UnmarshalSnapshot(b)
}

// openStore opens the SQLite store at path, or an in-memory store for "".
func openStore(path string) (umlsession.Store, error) {
	if path == "" {
		return umlsession.NewMemStore(), nil
	}
	return umlsession.OpenSQLite(path)
}

func configCmd(ms *xmain.State, cfg *umlconfig.Config, args []string) error {
	if len(args) > 0 {
		return xmain.UsageErrorf("config accepts no arguments")
	}
	b, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = ms.Stdout.Write(b)
	return err
}
