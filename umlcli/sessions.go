package umlcli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"go.uber.org/multierr"
	"oss.terrastruct.com/xdefer"
	"oss.terrastruct.com/xjson"

	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlconfig"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umlsession"
)

// sessionInfo is a session without its diagram.
type sessionInfo struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Type       umlgraph.DiagramType `json:"type"`
	CreatedAt  time.Time            `json:"createdAt"`
	ModifiedAt time.Time            `json:"modifiedAt"`
	Shapes     int                  `json:"shapes"`
	Edges      int                  `json:"edges"`
}

func infoOf(s *umlsession.Session) sessionInfo {
	info := sessionInfo{
		ID:         s.ID,
		Name:       s.Name,
		Type:       s.Type,
		CreatedAt:  s.CreatedAt,
		ModifiedAt: s.ModifiedAt,
	}
	if s.Snapshot != nil {
		info.Shapes = len(s.Snapshot.Shapes)
		info.Edges = len(s.Snapshot.Edges)
	}
	return info
}

func sessionsCmd(ctx context.Context, ms *xmain.State, cfg *umlconfig.Config, args []string) (err error) {
	defer xdefer.Errorf(&err, "failed to manage sessions")

	var dbFlag, typeFlag *string
	var jsonFlag *bool
	help, err := parse(ms, args, func(o *xmain.Opts) (err error) {
		dbFlag = o.String("UMLCANVAS_DB", "db", "", cfg.Session.DB, "SQLite session database")
		typeFlag = o.String("", "type", "t", string(umlgraph.UseCaseDiagram), "diagram type of created sessions: CLASS, USE_CASE or FREE")
		jsonFlag, err = o.Bool("", "json", "", false, "print sessions as JSON")
		return err
	})
	if err != nil || help {
		return err
	}
	if *dbFlag == "" {
		return xmain.UsageErrorf("sessions needs a database, see --db")
	}
	args = ms.Opts.Flags.Args()
	if len(args) == 0 {
		return xmain.UsageErrorf("sessions must be passed one of list, create, rename or delete")
	}
	typ := umlgraph.DiagramType(*typeFlag)
	if !typ.Valid() {
		return xmain.UsageErrorf("unknown diagram type %q", *typeFlag)
	}

	store, err := openStore(*dbFlag)
	if err != nil {
		return err
	}
	reg := umlsession.NewRegistry(store, umlsession.Options{})
	defer func() {
		err = multierr.Append(err, reg.Close())
	}()

	switch args[0] {
	case "list", "ls":
		if len(args) != 1 {
			return xmain.UsageErrorf("sessions list accepts no arguments")
		}
		sessions, err := reg.List(ctx)
		if err != nil {
			return err
		}
		return printSessions(ms, sessions, *jsonFlag)
	case "create":
		if len(args) != 2 {
			return xmain.UsageErrorf("sessions create must be passed a name")
		}
		s, err := reg.Create(ctx, args[1], typ)
		if err != nil {
			return err
		}
		if *jsonFlag {
			_, err = ms.Stdout.Write([]byte(xjson.MarshalIndent(infoOf(s)) + "\n"))
			return err
		}
		ms.Log.Success.Printf("created %s session %q (%s)", s.Type, s.Name, s.ID)
		return nil
	case "rename":
		if len(args) != 3 {
			return xmain.UsageErrorf("sessions rename must be passed an id and a name")
		}
		if err := reg.Rename(ctx, args[1], args[2]); err != nil {
			return err
		}
		ms.Log.Success.Printf("renamed session %s to %q", args[1], args[2])
		return nil
	case "delete", "rm":
		if len(args) != 2 {
			return xmain.UsageErrorf("sessions delete must be passed an id")
		}
		if err := reg.Delete(ctx, args[1]); err != nil {
			return err
		}
		ms.Log.Success.Printf("deleted session %s", args[1])
		return nil
	default:
		return xmain.UsageErrorf("unknown sessions subcommand %q", args[0])
	}
}

func printSessions(ms *xmain.State, sessions []*umlsession.Session, asJSON bool) error {
	if asJSON {
		infos := make([]sessionInfo, 0, len(sessions))
		for _, s := range sessions {
			infos = append(infos, infoOf(s))
		}
		_, err := ms.Stdout.Write([]byte(xjson.MarshalIndent(infos) + "\n"))
		return err
	}

	tw := tabwriter.NewWriter(ms.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSHAPES\tEDGES\tMODIFIED")
	for _, s := range sessions {
		info := infoOf(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", info.ID, info.Name, info.Type, info.Shapes, info.Edges, info.ModifiedAt.Local().Format(time.RFC3339))
	}
	return tw.Flush()
}
