package umlcli

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"oss.terrastruct.com/xrand"

	"oss.terrastruct.com/umlcanvas/lib/xbrowser"
	"oss.terrastruct.com/umlcanvas/lib/xhttp"
	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlconfig"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umlsession"
)

// Bridge message types.
const (
	MsgLoad        = "uml:load"
	MsgSnapshot    = "uml:snapshot"
	MsgOpen        = "uml:open"
	MsgRequestSave = "uml:request-save"
	MsgReplySave   = "uml:reply-save"
	MsgError       = "uml:error"
)

// Message is the one envelope exchanged over /bridge.
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`

	SessionID   string               `json:"sessionId,omitempty"`
	Name        string               `json:"name,omitempty"`
	DiagramType umlgraph.DiagramType `json:"diagramType,omitempty"`
	Diagram     *umlgraph.Snapshot   `json:"diagram,omitempty"`

	Error string `json:"error,omitempty"`
}

type serverOpts struct {
	host        string
	port        string
	maxConns    int
	watchPath   string
	openName    string
	openType    umlgraph.DiagramType
	syncTimeout time.Duration
	browser     bool
}

type server struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ms *xmain.State
	serverOpts

	reg *umlsession.Registry

	fw *fsnotify.Watcher
	l  net.Listener

	wsclientsMu sync.Mutex
	closing     bool
	wsclientsWG sync.WaitGroup
	wsclients   map[*wsclient]struct{}
	// latest is the most recently connected surface. It answers snapshot
	// requests.
	latest *wsclient

	pendingMu sync.Mutex
	pending   map[string]chan *umlsession.SnapshotReply

	errMu sync.Mutex
	err   error
}

func serveCmd(ctx context.Context, ms *xmain.State, cfg *umlconfig.Config, args []string) (err error) {
	var hostFlag, portFlag, dbFlag, watchFlag, openFlag, typeFlag *string
	var maxConnsFlag *int64
	var syncTimeoutFlag *time.Duration
	help, err := parse(ms, args, func(o *xmain.Opts) (err error) {
		hostFlag = o.String("HOST", "host", "h", "localhost", "host listening address")
		portFlag = o.String("PORT", "port", "p", "0", "port listening address. 0 picks a free port")
		dbFlag = o.String("UMLCANVAS_DB", "db", "", cfg.Session.DB, `SQLite session database. "" keeps sessions in memory`)
		watchFlag = o.String("", "watch", "w", "", "diagram file to reload into the open session whenever it changes")
		openFlag = o.String("", "open", "", "", "name or id of the session to open, created if missing")
		typeFlag = o.String("", "type", "t", string(umlgraph.UseCaseDiagram), "diagram type of a session created by --open or --watch")
		maxConnsFlag, err = o.Int64("", "max-conns", "", 64, "maximum concurrent connections. 0 is unlimited")
		if err != nil {
			return err
		}
		syncTimeoutFlag, err = o.Duration("UMLCANVAS_SYNC_TIMEOUT", "sync-timeout", "", cfg.Session.SyncTimeout, "how long a session switch waits for the surface's state")
		return err
	})
	if err != nil || help {
		return err
	}
	if len(ms.Opts.Flags.Args()) > 0 {
		return xmain.UsageErrorf("serve accepts no arguments")
	}
	typ := umlgraph.DiagramType(*typeFlag)
	if !typ.Valid() {
		return xmain.UsageErrorf("unknown diagram type %q", *typeFlag)
	}

	store, err := openStore(*dbFlag)
	if err != nil {
		return err
	}
	s, err := newServer(ctx, ms, store, serverOpts{
		host:        *hostFlag,
		port:        *portFlag,
		maxConns:    int(*maxConnsFlag),
		watchPath:   *watchFlag,
		openName:    *openFlag,
		openType:    typ,
		syncTimeout: *syncTimeoutFlag,
		browser:     !xbrowser.Disabled(ms.Env),
	})
	if err != nil {
		return multierr.Append(err, store.Close())
	}
	return s.run()
}

func newServer(ctx context.Context, ms *xmain.State, store umlsession.Store, opts serverOpts) (*server, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &server{
		ctx:    ctx,
		cancel: cancel,

		ms:         ms,
		serverOpts: opts,

		wsclients: make(map[*wsclient]struct{}),
		pending:   make(map[string]chan *umlsession.SnapshotReply),
	}
	s.reg = umlsession.NewRegistry(store, umlsession.Options{
		SyncTimeout: opts.syncTimeout,
		Provider:    s.requestSnapshot,
		OnSwitch:    s.onSwitch,
	})
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *server) init() error {
	if s.watchPath != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		s.fw = fw
	}
	if err := s.openInitial(); err != nil {
		return err
	}
	l, err := xhttp.Listen(s.host, s.port, s.maxConns)
	if err != nil {
		return err
	}
	s.l = l
	s.ms.Log.Success.Printf("listening on http://%v", s.l.Addr())
	return nil
}

// openInitial opens --open, or the session named after --watch, or the most
// recently modified session, creating one when there is nothing to open.
func (s *server) openInitial() error {
	name := s.openName
	if name == "" && s.watchPath != "" {
		name = filepath.Base(s.watchPath)
	}
	if name != "" {
		return s.openOrCreate(s.ctx, name, s.openType)
	}

	sessions, err := s.reg.List(s.ctx)
	if err != nil {
		return err
	}
	if len(sessions) > 0 {
		_, err = s.reg.Open(s.ctx, sessions[0].ID)
		return err
	}
	_, err = s.reg.Create(s.ctx, "untitled", s.openType)
	return err
}

// openOrCreate opens the session whose id or name is key, or creates one
// named key.
func (s *server) openOrCreate(ctx context.Context, key string, typ umlgraph.DiagramType) error {
	if _, err := s.reg.Store().Get(ctx, key); err == nil {
		_, err = s.reg.Open(ctx, key)
		return err
	} else if !errors.Is(err, umlsession.ErrNotFound) {
		return err
	}
	found, err := s.reg.FindByName(ctx, key)
	if err != nil {
		return err
	}
	if found != nil {
		_, err = s.reg.Open(ctx, found.ID)
		return err
	}
	// Create does not sync the outgoing session on its own.
	s.reg.Sync(ctx)
	_, err = s.reg.Create(ctx, key, typ)
	return err
}

func (s *server) run() error {
	defer s.close()

	if s.fw != nil {
		s.goFunc(s.watchLoop)
	}
	s.goServe()
	if s.browser {
		url := fmt.Sprintf("http://%s", s.l.Addr())
		if err := xbrowser.Open(s.ctx, s.ms.Env, url); err != nil {
			s.ms.Log.Warn.Printf("failed to open browser to %v: %v", url, err)
		}
	}

	s.wg.Wait()
	s.close()
	if errors.Is(s.err, context.Canceled) {
		return nil
	}
	return s.err
}

func (s *server) close() {
	s.wsclientsMu.Lock()
	if s.closing {
		s.wsclientsMu.Unlock()
		return
	}
	s.closing = true
	s.wsclientsMu.Unlock()

	s.cancel()
	if s.fw != nil {
		s.setErr(s.fw.Close())
	}
	if s.l != nil {
		err := s.l.Close()
		if !errors.Is(err, net.ErrClosed) {
			s.setErr(err)
		}
	}

	s.wsclientsWG.Wait()
	s.setErr(s.reg.Close())
}

func (s *server) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *server) goFunc(fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.cancel()

		err := fn(s.ctx)
		s.setErr(err)
	}()
}

// spawn runs fn in the background unless the server is closing. close waits
// for it.
func (s *server) spawn(fn func()) bool {
	s.wsclientsMu.Lock()
	if s.closing {
		s.wsclientsMu.Unlock()
		return false
	}
	s.wsclientsWG.Add(1)
	s.wsclientsMu.Unlock()

	go func() {
		defer s.wsclientsWG.Done()
		fn()
	}()
	return true
}

func (s *server) goServe() {
	m := http.NewServeMux()
	m.HandleFunc("/", s.handleRoot)
	m.Handle("/sessions", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleSessions})
	m.Handle("/sessions/current", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleCurrent})
	m.Handle("/bridge", xhttp.HandlerFuncAdapter{Log: s.ms.Log, Func: s.handleBridge})

	hs := xhttp.NewServer(s.ms.Log.Warn, xhttp.Log(s.ms.Log, m))
	s.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, hs, s.l)
	})
}

func (s *server) handleRoot(hw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(hw, r)
		return
	}
	name := "none"
	if cur, err := s.reg.Current(r.Context()); err == nil && cur != nil {
		name = cur.Name
	}
	s.wsclientsMu.Lock()
	clients := len(s.wsclients)
	s.wsclientsMu.Unlock()

	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(hw, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>umlcanvas</title>
</head>
<body>
	<p>Open session: <b>%s</b></p>
	<p>Connected surfaces: %d</p>
	<p>Surfaces connect to <code>/bridge</code>. Sessions are listed at <a href="/sessions">/sessions</a>.</p>
</body>
</html>`, html.EscapeString(name), clients)
}

func (s *server) handleSessions(hw http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return xhttp.Errorf(http.StatusMethodNotAllowed, nil, "%s not allowed", r.Method)
	}
	sessions, err := s.reg.List(r.Context())
	if err != nil {
		return err
	}
	infos := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, infoOf(sess))
	}
	xhttp.JSON(s.ms.Log, hw, http.StatusOK, infos)
	return nil
}

func (s *server) handleCurrent(hw http.ResponseWriter, r *http.Request) error {
	cur, err := s.reg.Current(r.Context())
	if err != nil {
		return err
	}
	if cur == nil {
		return xhttp.Errorf(http.StatusNotFound, "no open session", "no open session")
	}
	xhttp.JSON(s.ms.Log, hw, http.StatusOK, cur)
	return nil
}

func (s *server) handleBridge(hw http.ResponseWriter, r *http.Request) error {
	s.wsclientsMu.Lock()
	if s.closing {
		s.wsclientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "server shutting down...")
	}
	// Register before the upgrade so that close waits for this connection.
	s.wsclientsWG.Add(1)
	s.wsclientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		s.wsclientsWG.Done()
		return err
	}

	go func() {
		defer s.wsclientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(s.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			id:  xrand.Base64(8),
			s:   s,
			c:   c,
			out: make(chan *Message, 16),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		if cur, err := s.reg.Current(ctx); err == nil && cur != nil {
			cl.send(loadMessage(cur))
		}

		go wsHeartbeat(ctx, c)
		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			defer cancel()
			err := cl.readLoop(ctx)
			if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				s.ms.Log.Debug.Printf("surface %s read failed: %v", cl.id, err)
			}
		}()
		_ = cl.writeLoop(ctx)
		cancel()
		<-readDone
	}()
	return nil
}

func (s *server) addClient(cl *wsclient) {
	s.wsclientsMu.Lock()
	defer s.wsclientsMu.Unlock()
	s.wsclients[cl] = struct{}{}
	s.latest = cl
	s.ms.Log.Info.Printf("surface %s connected (%d total)", cl.id, len(s.wsclients))
}

func (s *server) removeClient(cl *wsclient) {
	s.wsclientsMu.Lock()
	defer s.wsclientsMu.Unlock()
	delete(s.wsclients, cl)
	if s.latest == cl {
		s.latest = nil
		for other := range s.wsclients {
			s.latest = other
			break
		}
	}
	s.ms.Log.Info.Printf("surface %s disconnected", cl.id)
}

func (s *server) latestClient() *wsclient {
	s.wsclientsMu.Lock()
	defer s.wsclientsMu.Unlock()
	return s.latest
}

// requestSnapshot asks the latest surface for its diagram and waits for the
// reply carrying the same request id.
func (s *server) requestSnapshot(ctx context.Context, req umlsession.SnapshotRequest) (*umlsession.SnapshotReply, error) {
	cl := s.latestClient()
	if cl == nil {
		return nil, errors.New("no surface connected")
	}

	ch := make(chan *umlsession.SnapshotReply, 1)
	s.pendingMu.Lock()
	s.pending[req.ID] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, req.ID)
		s.pendingMu.Unlock()
	}()

	if !cl.send(&Message{Type: MsgRequestSave, RequestID: req.ID}) {
		return nil, fmt.Errorf("surface %s is not keeping up", cl.id)
	}
	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *server) deliverReply(m *Message) {
	s.pendingMu.Lock()
	ch, ok := s.pending[m.RequestID]
	s.pendingMu.Unlock()
	if !ok {
		s.ms.Log.Debug.Printf("dropping reply to unknown request %q", m.RequestID)
		return
	}
	select {
	case ch <- &umlsession.SnapshotReply{ID: m.RequestID, Snapshot: m.Diagram}:
	default:
	}
}

func (s *server) onSwitch(sess *umlsession.Session) {
	s.ms.Log.Info.Printf("switched to session %q (%s)", sess.Name, sess.ID)
	s.broadcast(loadMessage(sess))
}

func loadMessage(sess *umlsession.Session) *Message {
	return &Message{
		Type:        MsgLoad,
		SessionID:   sess.ID,
		Name:        sess.Name,
		DiagramType: sess.Type,
		Diagram:     sess.Snapshot,
	}
}

func (s *server) broadcast(m *Message) {
	s.wsclientsMu.Lock()
	defer s.wsclientsMu.Unlock()
	clientsSuffix := ""
	if len(s.wsclients) != 1 {
		clientsSuffix = "s"
	}
	s.ms.Log.Info.Printf("broadcasting %s to %d surface%s", m.Type, len(s.wsclients), clientsSuffix)
	for cl := range s.wsclients {
		cl.send(m)
	}
}

func (s *server) handleMessage(ctx context.Context, cl *wsclient, m *Message) {
	switch m.Type {
	case MsgReplySave:
		s.deliverReply(m)
	case MsgSnapshot:
		if m.Diagram == nil {
			cl.send(&Message{Type: MsgError, Error: "snapshot without diagram"})
			return
		}
		var err error
		if m.SessionID != "" {
			_, err = s.reg.SaveTo(ctx, m.SessionID, m.Diagram)
		} else {
			_, err = s.reg.Save(ctx, m.Diagram)
		}
		if err != nil {
			cl.send(&Message{Type: MsgError, SessionID: m.SessionID, Error: err.Error()})
		}
	case MsgOpen:
		key := m.SessionID
		if key == "" {
			key = m.Name
		}
		if key == "" {
			cl.send(&Message{Type: MsgError, Error: "open needs a session id or name"})
			return
		}
		typ := m.DiagramType
		if !typ.Valid() {
			typ = s.openType
		}
		// The switch waits on this client's reply, so it cannot run on the
		// read loop.
		s.spawn(func() {
			if err := s.openOrCreate(s.ctx, key, typ); err != nil {
				s.ms.Log.Warn.Printf("failed to open %q for surface %s: %v", key, cl.id, err)
				cl.send(&Message{Type: MsgError, Error: err.Error()})
			}
		})
	default:
		cl.send(&Message{Type: MsgError, Error: fmt.Sprintf("unknown message type %q", m.Type)})
	}
}

type wsclient struct {
	id  string
	s   *server
	c   *websocket.Conn
	out chan *Message
}

// send queues m without blocking. It reports false when the queue is full.
func (cl *wsclient) send(m *Message) bool {
	select {
	case cl.out <- m:
		return true
	default:
		cl.s.ms.Log.Warn.Printf("dropping %s for slow surface %s", m.Type, cl.id)
		return false
	}
}

func (cl *wsclient) readLoop(ctx context.Context) error {
	for {
		var m Message
		if err := wsjson.Read(ctx, cl.c, &m); err != nil {
			return err
		}
		cl.s.handleMessage(ctx, cl, &m)
	}
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		select {
		case m := <-cl.out:
			if err := cl.write(ctx, m); err != nil {
				return err
			}
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, m *Message) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, m)
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	t := time.NewTimer(0)
	<-t.C
	for {
		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}

		if err := c.Ping(ctx); err != nil {
			return
		}
	}
}

// watchLoop reloads watchPath into the open session on every change. Bursts
// of events are coalesced and a periodic poll catches missed events.
func (s *server) watchLoop(ctx context.Context) error {
	mt, err := s.ensureAddWatch(ctx, s.watchPath)
	if err != nil {
		return err
	}
	lastModified := mt
	s.reload(ctx)

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	for {
		select {
		case <-pollTicker.C:
			mt, err := s.ensureAddWatch(ctx, s.watchPath)
			if err != nil {
				return err
			}
			if !mt.Equal(lastModified) {
				lastModified = mt
				s.reload(ctx)
			}
		case ev, ok := <-s.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			s.ms.Log.Debug.Printf("received file system event %v", ev)
			mt, err := s.ensureAddWatch(ctx, s.watchPath)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod && mt.Equal(lastModified) {
				continue
			}
			lastModified = mt
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			s.ms.Log.Info.Printf("detected change in %s: reloading...", s.ms.HumanPath(s.watchPath))
			s.reload(ctx)
		case err, ok := <-s.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			s.ms.Log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *server) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := s.addWatch(path)
		if err == nil {
			return mt, nil
		}
		if interval >= time.Second {
			s.ms.Log.Error.Printf("failed to watch %q: %v (retrying in %v)", s.ms.HumanPath(path), err, interval)
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second {
				interval = time.Second
			}
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (s *server) addWatch(path string) (time.Time, error) {
	if err := s.fw.Add(path); err != nil {
		return time.Time{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// reload saves the watched file into the open session and pushes it to every
// surface. Unreadable files are reported and otherwise ignored.
func (s *server) reload(ctx context.Context) {
	snap, err := readSnapshot(s.ms, s.watchPath)
	if err != nil {
		s.ms.Log.Error.Print(err)
		s.broadcast(&Message{Type: MsgError, Error: err.Error()})
		return
	}
	// The file is mirrored into whichever session is open.
	snap.ID = ""
	sess, err := s.reg.Save(ctx, snap)
	if err != nil {
		s.ms.Log.Error.Printf("failed to save %s: %v", s.ms.HumanPath(s.watchPath), err)
		return
	}
	s.broadcast(loadMessage(sess))
}
