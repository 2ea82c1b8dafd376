package apis

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	feedClientBuffer = 64
	feedWriteTimeout = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header["Origin"]
		if len(origin) == 0 {
			return true
		}
		u, err := url.Parse(origin[0])
		if err != nil {
			return false
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1" || u.Scheme == "moz-extension"
	},
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed serves status events as JSON text messages on /ws.
type Feed struct {
	mu      sync.Mutex
	clients map[*feedClient]struct{}
	server  *http.Server
}

func NewFeed() *Feed {
	return &Feed{clients: make(map[*feedClient]struct{})}
}

// Handler returns the mux serving /ws.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.ws)
	return mux
}

// Start listens on addr and serves in the background.
func (f *Feed) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	f.server = &http.Server{Handler: f.Handler()}
	glog.Infof("status feed listening on ws://%s/ws", ln.Addr())
	go func() {
		if err := f.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("status feed exited: %v", err)
		}
	}()
	return nil
}

// Close stops the server and drops all clients.
func (f *Feed) Close() {
	if f.server != nil {
		f.server.Close()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		f.drop(c)
	}
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Publish queues s for every client. Clients that fall behind lose events.
func (f *Feed) Publish(s Status) {
	msg, err := json.Marshal(s)
	if err != nil {
		glog.Warningf("could not marshal status: %v", err)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			glog.V(1).Infof("feed client %p is slow, discarding %s", c, s.Type)
		}
	}
}

func (f *Feed) ws(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("websocket upgrade failed: %v", err)
		return
	}
	c := &feedClient{conn: conn, send: make(chan []byte, feedClientBuffer)}
	f.mu.Lock()
	f.clients[c] = struct{}{}
	n := len(f.clients)
	f.mu.Unlock()
	glog.Infof("feed client %s connected (%d total)", r.RemoteAddr, n)

	go f.writer(c)
	// the feed is one-way; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			glog.V(1).Infof("websocket read failed: %v", err)
			break
		}
	}
	f.mu.Lock()
	f.drop(c)
	f.mu.Unlock()
}

func (f *Feed) writer(c *feedClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			glog.Warningf("websocket write failed: %v", err)
			return
		}
	}
}

// drop expects f.mu to be held.
func (f *Feed) drop(c *feedClient) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	close(c.send)
}
