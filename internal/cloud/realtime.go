package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	realtimeTopic         = "realtime:public:events"
	heartbeatInterval     = 25 * time.Second
	realtimeHandshakeWait = 10 * time.Second
)

// phoenixMessage is Supabase Realtime's phoenix-channel envelope: every
// frame in both directions carries a topic, an event name, and a payload.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type joinPayload struct {
	Config joinConfig `json:"config"`
}

type joinConfig struct {
	PostgresChanges []postgresChangeFilter `json:"postgres_changes"`
}

type postgresChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type postgresChangePayload struct {
	Data postgresChangeData `json:"data"`
}

type postgresChangeData struct {
	Type   string   `json:"type"`
	Record eventRow `json:"record"`
}

// realtimeConn is one Supabase Realtime websocket session subscribed to
// INSERT changes on the events table.
type realtimeConn struct {
	conn *websocket.Conn

	onInsert func(eventRow)
	onStatus func(string, error)

	joined chan error
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

func dialRealtime(ctx context.Context, baseURL, apiKey string) (*realtimeConn, error) {
	wsURL, err := toWebsocketURL(baseURL, apiKey)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, realtimeHandshakeWait)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime websocket: %w", err)
	}

	return &realtimeConn{conn: conn, joined: make(chan error, 1)}, nil
}

func toWebsocketURL(baseURL, apiKey string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid supabase url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := u.Query()
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// start sends the join frame and launches the background read loop, then
// blocks until the join is acknowledged, the connection fails, or ctx's
// deadline (bounded to realtimeHandshakeWait) expires first — whichever
// happens, Subscribe never blocks past that window. Event delivery and
// subsequent status transitions continue on the background goroutine
// after start returns.
func (c *realtimeConn) start(ctx context.Context) error {
	if err := c.join(); err != nil {
		return err
	}

	go c.heartbeatLoop()
	go c.readLoop()

	joinCtx, cancel := context.WithTimeout(ctx, realtimeHandshakeWait)
	defer cancel()

	select {
	case err := <-c.joined:
		return err
	case <-joinCtx.Done():
		c.close()
		return fmt.Errorf("timed out waiting for realtime join acknowledgement: %w", joinCtx.Err())
	}
}

func (c *realtimeConn) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(realtimeHandshakeWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.reportStatus(StatusChannelErr, err)
			return
		}

		var msg phoenixMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // malformed frame: logged and dropped by the caller, never propagated
		}
		c.handle(msg)
	}
}

func (c *realtimeConn) join() error {
	payload := joinPayload{Config: joinConfig{PostgresChanges: []postgresChangeFilter{
		{Event: "INSERT", Schema: "public", Table: "events"},
	}}}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := phoenixMessage{Topic: realtimeTopic, Event: "phx_join", Payload: raw, Ref: "1"}
	return c.send(msg)
}

func (c *realtimeConn) send(msg phoenixMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *realtimeConn) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		err := c.send(phoenixMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage("{}"), Ref: "heartbeat"})
		if err != nil {
			return
		}
	}
}

func (c *realtimeConn) handle(msg phoenixMessage) {
	switch msg.Event {
	case "phx_reply":
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return
		}
		if reply.Status == "ok" {
			_ = c.conn.SetReadDeadline(time.Time{})
			c.reportStatus(StatusSubscribed, nil)
		} else {
			c.reportStatus(StatusChannelErr, fmt.Errorf("join rejected: %s", string(reply.Response)))
		}
	case "phx_error":
		c.reportStatus(StatusChannelErr, fmt.Errorf("channel error"))
	case "postgres_changes":
		var change postgresChangePayload
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			return // malformed push payload: logged and dropped, not propagated
		}
		if change.Data.Type != "INSERT" {
			return
		}
		if c.onInsert != nil {
			c.onInsert(change.Data.Record)
		}
	}
}

func (c *realtimeConn) reportStatus(status string, err error) {
	c.once.Do(func() { c.joined <- err })
	if c.onStatus != nil {
		c.onStatus(status, err)
	}
}

func (c *realtimeConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}
