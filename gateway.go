/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/tabletop/games/table"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const (
	playerCookieName = "tabletop_id"
	sendBuffer       = 32
	writeWait        = 10 * time.Second
	maxMessageSize   = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// envelope is one inbound client request. Room and Seat are advisory: the
// connection is bound to the room in its URL and to the seat it joined.
type envelope struct {
	Room     string `json:"room,omitempty"`
	Seat     *int   `json:"seat,omitempty"`
	Device   string `json:"device,omitempty"`
	Action   string `json:"action"`
	Name     string `json:"name,omitempty"`
	Amount   int    `json:"amount,omitempty"`
	Buy      bool   `json:"buy,omitempty"`
	Hold     []int  `json:"hold,omitempty"`
	Category string `json:"category,omitempty"`
}

type stateMessage struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Phase   string `json:"phase"`
	Seq     uint64 `json:"seq"`
	State   any    `json:"state"`
	Private any    `json:"private,omitempty"`
}

type rejectedMessage struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type joinedMessage struct {
	Type string `json:"type"`
	Seat int    `json:"seat"`
}

type Client struct {
	id       uuid.UUID
	conn     *websocket.Conn
	send     chan any
	playerID string
	code     string

	// seat and device are guarded by the gateway mutex.
	seat   int
	device string

	mu     sync.Mutex
	closed bool
}

// push queues msg without blocking. A client whose buffer is full is
// closed and will be dropped by its read loop.
func (c *Client) push(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type hub struct {
	clients map[*Client]struct{}
	seats   map[int]int
}

// unbind detaches c from its seat and reports whether it was the last
// connection bound there.
func (h *hub) unbind(c *Client) bool {
	if c.seat < 0 {
		return false
	}
	last := false
	h.seats[c.seat]--
	if h.seats[c.seat] <= 0 {
		delete(h.seats, c.seat)
		last = true
	}
	c.seat = table.None
	c.device = ""
	return last
}

// Gateway carries room updates to the websocket clients of one game.
type Gateway struct {
	game string
	reg  *table.Registry
	log  zerolog.Logger

	mu   sync.Mutex
	hubs map[string]*hub
}

func newGateway(game string, log zerolog.Logger) *Gateway {
	return &Gateway{
		game: game,
		log:  log.With().Str("game", game).Logger(),
		hubs: make(map[string]*hub),
	}
}

func (gw *Gateway) state(u table.Update, seat int) stateMessage {
	msg := stateMessage{
		Type:  "state",
		Room:  u.Room,
		Phase: u.Phase,
		Seq:   u.Seq,
		State: u.Public,
	}
	if seat >= 0 {
		msg.Private = u.Private[seat]
	}
	return msg
}

// Publish implements table.Publisher.
func (gw *Gateway) Publish(u table.Update) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	h, ok := gw.hubs[u.Room]
	if !ok {
		return
	}

	for c := range h.clients {
		// A seat released or handed to another device no longer belongs
		// to this connection.
		if c.seat >= 0 && u.Holders != nil && u.Holders[c.seat] != c.device {
			gw.log.Debug().
				Str("room", u.Room).
				Str("client", c.id.String()).
				Int("seat", c.seat).
				Msg("SERVE: Unbound released seat")
			h.unbind(c)
		}
		if !c.push(gw.state(u, c.seat)) {
			gw.log.Debug().
				Str("room", u.Room).
				Str("client", c.id.String()).
				Msg("SERVE: Dropped slow client")
		}
	}
}

// Closed implements table.Publisher.
func (gw *Gateway) Closed(code string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if h, ok := gw.hubs[code]; ok {
		for c := range h.clients {
			c.close()
		}
		delete(gw.hubs, code)
	}
}

func (gw *Gateway) add(c *Client) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	h, ok := gw.hubs[c.code]
	if !ok {
		h = &hub{
			clients: make(map[*Client]struct{}),
			seats:   make(map[int]int),
		}
		gw.hubs[c.code] = h
	}
	h.clients[c] = struct{}{}
}

// remove drops c and reports the seat it held and whether it was the
// last connection bound to that seat.
func (gw *Gateway) remove(c *Client) (int, bool) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	h, ok := gw.hubs[c.code]
	if !ok {
		return table.None, false
	}
	if _, ok := h.clients[c]; !ok {
		return table.None, false
	}
	delete(h.clients, c)

	seat := c.seat
	last := h.unbind(c)

	if len(h.clients) == 0 {
		delete(gw.hubs, c.code)
	}
	return seat, last
}

func (gw *Gateway) bind(c *Client, seat int, device string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	h, ok := gw.hubs[c.code]
	if !ok {
		return
	}
	if c.seat == seat {
		c.device = device
		return
	}
	h.unbind(c)
	c.seat = seat
	c.device = device
	h.seats[seat]++
}

// unbindSeat detaches every connection from a released seat.
func (gw *Gateway) unbindSeat(code string, seat int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	h, ok := gw.hubs[code]
	if !ok {
		return
	}
	for c := range h.clients {
		if c.seat == seat {
			h.unbind(c)
		}
	}
}

func (gw *Gateway) seatOf(c *Client) int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return c.seat
}

func reject(c *Client, action string, err error) {
	msg := rejectedMessage{
		Type:    "rejected",
		Action:  action,
		Code:    "unavailable",
		Kind:    string(table.Resource),
		Message: err.Error(),
	}
	if e, ok := table.AsError(err); ok {
		msg.Code = e.Code
		msg.Kind = string(e.Kind)
	}
	c.push(msg)
}

func playerCookie(r *http.Request) (string, *http.Cookie) {
	if cookie, err := r.Cookie(playerCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String(), nil
		}
	}

	id := uuid.NewString()

	return id, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	id, cookie := playerCookie(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return id
}

func (gw *Gateway) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, err := table.NormalizeCode(ps.ByName("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		playerID, cookie := playerCookie(r)

		var header http.Header
		if cookie != nil {
			header = http.Header{"Set-Cookie": {cookie.String()}}
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			gw.log.Warn().Err(err).Str("room", code).Msg("SERVE: Upgrade failed")
			return
		}

		c := &Client{
			id:       uuid.New(),
			conn:     conn,
			send:     make(chan any, sendBuffer),
			playerID: playerID,
			code:     code,
			seat:     table.None,
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		room, err := gw.reg.Attach(ctx, code, func(u table.Update) {
			gw.add(c)
			c.push(gw.state(u, table.None))
		})
		cancel()
		if err != nil {
			reject(c, "connect", err)
			c.close()
			c.writePump()
			return
		}

		gw.log.Debug().
			Str("room", code).
			Str("client", c.id.String()).
			Str("ip", realIP(r)).
			Msg("SERVE: Client connected")

		go c.writePump()
		gw.readPump(c, room)
	}
}

func (gw *Gateway) readPump(c *Client, room *table.Room) {
	defer func() {
		seat, last := gw.remove(c)
		if last {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			if err := gw.reg.Disconnect(ctx, c.code, seat); err != nil {
				gw.log.Debug().Err(err).Str("room", c.code).Int("seat", seat).Msg("SERVE: Disconnect not applied")
			}
			cancel()
		}
		gw.reg.Detach(room)
		c.close()
		_ = c.conn.Close()

		gw.log.Debug().
			Str("room", c.code).
			Str("client", c.id.String()).
			Msg("SERVE: Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			reject(c, "", table.Reject(table.ErrInvalidPayload, "malformed message"))
			continue
		}

		gw.handle(c, room, env)
	}
}

func (gw *Gateway) handle(c *Client, room *table.Room, env envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	device := strings.TrimSpace(env.Device)
	if device == "" {
		device = c.playerID
	}

	kind := table.ActionKind(env.Action)

	switch kind {
	case table.Join, table.Reconnect:
		var (
			seat int
			err  error
		)
		if kind == table.Join {
			seat, err = gw.reg.Join(ctx, c.code, device, env.Name)
		} else {
			seat, err = gw.reg.Reconnect(ctx, c.code, device)
		}
		if err != nil {
			reject(c, env.Action, err)
			return
		}

		gw.bind(c, seat, device)
		c.push(joinedMessage{Type: "joined", Seat: seat})

		if err := room.Sync(ctx, func(u table.Update) {
			c.push(gw.state(u, seat))
		}); err != nil {
			reject(c, env.Action, err)
		}

	case table.Leave:
		seat := gw.seatOf(c)
		if seat < 0 {
			reject(c, env.Action, table.Reject(table.ErrSeatEmpty, "not seated"))
			return
		}
		if err := gw.reg.Leave(ctx, c.code, seat); err != nil {
			reject(c, env.Action, err)
			return
		}
		gw.unbindSeat(c.code, seat)

	default:
		a := table.Action{
			Kind:     kind,
			Seat:     gw.seatOf(c),
			Device:   device,
			Name:     env.Name,
			Amount:   env.Amount,
			Buy:      env.Buy,
			Hold:     env.Hold,
			Category: env.Category,
		}
		if _, err := gw.reg.Apply(ctx, c.code, a); err != nil {
			reject(c, env.Action, err)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
