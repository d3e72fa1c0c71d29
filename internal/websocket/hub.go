// Package websocket serves the live State and Info feeds: fan-out hubs
// that push JSON snapshots to attached browser clients. Publication never
// blocks on a client; a client whose send buffer is full is dropped and
// must reconnect.
package websocket

import (
	"encoding/json"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/domain/settings"
	"go.uber.org/zap"
)

// Hub maintains the set of attached clients and fans a payload stream out
// to them. A newly attached client first receives the latest payload, then
// every subsequent broadcast.
type Hub struct {
	log *zap.Logger

	// Attached clients
	clients map[*Client]bool

	// Outbound payloads to fan out
	broadcast chan []byte

	// Attach requests from the handler
	register chan *Client

	// Detach requests from client read pumps
	unregister chan *Client

	quit chan struct{}

	// Latest payload, owned by the run loop
	last []byte
}

// NewHub builds a hub. Call Run in a goroutine before attaching clients.
func NewHub(log *zap.Logger, name string) *Hub {
	return &Hub{
		log:        log.Named(name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run drives the hub until Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			// Snapshot first, deltas after.
			if h.last != nil {
				client.send <- h.last
			}
			h.log.Debug("client attached", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.log.Debug("client detached", zap.Int("clients", len(h.clients)))

		case payload := <-h.broadcast:
			h.last = payload
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Slow client: drop it rather than stall the feed.
					delete(h.clients, client)
					close(client.send)
					h.log.Warn("dropped slow client", zap.Int("clients", len(h.clients)))
				}
			}
		}
	}
}

// Close detaches every client and stops the run loop.
func (h *Hub) Close() { close(h.quit) }

// Publish queues a payload for fan-out. Drops the payload when the hub's
// own queue is full; a fresher snapshot always follows.
func (h *Hub) Publish(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.quit:
	default:
		h.log.Warn("publish queue full, payload dropped")
	}
}

// Feeds bundles the two live feeds and adapts them to the publisher
// interfaces the services expect.
type Feeds struct {
	log   *zap.Logger
	State *Hub
	Info  *Hub
}

// NewFeeds builds both hubs and starts their run loops.
func NewFeeds(log *zap.Logger) *Feeds {
	f := &Feeds{
		log:   log.Named("feeds"),
		State: NewHub(log, "state_hub"),
		Info:  NewHub(log, "info_hub"),
	}
	go f.State.Run()
	go f.Info.Run()
	return f
}

// Close stops both hubs.
func (f *Feeds) Close() {
	f.State.Close()
	f.Info.Close()
}

// PublishState pushes a registry snapshot to the State feed.
func (f *Feeds) PublishState(restreams []restream.Restream) {
	payload, err := json.Marshal(restreams)
	if err != nil {
		f.log.Error("encode state snapshot", zap.Error(err))
		return
	}
	f.State.Publish(payload)
}

// PublishInfo pushes the public settings view to the Info feed.
func (f *Feeds) PublishInfo(info settings.Public) {
	payload, err := json.Marshal(info)
	if err != nil {
		f.log.Error("encode info snapshot", zap.Error(err))
		return
	}
	f.Info.Publish(payload)
}
