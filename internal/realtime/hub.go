package realtime

import "context"

type directMessage struct {
	client *Client
	data   []byte
}

// Hub owns the set of connected surfaces and fans messages out to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for every client.
	broadcast chan []byte

	// Messages for a single client.
	direct chan directMessage

	register   chan *Client
	unregister chan *Client

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		direct:     make(chan directMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}

		case m := <-h.direct:
			if _, ok := h.clients[m.client]; ok {
				h.deliver(m.client, m.data)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	_ = client.conn.Close()
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// SendTo queues a message for one client. Unknown clients are ignored.
func (h *Hub) SendTo(c *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: c, data: message}:
	case <-h.done:
	}
}

