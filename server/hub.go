package main

import (
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/burntcarrot/waypad/commons"
	"github.com/burntcarrot/waypad/store"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Upgrader instance to upgrade all HTTP connections to a WebSocket.
var upgrader = websocket.Upgrader{}

// client is one connected editor.
type client struct {
	conn     *websocket.Conn
	id       uuid.UUID
	username string
}

// hub owns the authoritative document and relays changes between clients.
type hub struct {
	// doc holds every record written by any client.
	doc *store.Store

	mu      sync.Mutex
	clients map[uuid.UUID]*client

	// messages carries client messages to run, which is the only goroutine
	// writing to connections.
	messages chan commons.Message
	done     chan struct{}
}

func newHub() *hub {
	return &hub{
		doc:      store.New(),
		clients:  make(map[uuid.UUID]*client),
		messages: make(chan commons.Message),
		done:     make(chan struct{}),
	}
}

// handleConn registers the connection and forwards its messages to the hub.
func (h *hub) handleConn(w http.ResponseWriter, r *http.Request) {
	// Upgrade incoming HTTP connections to WebSocket connections
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading connection to websocket: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, id: uuid.New()}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	// Ask the hub to send the current document to the new client.
	if !h.post(commons.Message{Type: commons.SnapshotMessage, ID: c.id}) {
		return
	}

	for {
		var msg commons.Message

		// Read message from the connection.
		err := conn.ReadJSON(&msg)
		if err != nil {
			log.Printf("Closing connection with ID: %v", c.id)
			h.mu.Lock()
			delete(h.clients, c.id)
			h.mu.Unlock()
			h.post(commons.Message{Type: commons.UsersMessage})
			break
		}

		// Set message ID
		msg.ID = c.id

		if !h.post(msg) {
			return
		}
	}
}

// post hands msg to run, reporting false once the hub has stopped.
func (h *hub) post(msg commons.Message) bool {
	select {
	case h.messages <- msg:
		return true
	case <-h.done:
		return false
	}
}

// stop ends run.
func (h *hub) stop() {
	close(h.done)
}

// run applies messages to the document and broadcasts them until stop.
func (h *hub) run() {
	for {
		var msg commons.Message
		select {
		case msg = <-h.messages:
		case <-h.done:
			return
		}
		h.handle(msg)
	}
}

func (h *hub) handle(msg commons.Message) {
	t := time.Now().Format(time.ANSIC)

	switch msg.Type {
	case commons.SnapshotMessage:
		// A snapshot from a client is a request for the document.
		color.Blue("%s >> sending %d records to %v\n", t, h.doc.Len(), msg.ID)
		h.sendTo(msg.ID, commons.Message{Type: commons.SnapshotMessage, Records: h.doc.Records()})

	case commons.InsertMessage, commons.DeleteMessage:
		if _, err := commons.Apply(h.doc, msg); err != nil {
			// The sender's copy is out of step with ours; resynchronize it.
			color.Red("%s >> rejected %s from %v: %v\n", t, msg.Type, msg.ID, err)
			h.sendTo(msg.ID, commons.Message{Type: commons.SnapshotMessage, Records: h.doc.Records()})
			return
		}
		color.Green("%s >> %s %s (%d records, %d keys)\n", t, h.username(msg.ID), msg.Type, len(msg.Records), len(msg.Keys))
		h.broadcast(msg)

	case commons.JoinMessage:
		h.mu.Lock()
		if c, ok := h.clients[msg.ID]; ok {
			c.username = msg.Username
		}
		h.mu.Unlock()

		color.Green("%s >> %s %s\n", t, msg.Username, msg.Text)
		h.broadcast(msg)
		h.broadcastUsers()

	case commons.UsersMessage:
		h.broadcastUsers()

	default:
		log.Printf("Unknown message type %q from %v", msg.Type, msg.ID)
	}
}

func (h *hub) username(id uuid.UUID) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok && c.username != "" {
		return c.username
	}
	return id.String()
}

// broadcastUsers sends the sorted list of usernames to every client.
func (h *hub) broadcastUsers() {
	h.mu.Lock()
	names := make([]string, 0, len(h.clients))
	for _, c := range h.clients {
		if c.username != "" {
			names = append(names, c.username)
		}
	}
	h.mu.Unlock()

	sort.Strings(names)
	h.broadcast(commons.Message{Type: commons.UsersMessage, Text: strings.Join(names, ",")})
}

// broadcast sends msg to every client except its origin.
func (h *hub) broadcast(msg commons.Message) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		// Check the UUID to prevent sending messages to their origin.
		if id != msg.ID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.write(c, msg)
	}
}

func (h *hub) sendTo(id uuid.UUID, msg commons.Message) {
	h.mu.Lock()
	c, ok := h.clients[id]
	h.mu.Unlock()

	if ok {
		h.write(c, msg)
	}
}

func (h *hub) write(c *client, msg commons.Message) {
	// Write JSON message.
	err := c.conn.WriteJSON(msg)
	if err != nil {
		log.Printf("Error sending message to client: %v", err)
		c.conn.Close()
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
	}
}
