package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// MessageInvalidate tells a client which views hold stale data.
const MessageInvalidate = "invalidate"

// Message is one event pushed to a client stream.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// InvalidatePayload lists the view paths to refetch.
type InvalidatePayload struct {
	Paths []string `json:"paths"`
}

// Client is one open stream. C receives encoded messages and is closed when
// the client is removed.
type Client struct {
	C      chan []byte
	userID string
}

// Broker fans messages out to every open stream of a user. Each browser tab
// holds its own client.
type Broker struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     logrus.FieldLogger
}

// NewBroker creates an empty broker.
func NewBroker(log logrus.FieldLogger) *Broker {
	return &Broker{
		clients: make(map[string]map[*Client]struct{}),
		log:     log,
	}
}

// AddClient registers a new stream for userID.
func (b *Broker) AddClient(userID string) *Client {
	c := &Client{C: make(chan []byte, 10), userID: userID}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clients[userID] == nil {
		b.clients[userID] = make(map[*Client]struct{})
	}
	b.clients[userID][c] = struct{}{}
	b.log.WithField("user_id", userID).Debug("sse client connected")
	return c
}

// RemoveClient unregisters c and closes its channel. Removing twice is a no-op.
func (b *Broker) RemoveClient(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(b.clients, c.userID)
	}
	close(c.C)
	b.log.WithField("user_id", c.userID).Debug("sse client disconnected")
}

// NotifyUser sends message to every stream of userID without blocking. A
// stream whose buffer is full drops the message.
func (b *Broker) NotifyUser(userID string, message Message) {
	encoded, err := json.Marshal(message)
	if err != nil {
		b.log.WithError(err).WithField("user_id", userID).Error("could not marshal sse message")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients[userID] {
		select {
		case c.C <- encoded:
		default:
			b.log.WithField("user_id", userID).Warn("sse channel is full, dropping message")
		}
	}
}

// Invalidate tells userID's clients to refetch the given views.
func (b *Broker) Invalidate(userID string, paths ...string) {
	if len(paths) == 0 {
		return
	}
	b.NotifyUser(userID, Message{Type: MessageInvalidate, Payload: InvalidatePayload{Paths: paths}})
}

// ClientCount returns the number of open streams for userID.
func (b *Broker) ClientCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[userID])
}
