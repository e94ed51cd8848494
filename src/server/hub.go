package server

import (
	"encoding/json"
	"net/http"

	"coin-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				s.drop(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int64(len(s.clients)))
			// Send initial state on connect
			select {
			case client.send <- client.view(s.snapshot("INITIAL")):
			default:
			}

		case client := <-s.resync:
			if _, ok := s.clients[client]; ok {
				select {
				case client.send <- client.view(s.snapshot("INITIAL")):
				default:
				}
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.drop(client)
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- client.view(message):
				default:
					// slow consumer
					s.Logger.Warning("Dropping slow websocket client")
					s.drop(client)
				}
			}
		}
	}
}

func (s *DashboardServer) drop(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connections.Store(int64(len(s.clients)))
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateAllDatas merges an update into the latest state. Lists missing from
// the update keep their previous value.
func (s *DashboardServer) UpdateAllDatas(update *models.MLatestData) {
	if update == nil {
		return
	}

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	next := *s.latestState
	if update.Hot != nil {
		next.Hot = update.Hot
	}
	if update.Stable != nil {
		next.Stable = update.Stable
	}
	next.Type = "UPDATE"
	next.CycleID = update.CycleID
	next.Timestamp = update.Timestamp
	next.ProcessingMetrics = update.ProcessingMetrics
	s.latestState = &next
}

// -----------------------------------------------------------------------------

// Broadcast queues update for every websocket client. A full queue drops the
// update; the next refresh carries complete lists anyway.
func (s *DashboardServer) Broadcast(update *models.MLatestData) {
	if update == nil {
		return
	}
	select {
	case s.broadcast <- update:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update %s", update.CycleID)
	}
}

// -----------------------------------------------------------------------------

// snapshot copies the latest state under the read lock.
func (s *DashboardServer) snapshot(kind string) *models.MLatestData {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	state := *s.latestState
	state.Type = kind
	return &state
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}
	s.startHub()

	client := newClient(s, conn)
	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the
// current state seen through it.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}
	client.subscribe(cmd)

	// the hub owns client.send
	select {
	case s.resync <- client:
	case <-s.quit:
	}
}
