package server

import (
	"sync"
	"time"

	"coin-observer/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub  *DashboardServer
	conn *websocket.Conn
	send chan *models.MLatestData

	mu         sync.RWMutex
	wantHot    bool
	wantStable bool
	limit      int
}

func newClient(hub *DashboardServer, conn *websocket.Conn) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan *models.MLatestData, 256),
		wantHot:    true,
		wantStable: true,
	}
}

// -----------------------------------------------------------------------------

// subscribe selects the lists a client receives. No lists means both.
func (c *Client) subscribe(cmd models.MSubscribeCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wantHot = len(cmd.Lists) == 0
	c.wantStable = len(cmd.Lists) == 0
	for _, list := range cmd.Lists {
		switch list {
		case "hot":
			c.wantHot = true
		case "stable":
			c.wantStable = true
		}
	}
	c.limit = cmd.Limit
}

// -----------------------------------------------------------------------------

// view returns message as seen through the client's subscription.
func (c *Client) view(message *models.MLatestData) *models.MLatestData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := *message
	out.Hot = nil
	out.Stable = nil
	if c.wantHot {
		out.Hot = limitList(message.Hot, c.limit)
	}
	if c.wantStable {
		out.Stable = limitList(message.Stable, c.limit)
	}
	return &out
}

func limitList(coins []*models.MCoinAnalytics, limit int) []*models.MCoinAnalytics {
	if coins == nil {
		return []*models.MCoinAnalytics{}
	}
	if limit > 0 && len(coins) > limit {
		return coins[:limit]
	}
	return coins
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
