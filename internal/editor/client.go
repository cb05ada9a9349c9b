package editor

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tbuchner/raumplan/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection. A client edits at most one plan at
// a time; joining another building or floor leaves the current one.
type Client struct {
	conn     *websocket.Conn
	es       *EditorServer
	log      *log.Logger
	user     types.User
	send     chan *ServerMessage
	plan     *Plan
	planLock sync.RWMutex
	stop     chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, es *EditorServer, l *log.Logger) *Client {
	return &Client{
		conn: conn,
		es:   es,
		log:  l,
		user: user,
		send: make(chan *ServerMessage, 256),
		stop: make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.UserId = c.user.Id
		msg.Timestamp = Now()

		if msg.Join != nil {
			c.joinPlan(&msg)
			continue
		}

		p := c.getPlan()
		if p == nil {
			c.queueMessage(ErrPlanNotFound(msg.Id))
			continue
		}

		select {
		case p.clientMsgChan <- &msg:
		default:
			c.queueMessage(ErrServiceUnavailable(msg.Id))
			c.log.Printf("clientMsgChan full for plan %q", p.key)
		}
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	close(c.stop)
}

func (c *Client) cleanup() {
	c.es.deRegisterChan <- c
	c.leavePlan()
	c.stopClient()
}

// joinPlan routes a join to the server, leaving the current plan first.
func (c *Client) joinPlan(msg *ClientMessage) {
	c.leavePlan()

	select {
	case c.es.joinChan <- msg:
	default:
		c.log.Printf("joinChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) leavePlan() {
	p := c.getPlan()
	if p == nil {
		return
	}

	select {
	case p.leaveChan <- &ClientMessage{UserId: c.user.Id, client: c}:
	default:
		c.log.Printf("leaveChan full for plan %q", p.key)
	}
}

func (c *Client) setPlan(p *Plan) {
	c.planLock.Lock()
	defer c.planLock.Unlock()
	c.plan = p
}

func (c *Client) delPlan() {
	c.planLock.Lock()
	defer c.planLock.Unlock()
	c.plan = nil
}

func (c *Client) getPlan() *Plan {
	c.planLock.RLock()
	defer c.planLock.RUnlock()
	return c.plan
}
