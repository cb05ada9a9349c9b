// Package editor implements the server-authoritative floorplan editing
// engine: one plan actor per building and floor, gesture state machines
// per client, and fire-and-forget persistence to the collaborator.
package editor

import (
	"log"
	"sync"

	"github.com/tbuchner/raumplan/internal/backend"
	"github.com/tbuchner/raumplan/internal/registry"
	"github.com/tbuchner/raumplan/internal/stats"
)

type EditorServer struct {
	log         *log.Logger
	stats       stats.StatsProvider
	collab      backend.Collaborator
	dispatcher  *backend.Dispatcher
	canvas      CanvasConfig
	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	joinChan       chan *ClientMessage
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadChan     chan string

	plans map[string]*Plan
	stop  chan struct{}
	done  chan struct{}
}

func NewEditorServer(logger *log.Logger, sp stats.StatsProvider, collab backend.Collaborator, d *backend.Dispatcher, canvas CanvasConfig) (*EditorServer, error) {
	for _, m := range []string{
		stats.ActiveConnections,
		stats.ActivePlans,
		stats.ActiveSessions,
		stats.DragCommits,
		stats.RoomSaves,
		stats.PersistErrors,
	} {
		sp.RegisterMetric(m)
	}

	return &EditorServer{
		log:            logger,
		stats:          sp,
		collab:         collab,
		dispatcher:     d,
		canvas:         canvas.withDefaults(),
		clients:        make(map[*Client]struct{}),
		joinChan:       make(chan *ClientMessage),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadChan:     make(chan string),
		plans:          make(map[string]*Plan),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (es *EditorServer) Run() {
	for {
		select {
		case joinMsg := <-es.joinChan:
			es.handleJoin(joinMsg)
		case client := <-es.RegisterChan:
			es.log.Printf("adding connection from %q", client.user.Username)
			es.addClient(client)
			es.stats.Incr(stats.ActiveConnections)
		case client := <-es.deRegisterChan:
			es.log.Printf("removing connection from %q", client.user.Username)
			es.removeClient(client)
			es.stats.Decr(stats.ActiveConnections)
		case key := <-es.unloadChan:
			es.unloadPlan(key)
		case <-es.stop:
			es.log.Println("shutting down plans")
			for _, p := range es.plans {
				es.log.Println("shutting down plan", p.key)
				done := make(chan bool)
				p.exit <- exitReq{done: done}
				<-done
			}

			close(es.done)
			return
		}
	}
}

func (es *EditorServer) handleJoin(joinMsg *ClientMessage) {
	key := planKey(joinMsg.Join.BuildingId, joinMsg.Join.Floor)
	if plan, ok := es.plans[key]; ok {
		select {
		case plan.joinChan <- joinMsg:
		default:
			es.log.Printf("join channel full on plan %q", key)
			joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
		}
		return
	}

	plan := &Plan{
		key:           key,
		buildingId:    joinMsg.Join.BuildingId,
		floor:         joinMsg.Join.Floor,
		es:            es,
		reg:           registry.New(),
		sessions:      make(map[*Client]*Session),
		clients:       make(map[*Client]struct{}),
		canvas:        es.canvas,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		resultChan:    make(chan func(), 256),
		log:           es.log,
		stats:         es.stats,
		exit:          make(chan exitReq),
		done:          make(chan struct{}),
	}

	es.plans[key] = plan
	es.stats.Incr(stats.ActivePlans)
	plan.joinChan <- joinMsg

	go plan.start()
}

func (es *EditorServer) addClient(c *Client) {
	es.clientsLock.Lock()
	defer es.clientsLock.Unlock()
	es.clients[c] = struct{}{}
}

func (es *EditorServer) removeClient(c *Client) {
	es.clientsLock.Lock()
	defer es.clientsLock.Unlock()
	delete(es.clients, c)
}

func (es *EditorServer) unloadPlan(key string) {
	p, ok := es.plans[key]
	if !ok {
		return
	}

	es.log.Printf("unloading plan %q", key)
	delete(es.plans, key)
	es.stats.Decr(stats.ActivePlans)

	done := make(chan bool)
	p.exit <- exitReq{done: done}
	<-done
}

func (es *EditorServer) Shutdown() {
	es.log.Println("received shutdown signal")
	for c := range es.clients {
		close(c.stop)
	}

	close(es.stop)

	<-es.done
}
