// Package arbiter implements the host's single authoritative event loop: the
// only goroutine that ever calls worldmodel.HandleEvent, so the teacher's
// single-threaded-mutator discipline (internal/loop/server.Server.Run owns
// s.world; every other goroutine only reads the published snapshot) carries
// over unchanged even though the domain events and the transport are new.
package arbiter

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coredrift/tilesync/internal/task"
	"github.com/coredrift/tilesync/internal/tilemap"
	"github.com/coredrift/tilesync/internal/wire"
	"github.com/coredrift/tilesync/internal/worldmodel"
)

// clientHandle is the arbiter's bookkeeping for one connected participant.
type clientHandle struct {
	id     worldmodel.ClientId
	name   string
	outbox chan wire.Timestamped
}

type registerReq struct {
	name    string
	reply   chan registerReply
	forceId worldmodel.Option[worldmodel.ClientId]
}

type registerReply struct {
	id     worldmodel.ClientId
	world  worldmodel.World
	outbox chan wire.Timestamped
}

type submission struct {
	sender worldmodel.ClientId
	id     worldmodel.EventId
	event  worldmodel.WorldEvent
}

// outboxCapacity bounds how many unconsumed broadcasts a slow participant
// tolerates before further sends to it are silently dropped, matching the
// teacher's bounded EventsCh plus non-blocking send in
// internal/loop/server.Server.
const outboxCapacity = 1024

// Arbiter owns the authoritative World and the set of connected clients. Its
// state (world, clients, nextClientId) must be touched only from the single
// goroutine Run spawns; every other method communicates with that goroutine
// over a channel.
type Arbiter struct {
	log          *log.Logger
	world        worldmodel.World
	clients      map[worldmodel.ClientId]*clientHandle
	nextClientId worldmodel.ClientId
	clientCount  atomic.Int64
	startInstant time.Time

	register   chan registerReq
	unregister chan worldmodel.ClientId
	submit     chan submission
	deferred   chan worldmodel.DeferredEvent
	shutdown   chan struct{}

	snapshotMu sync.RWMutex
	snapshot   worldmodel.World
}

// New returns an Arbiter seeded with an empty world.
func New(logger *log.Logger) *Arbiter {
	w := worldmodel.New()
	return &Arbiter{
		log:          logger,
		world:        w,
		snapshot:     w,
		clients:      make(map[worldmodel.ClientId]*clientHandle),
		nextClientId: 1,
		register:     make(chan registerReq),
		unregister:   make(chan worldmodel.ClientId, 16),
		submit:       make(chan submission, 256),
		deferred:     make(chan worldmodel.DeferredEvent, 256),
		shutdown:     make(chan struct{}),
	}
}

// Snapshot returns the most recently published World. Safe to call from any
// goroutine.
func (a *Arbiter) Snapshot() worldmodel.World {
	a.snapshotMu.RLock()
	defer a.snapshotMu.RUnlock()
	return a.snapshot
}

// Register joins a new participant under name and returns the id it was
// assigned, a World snapshot taken before its player entity exists (the
// CreateEntity that spawns it is self-posted afterward and arrives like any
// other authoritative broadcast), and the channel its outbound pump should
// drain. It blocks until the arbiter's loop has processed the request.
func (a *Arbiter) Register(name string) (worldmodel.ClientId, worldmodel.World, <-chan wire.Timestamped) {
	reply := make(chan registerReply, 1)
	a.register <- registerReq{name: name, reply: reply}
	r := <-reply
	return r.id, r.world, r.outbox
}

// RegisterLocal performs the short-circuit handshake for a participant
// running in the same process as the arbiter: no transport frames exist to
// negotiate a name or relay a World snapshot over, so the world and the
// fixed worldmodel.HostLocalClientId are handed back directly instead of
// round-tripping through a dialed connection the way Register's network
// callers do.
func (a *Arbiter) RegisterLocal() (worldmodel.ClientId, worldmodel.World, <-chan wire.Timestamped) {
	reply := make(chan registerReply, 1)
	a.register <- registerReq{name: "host", reply: reply, forceId: worldmodel.Some(worldmodel.HostLocalClientId)}
	r := <-reply
	return r.id, r.world, r.outbox
}

// Unregister removes a participant. Safe to call more than once for the
// same id; the second call is a no-op.
func (a *Arbiter) Unregister(id worldmodel.ClientId) {
	a.unregister <- id
}

// Submit hands the arbiter a client-originated event for authoritative
// validation. sender must be the id returned by Register.
func (a *Arbiter) Submit(sender worldmodel.ClientId, id worldmodel.EventId, ev worldmodel.WorldEvent) {
	a.submit <- submission{sender: sender, id: id, event: ev}
}

// ClientCount returns the number of currently registered participants. Safe
// to call from any goroutine.
func (a *Arbiter) ClientCount() int {
	return int(a.clientCount.Load())
}

// Run drives the arbiter's single event loop as a cancellable task. Every
// call into worldmodel.HandleEvent happens on this goroutine.
func (a *Arbiter) Run(ctx context.Context) *task.Handle {
	a.startInstant = time.Now()
	return task.Spawn(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-a.register:
				a.handleRegister(ctx, req)
			case id := <-a.unregister:
				a.handleUnregister(ctx, id)
			case sub := <-a.submit:
				a.handleEvent(ctx, worldmodel.Some(sub.sender), sub.id, sub.event)
			case dev := <-a.deferred:
				a.handleEvent(ctx, worldmodel.None[worldmodel.ClientId](), worldmodel.EventId(rand.Uint64()), dev.Event)
			case <-a.shutdown:
				a.broadcastAll(wire.Kick{Reason: "Server shutting down."})
				return
			}
		}
	})
}

// handleRegister implements spec.md 4.C7's ClientConnected handling: existing
// clients learn the new id first, the newcomer is inserted and replied to
// with the pre-spawn world, and only then is its player entity created
// through the normal self-post path — so the newcomer's own spawn arrives as
// an ordinary authoritative broadcast like everyone else's.
func (a *Arbiter) handleRegister(ctx context.Context, req registerReq) {
	var id worldmodel.ClientId
	if req.forceId.Valid {
		id = req.forceId.Value
	} else {
		id = a.nextClientId
		a.nextClientId++
	}

	a.broadcastExcept(id, wire.NewClientId{Id: id})

	handle := &clientHandle{id: id, name: req.name, outbox: make(chan wire.Timestamped, outboxCapacity)}
	a.clients[id] = handle
	a.clientCount.Add(1)

	req.reply <- registerReply{id: id, world: a.world, outbox: handle.outbox}
	a.log.Info("client joined", "id", id, "name", req.name)

	entity := worldmodel.NewPlayerEntity(id, spawnPosition(int(id)))
	a.handleEvent(ctx, worldmodel.None[worldmodel.ClientId](), worldmodel.EventId(rand.Uint64()), worldmodel.EvCreateEntity{Data: entity})
}

// handleUnregister implements spec.md 4.C7's ClientDisconnect handling:
// remove from clients first, capture the name for logging before that
// handle is gone, self-post the entity deletion, then broadcast
// RemoveClientId.
func (a *Arbiter) handleUnregister(ctx context.Context, id worldmodel.ClientId) {
	handle, ok := a.clients[id]
	if !ok {
		return
	}
	name := handle.name
	delete(a.clients, id)
	a.clientCount.Add(-1)
	close(handle.outbox)

	if entId, ok := a.world.PlayerEntity(id); ok {
		a.handleEvent(ctx, worldmodel.None[worldmodel.ClientId](), worldmodel.EventId(rand.Uint64()), worldmodel.EvDeleteEntity{Entity: entId})
	}

	a.broadcastAll(wire.RemoveClientId{Id: id})
	a.log.Info("client left", "id", id, "name", name)
}

// handleEvent runs a single HandleEvent transition — whether client
// submitted or server-internal — and fans out its effects: rejection is
// reported back to the submitting client only, acceptance is broadcast to
// everyone and any deferred follow-up events are scheduled.
func (a *Arbiter) handleEvent(ctx context.Context, sender worldmodel.Option[worldmodel.ClientId], evId worldmodel.EventId, ev worldmodel.WorldEvent) {
	nw, deferredEvs, err := worldmodel.HandleEvent(a.world, sender, ev)
	if err != nil {
		if sender.Valid {
			if handle, ok := a.clients[sender.Value]; ok {
				a.log.Warn("rejected illegal event", "client", sender.Value, "err", err)
				trySend(handle.outbox, a.stamp(wire.Kick{Reason: "illegal event"}))
				delete(a.clients, sender.Value)
				a.clientCount.Add(-1)
			}
			return
		}
		a.log.Fatal("server-internal event rejected", "err", err)
	}
	a.world = nw
	a.publishSnapshot()

	a.broadcastAll(wire.WorldEventMsg{Id: evId, Sender: sender, Event: ev})

	for _, d := range deferredEvs {
		a.scheduleDeferred(ctx, d)
	}
}

// scheduleDeferred posts d back to the loop's own intake, immediately when
// OffsetMillis is zero or after a timer otherwise, per spec.md 4.C7's
// deferred-event rule.
func (a *Arbiter) scheduleDeferred(ctx context.Context, d worldmodel.DeferredEvent) {
	if d.OffsetMillis <= 0 {
		select {
		case a.deferred <- d:
		case <-ctx.Done():
		}
		return
	}
	go func() {
		select {
		case <-time.After(time.Duration(d.OffsetMillis) * time.Millisecond):
		case <-ctx.Done():
			return
		}
		select {
		case a.deferred <- d:
		case <-ctx.Done():
		}
	}()
}

// broadcastAll sends msg, timestamped with the arbiter's elapsed clock, to
// every connected client, dropping it for any client whose outbox is full
// rather than blocking the loop.
func (a *Arbiter) broadcastAll(msg wire.ToClientEvent) {
	stamped := a.stamp(msg)
	for _, handle := range a.clients {
		trySend(handle.outbox, stamped)
	}
}

// broadcastExcept is broadcastAll but skips the client identified by
// exclude, used when a client must not be told about itself (e.g. its own
// freshly assigned id).
func (a *Arbiter) broadcastExcept(exclude worldmodel.ClientId, msg wire.ToClientEvent) {
	stamped := a.stamp(msg)
	for id, handle := range a.clients {
		if id == exclude {
			continue
		}
		trySend(handle.outbox, stamped)
	}
}

func (a *Arbiter) stamp(msg wire.ToClientEvent) wire.Timestamped {
	return wire.Timestamped{Ts: time.Since(a.startInstant), Msg: msg}
}

func trySend(ch chan wire.Timestamped, msg wire.Timestamped) {
	select {
	case ch <- msg:
	default:
	}
}

func (a *Arbiter) publishSnapshot() {
	a.snapshotMu.Lock()
	a.snapshot = a.world
	a.snapshotMu.Unlock()
}

// Shutdown signals the event loop to broadcast a Kick to every connected
// client and exit (spec.md 4.C7: "broadcast Kick(...), exit the loop").
// Waiting for sessions to actually drain afterward is the caller's job —
// cmd/host does it by tracking sessions under its own errgroup — since once
// the loop has exited nothing here is left to observe ClientCount change.
func (a *Arbiter) Shutdown(timeout time.Duration) {
	select {
	case a.shutdown <- struct{}{}:
	case <-time.After(timeout):
	}
}

// spawnPosition returns a deterministic spawn tile for a client id,
// spreading players along the x axis so fresh arrivals do not stack on the
// same tile.
func spawnPosition(id int) tilemap.Pos {
	return tilemap.Pos{X: int32(id), Y: 0}
}
