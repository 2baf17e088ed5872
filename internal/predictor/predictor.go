// Package predictor implements a connected participant's local view of the
// world: an agreed snapshot (the last state the host confirmed) and a
// speculative snapshot (agreed plus every locally issued action not yet
// confirmed), applied optimistically so input feels immediate even though
// the host is the sole authority. It is the participant-side counterpart of
// arbiter, grounded the same way on the teacher's single-owner world-state
// pattern — here the predictor goroutine is the sole owner instead of the
// host.
package predictor

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coredrift/tilesync/internal/wire"
	"github.com/coredrift/tilesync/internal/worldmodel"
)

// awaitingEntry records one locally issued event still unconfirmed by the
// host, so it can be purged once the matching WorldEventMsg arrives and
// reapplied as part of rebuilding the speculative world otherwise. offset is
// the local elapsed time at submission, used by the lagged-purge rule to
// drop entries that predate a confirmed event from another participant even
// though they were never individually acknowledged.
type awaitingEntry struct {
	id     worldmodel.EventId
	event  worldmodel.WorldEvent
	offset time.Duration
}

// Renderer draws a World for the local participant. Full terminal rendering
// is out of scope here; callers in cmd/join supply a concrete
// implementation.
type Renderer interface {
	Render(world worldmodel.World, self worldmodel.ClientId)
}

// InputSource yields the next locally issued action, if any. Full terminal
// input capture is out of scope here; callers in cmd/join supply a concrete
// implementation.
type InputSource interface {
	Next() (worldmodel.PlayerAction, bool)
}

// Predictor owns a participant's dual world view and the queue of
// unconfirmed events it has issued.
type Predictor struct {
	log  *log.Logger
	self worldmodel.ClientId

	agreed      worldmodel.World
	speculative worldmodel.World
	awaiting    []awaitingEntry

	selfEntity      worldmodel.EntityId
	selfEntityKnown bool
	alive           bool

	startInstant time.Time
	// estDelta is an estimate of one-way host latency, added to an awaiting
	// entry's local offset before comparing it against a confirmation
	// timestamp. Left at zero: wiring it to a real latency estimator is a
	// tuning exercise left to the deployment, not something to guess here.
	estDelta time.Duration
}

// New returns a Predictor bootstrapped from the World the host sent during
// the session handshake.
func New(logger *log.Logger, self worldmodel.ClientId, initial worldmodel.World) *Predictor {
	p := &Predictor{
		log:          logger,
		self:         self,
		agreed:       initial,
		speculative:  initial,
		alive:        true,
		startInstant: time.Now(),
	}
	if id, ok := initial.PlayerEntity(self); ok {
		p.selfEntity = id
		p.selfEntityKnown = true
	}
	return p
}

// Speculative returns the current speculative World for rendering.
func (p *Predictor) Speculative() worldmodel.World {
	return p.speculative
}

// Alive reports whether the participant's own player entity is still
// present in the speculative world.
func (p *Predictor) Alive() bool {
	return p.alive
}

// Ready reports whether the participant's own player entity has been
// assigned yet — false between the handshake and the confirmation of this
// participant's own SpawnEntity (spec.md 4.C8 step 2). Callers should hold
// off submitting local actions until this is true, since SubmitLocal has no
// entity to act on before then.
func (p *Predictor) Ready() bool {
	return p.selfEntityKnown
}

// SubmitLocal applies action speculatively against the player's own entity,
// records it as awaiting confirmation, and returns the PlayerEvent message
// to send to the host.
func (p *Predictor) SubmitLocal(id worldmodel.EventId, action worldmodel.PlayerAction) wire.FromClientEvent {
	ev := worldmodel.EvPlayerAction{Entity: p.selfEntity, Action: action}

	if nw, _, err := worldmodel.HandleEvent(p.speculative, worldmodel.Some(p.self), ev); err == nil {
		p.speculative = nw
	}
	p.awaiting = append(p.awaiting, awaitingEntry{id: id, event: ev, offset: time.Since(p.startInstant)})

	return wire.PlayerEvent{Id: id, Event: ev}
}

// Confirm applies a host-confirmed WorldEventMsg to the agreed world, then
// purges the awaiting queue: for an event this participant submitted, drop
// the single matching entry by EventId; for an event another participant
// submitted, drop every awaiting entry whose local offset plus estDelta
// predates the confirmation timestamp ts, since those entries were
// necessarily already accounted for by the host when it produced this
// confirmation. The speculative world is then rebuilt from whatever is left.
//
// A SpawnEntity carrying this participant's own Player(self) entity is the
// newcomer's own spawn arriving as an ordinary broadcast (the handshake
// replies with a pre-spawn World, per arbiter.handleRegister) — Confirm binds
// selfEntity the first time that happens, since nothing else ever learns the
// assigned entity id.
func (p *Predictor) Confirm(ts time.Duration, msg wire.WorldEventMsg) {
	nw, _, err := worldmodel.HandleEvent(p.agreed, msg.Sender, msg.Event)
	if err != nil {
		p.log.Error("confirmed event rejected locally — agreed world desynced", "err", err)
		return
	}
	p.agreed = nw

	if !p.selfEntityKnown {
		if spawn, ok := msg.Event.(worldmodel.EvSpawnEntity); ok {
			if kind, ok := spawn.Data.Kind.(worldmodel.PlayerKind); ok && kind.Client == p.self {
				p.selfEntity = spawn.Entity
				p.selfEntityKnown = true
			}
		}
	}

	wasLocal := msg.Sender.Valid && msg.Sender.Value == p.self
	if wasLocal {
		p.purgeAwaiting(msg.Id)
	} else {
		p.purgeLagged(ts)
	}

	p.rebuildSpeculative()
}

// purgeAwaiting removes the awaiting entry with the given EventId, if
// present.
func (p *Predictor) purgeAwaiting(id worldmodel.EventId) {
	for i, e := range p.awaiting {
		if e.id == id {
			p.awaiting = append(p.awaiting[:i], p.awaiting[i+1:]...)
			return
		}
	}
}

// purgeLagged drops every awaiting entry whose local offset plus estDelta is
// earlier than ts, per the lagged-purge rule for confirmations that
// originated with another participant.
func (p *Predictor) purgeLagged(ts time.Duration) {
	kept := p.awaiting[:0]
	for _, e := range p.awaiting {
		if e.offset+p.estDelta < ts {
			continue
		}
		kept = append(kept, e)
	}
	p.awaiting = kept
}

// rebuildSpeculative recomputes the speculative world as agreed plus every
// event still in the awaiting queue, in submission order, dropping any that
// no longer apply (e.g. the entity they target was deleted by a confirmed
// event).
func (p *Predictor) rebuildSpeculative() {
	w := p.agreed
	for _, e := range p.awaiting {
		if nw, _, err := worldmodel.HandleEvent(w, worldmodel.Some(p.self), e.event); err == nil {
			w = nw
		}
	}
	p.speculative = w
	p.checkAlive()
}

// checkAlive leaves alive true until selfEntity is actually known: before the
// participant's own SpawnEntity has been confirmed there is nothing to check
// for, and reporting "died" at that point would be spec 4.C8 step 2's ordering
// misread as a death.
func (p *Predictor) checkAlive() {
	if !p.selfEntityKnown {
		p.alive = true
		return
	}
	_, ok := p.speculative.Entity(p.selfEntity)
	p.alive = ok
}

// Run drives the predictor's receive loop: every confirmed WorldEventMsg is
// applied via Confirm, NewClientId/RemoveClientId are ignored, a Kick ends
// the loop with a *KickedError, and the loop exits (a "You died!"
// condition, per spec.md's participant lifecycle) once the local player's entity disappears from the
// speculative world.
func Run(ctx context.Context, msgs <-chan wire.Timestamped, p *Predictor, r Renderer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-msgs:
			if !ok {
				return nil
			}
			switch m := item.Msg.(type) {
			case wire.WorldEventMsg:
				p.Confirm(item.Ts, m)
				r.Render(p.Speculative(), p.self)
				if !p.Alive() {
					return errDied
				}
			case wire.Kick:
				return &KickedError{Reason: m.Reason}
			case wire.NewClientId, wire.RemoveClientId:
				// Informational only; the world itself already
				// reflects the corresponding spawn/despawn via a
				// WorldEventMsg.
			}
		}
	}
}

// errDied is returned by Run when the local player's entity has been
// removed from the speculative world.
var errDied = &DiedError{}

// DiedError indicates the local participant's entity was removed from the
// world — the "You died!" condition.
type DiedError struct{}

func (*DiedError) Error() string { return "predictor: you died" }

// KickedError indicates the host disconnected the participant with a
// reason.
type KickedError struct {
	Reason string
}

func (e *KickedError) Error() string { return "predictor: kicked: " + e.Reason }
