package orch

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/app/heartbeat"
	"github.com/dkeye/Lobby/internal/app/readiness"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// RoomID joins a known room instead of searching.
	RoomID     domain.RoomID
	RoomName   string
	MaxPlayers int
	Private    bool

	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	RefreshInterval   time.Duration
	RequestTimeout    time.Duration

	// RoomLostAfter is the number of consecutive polls that must find the
	// room or the local member missing before giving up.
	RoomLostAfter int
	JoinAttempts  int
}

func (c Config) withDefaults() Config {
	if c.RoomName == "" {
		c.RoomName = "MyLobby"
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 5 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.RoomLostAfter <= 0 {
		c.RoomLostAfter = 5
	}
	if c.JoinAttempts <= 0 {
		c.JoinAttempts = 3
	}
	return c
}

// Orchestrator drives one client from room discovery to transport handoff.
// Its state is owned by the goroutine that calls Run; the polling tasks only
// send it snapshots.
type Orchestrator struct {
	Store     core.PresenceStore
	Allocator core.RelayAllocator
	Transport core.TransportHandoff
	Prefs     core.Prefs

	Self   domain.Player
	Config Config

	// OnRoster, when set, receives roster changes while the room is active.
	OnRoster func([]heartbeat.Entry)

	mu        sync.Mutex
	state     State
	err       error
	roomID    domain.RoomID
	isHost    bool
	joinCode  string
	listeners []func(State)
	stopTasks context.CancelFunc
	beat      *heartbeat.Manager

	// owned by Run
	pending   *domain.Allocation
	handedOff bool
	lostPolls int
}

// OnState registers fn to be called on every transition.
func (o *Orchestrator) OnState(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err is the failure that moved the orchestrator to StateFailed.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Orchestrator) RoomID() domain.RoomID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roomID
}

func (o *Orchestrator) IsHost() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isHost
}

// JoinCode is the relay join code once handed off.
func (o *Orchestrator) JoinCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.joinCode
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state == s {
		o.mu.Unlock()
		return
	}
	prev := o.state
	o.state = s
	listeners := slices.Clone(o.listeners)
	roomID := o.roomID
	o.mu.Unlock()

	log.Info().
		Str("module", "orch").
		Str("room_id", string(roomID)).
		Str("from", prev.String()).
		Str("state", s.String()).
		Msg("state change")
	for _, fn := range listeners {
		fn(s)
	}
}

func (o *Orchestrator) fail(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
	log.Error().
		Err(err).
		Str("module", "orch").
		Str("kind", domain.Classify(err).String()).
		Str("reason", domain.UserMessage(err)).
		Msg("bootstrap failed")
	o.setState(StateFailed)
}

func (o *Orchestrator) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.Config.RequestTimeout)
}

// Run executes the bootstrap and blocks until it is handed off, has failed,
// or ctx is done. After a handoff the heartbeat and roster keep running
// until Leave. If ctx ends first they stop with it; the membership itself
// stays until Leave or the room's keepalive expires.
func (o *Orchestrator) Run(ctx context.Context) (State, error) {
	o.Config = o.Config.withDefaults()
	if o.Self.ID == "" {
		o.fail(domain.NewOpError("run", domain.ErrInvalidArgument, "player id is empty"))
		return StateFailed, o.Err()
	}

	o.setState(StateSearching)
	room, err := o.findOrCreate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return o.State(), ctx.Err()
		}
		o.fail(err)
		return StateFailed, err
	}

	isHost := room.IsHost(o.Self.ID)
	tasksCtx, stopTasks := context.WithCancel(context.WithoutCancel(ctx))
	o.mu.Lock()
	o.roomID = room.ID
	o.isHost = isHost
	o.stopTasks = stopTasks
	o.mu.Unlock()

	o.Prefs.SetString(core.PrefCurrentRoomID, string(room.ID))
	o.Prefs.SetBool(core.PrefIsHost, isHost)
	o.savePrefs()
	o.setState(StateJoined)

	o.startLifecycle(tasksCtx, room.ID, isHost)

	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go func() {
		// A Leave stops polling as well.
		select {
		case <-tasksCtx.Done():
			stopPoll()
		case <-pollCtx.Done():
		}
	}()

	snapshots := make(chan readiness.Snapshot)
	agg := &readiness.Aggregator{
		Store:    o.Store,
		RoomID:   room.ID,
		Self:     o.Self.ID,
		Interval: o.Config.PollInterval,
		Timeout:  o.Config.RequestTimeout,
	}
	go agg.Run(pollCtx, snapshots)
	o.setState(StateWaitingForReady)

	var lost <-chan struct{}
	if o.beat != nil {
		lost = o.beat.Lost()
	}
	for {
		select {
		case <-pollCtx.Done():
			o.stopLifecycle()
			return o.State(), pollCtx.Err()
		case <-lost:
			lost = nil
			log.Warn().Str("module", "orch").Str("room_id", string(room.ID)).Msg("heartbeat reported room gone")
		case s := <-snapshots:
			o.step(pollCtx, room.ID, s)
			if st := o.State(); st.Terminal() {
				if st == StateFailed {
					o.stopLifecycle()
				}
				return st, o.Err()
			}
		}
	}
}

func (o *Orchestrator) startLifecycle(ctx context.Context, roomID domain.RoomID, isHost bool) {
	if isHost {
		hb := heartbeat.NewManager(o.Store, roomID, o.Config.HeartbeatInterval, o.Config.RequestTimeout)
		hb.Activate()
		o.mu.Lock()
		o.beat = hb
		o.mu.Unlock()
		go hb.Run(ctx)
	}
	if o.OnRoster != nil {
		roster := &heartbeat.Roster{
			Store:    o.Store,
			RoomID:   roomID,
			Interval: o.Config.RefreshInterval,
			Timeout:  o.Config.RequestTimeout,
			OnChange: o.OnRoster,
		}
		go roster.Run(ctx)
	}
}

func (o *Orchestrator) stopLifecycle() {
	o.mu.Lock()
	hb, stop := o.beat, o.stopTasks
	o.mu.Unlock()
	if hb != nil {
		hb.Deactivate()
	}
	if stop != nil {
		stop()
	}
}

// step applies one readiness snapshot.
func (o *Orchestrator) step(ctx context.Context, roomID domain.RoomID, s readiness.Snapshot) {
	if s.Err != nil {
		switch domain.Classify(s.Err) {
		case domain.KindConfiguration:
			o.fail(s.Err)
			return
		case domain.KindStoreNotFound:
		default:
			return
		}
		o.lostPolls++
		log.Warn().
			Err(s.Err).
			Str("module", "orch").
			Str("room_id", string(roomID)).
			Int("misses", o.lostPolls).
			Msg("room or member missing")
		if o.lostPolls >= o.Config.RoomLostAfter {
			if errors.Is(s.Err, domain.ErrRoomNotFound) || errors.Is(s.Err, domain.ErrRoomClosed) {
				o.fail(domain.NewOpError("poll", domain.ErrRoomNotFound, string(roomID)))
			} else {
				o.fail(domain.NewOpError("poll", s.Err, string(o.Self.ID)))
			}
		}
		return
	}
	o.lostPolls = 0

	if s.IsHost {
		if s.RelayStarted && o.pending == nil {
			o.fail(domain.NewOpError("elect host", domain.ErrRelayAlreadyStarted, s.JoinCode))
			return
		}
		// A publish whose response was lost still owes this host a handoff,
		// whatever the readiness view says now.
		if s.Outcome == readiness.ReadyAsHost || (s.RelayStarted && o.pending != nil) {
			o.electHost(ctx, roomID, s)
		}
		return
	}

	// The published flag wins over this client's own readiness view.
	if s.RelayStarted {
		o.resolveJoin(ctx, roomID, s)
	}
}

// handoff delivers params to the transport once.
func (o *Orchestrator) handoff(ctx context.Context, params domain.HandoffParams) {
	if o.handedOff {
		return
	}
	if err := params.Validate(); err != nil {
		o.fail(err)
		return
	}
	cctx, cancel := o.call(ctx)
	defer cancel()
	if err := o.Transport.Handoff(cctx, params); err != nil {
		o.fail(domain.NewOpError("handoff", domain.ErrHandoff, err.Error()))
		return
	}
	o.handedOff = true

	o.mu.Lock()
	o.joinCode = params.JoinCode
	o.mu.Unlock()
	o.Prefs.SetString(core.PrefJoinCode, params.JoinCode)
	o.Prefs.SetBool(core.PrefIsHost, params.Role == domain.RoleHost)
	o.savePrefs()

	log.Info().
		Str("module", "orch").
		Str("room_id", string(params.RoomID)).
		Str("role", string(params.Role)).
		Str("allocation_id", string(params.Conn.AllocationID)).
		Msg("handed off to transport")
	o.setState(StateHandedOff)
}

func (o *Orchestrator) savePrefs() {
	if err := o.Prefs.Save(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("prefs save failed")
	}
}

// SetReady publishes the local member's ready flag.
func (o *Orchestrator) SetReady(ctx context.Context, ready bool) error {
	roomID := o.RoomID()
	if roomID == "" {
		return domain.NewOpError("set ready", domain.ErrInvalidArgument, "not in a room")
	}
	data := domain.Data{domain.KeyReady: domain.Members(strconv.FormatBool(ready))}
	cctx, cancel := o.call(ctx)
	defer cancel()
	if _, err := o.Store.UpdateMemberData(cctx, roomID, o.Self.ID, data); err != nil {
		return err
	}
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Bool("ready", ready).Msg("ready updated")
	return nil
}

// Leave removes the local member from its room and stops every task. The
// tasks are stopped even when the removal fails.
func (o *Orchestrator) Leave(ctx context.Context) error {
	roomID := o.RoomID()
	defer o.stopLifecycle()
	if roomID == "" {
		return nil
	}

	timeout := o.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := o.Store.RemoveMember(cctx, roomID, o.Self.ID)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		log.Warn().Err(err).Str("module", "orch").Str("room_id", string(roomID)).Msg("leave: remove member failed")
	} else {
		err = nil
		log.Info().Str("module", "orch").Str("room_id", string(roomID)).Msg("left room")
	}

	o.Prefs.Delete(core.PrefCurrentRoomID)
	o.savePrefs()
	return err
}
