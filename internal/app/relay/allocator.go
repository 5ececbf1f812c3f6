package relay

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxConnectionsLimit = 100

	keySize      = 64
	connDataSize = 16
)

type hostAllocation struct {
	alloc  domain.Allocation
	guests map[domain.AllocationID]struct{}
	// byCaller remembers the guest allocation minted for each resolving
	// player so a repeated resolve does not take a second slot.
	byCaller map[domain.MemberID]domain.AllocationID
}

type guestAllocation struct {
	conn domain.ConnParams
	host domain.AllocationID
}

// Binding is what an authenticated relay connection is attached as.
type Binding struct {
	ID   domain.AllocationID
	Host domain.AllocationID
	Role domain.Role
}

// Allocator mints relay allocations and the join codes that resolve to them.
type Allocator struct {
	mu     sync.Mutex
	byCode map[string]*hostAllocation
	hosts  map[domain.AllocationID]*hostAllocation
	guests map[domain.AllocationID]*guestAllocation

	endpoint string
	port     int
	ttl      time.Duration
	now      func() time.Time

	Relays *RelayManager
}

func NewAllocator(endpoint string, port int, ttl time.Duration, relays *RelayManager) *Allocator {
	return &Allocator{
		byCode:   make(map[string]*hostAllocation),
		hosts:    make(map[domain.AllocationID]*hostAllocation),
		guests:   make(map[domain.AllocationID]*guestAllocation),
		endpoint: endpoint,
		port:     port,
		ttl:      ttl,
		now:      time.Now,
		Relays:   relays,
	}
}

// SetClock replaces the time source. Used by tests.
func (a *Allocator) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

func (a *Allocator) newConnParams() (domain.ConnParams, error) {
	id := uuid.New()
	key, err := randomBytes(keySize)
	if err != nil {
		return domain.ConnParams{}, err
	}
	data, err := randomBytes(connDataSize)
	if err != nil {
		return domain.ConnParams{}, err
	}
	return domain.ConnParams{
		AllocationID:      domain.AllocationID(id.String()),
		Endpoint:          a.endpoint,
		Port:              a.port,
		AllocationIDBytes: id[:],
		Key:               key,
		ConnectionData:    data,
	}, nil
}

// Allocate reserves a relay for a host and up to maxConnections guests.
func (a *Allocator) Allocate(ctx context.Context, maxConnections int) (*domain.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxConnections < 1 || maxConnections > MaxConnectionsLimit {
		return nil, domain.NewOpError("allocate", domain.ErrInvalidArgument, "max connections out of range")
	}
	conn, err := a.newConnParams()
	if err != nil {
		return nil, domain.NewOpError("allocate", domain.ErrAllocation, err.Error())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	code, err := newJoinCode(func(c string) bool {
		_, ok := a.byCode[c]
		return ok
	})
	if err != nil {
		return nil, domain.NewOpError("allocate", domain.ErrAllocation, err.Error())
	}
	h := &hostAllocation{
		alloc: domain.Allocation{
			ID:             conn.AllocationID,
			JoinCode:       code,
			MaxConnections: maxConnections,
			ExpiresAt:      a.now().Add(a.ttl),
			Host:           conn,
		},
		guests:   make(map[domain.AllocationID]struct{}),
		byCaller: make(map[domain.MemberID]domain.AllocationID),
	}
	a.byCode[code] = h
	a.hosts[conn.AllocationID] = h

	log.Info().
		Str("module", "relay.allocator").
		Str("allocation", string(conn.AllocationID)).
		Str("join_code", code).
		Int("max_connections", maxConnections).
		Msg("allocation created")

	out := h.alloc
	return &out, nil
}

// Resolve turns a join code into guest connection parameters for the
// allocation it names. Every call mints a new guest allocation; callers that
// may retry should use ResolveAs.
func (a *Allocator) Resolve(ctx context.Context, code string) (*domain.ConnParams, error) {
	return a.ResolveAs(ctx, code, "")
}

// ResolveAs is Resolve on behalf of caller. Repeated calls by the same
// caller return the guest allocation minted the first time.
func (a *Allocator) ResolveAs(ctx context.Context, code string, caller domain.MemberID) (*domain.ConnParams, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code = NormalizeCode(code)
	if code == "" {
		return nil, domain.NewOpError("resolve", domain.ErrInvalidArgument, "empty join code")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.byCode[code]
	if !ok {
		return nil, domain.NewOpError("resolve", domain.ErrInvalidCode, code)
	}
	if !a.now().Before(h.alloc.ExpiresAt) {
		return nil, domain.NewOpError("resolve", domain.ErrCodeExpired, code)
	}
	if caller != "" {
		if id, ok := h.byCaller[caller]; ok {
			if g, ok := a.guests[id]; ok {
				conn := g.conn
				log.Debug().
					Str("module", "relay.allocator").
					Str("allocation", string(id)).
					Str("caller", string(caller)).
					Msg("join code resolved again")
				return &conn, nil
			}
		}
	}
	if len(h.guests) >= h.alloc.MaxConnections {
		return nil, domain.NewOpError("resolve", domain.ErrRoomFull, code)
	}

	conn, err := a.newConnParams()
	if err != nil {
		return nil, domain.NewOpError("resolve", domain.ErrAllocation, err.Error())
	}
	conn.HostConnectionData = append([]byte(nil), h.alloc.Host.ConnectionData...)
	h.guests[conn.AllocationID] = struct{}{}
	if caller != "" {
		h.byCaller[caller] = conn.AllocationID
	}
	a.guests[conn.AllocationID] = &guestAllocation{conn: conn, host: h.alloc.ID}

	log.Info().
		Str("module", "relay.allocator").
		Str("allocation", string(conn.AllocationID)).
		Str("host_allocation", string(h.alloc.ID)).
		Msg("join code resolved")
	return &conn, nil
}

// For binds the allocator to one caller so resolves are idempotent per
// player. It implements core.RelayAllocator.
func (a *Allocator) For(caller domain.MemberID) CallerAllocator {
	return CallerAllocator{a: a, caller: caller}
}

type CallerAllocator struct {
	a      *Allocator
	caller domain.MemberID
}

var _ core.RelayAllocator = CallerAllocator{}

func (c CallerAllocator) Allocate(ctx context.Context, maxConnections int) (*domain.Allocation, error) {
	return c.a.Allocate(ctx, maxConnections)
}

func (c CallerAllocator) Resolve(ctx context.Context, code string) (*domain.ConnParams, error) {
	return c.a.ResolveAs(ctx, code, c.caller)
}

// Authenticate checks that the caller holds the key of allocation id.
func (a *Allocator) Authenticate(id domain.AllocationID, connData, sig []byte) (Binding, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if h, ok := a.hosts[id]; ok {
		if !verify(h.alloc.Host, connData, sig) {
			return Binding{}, domain.ErrUnauthorized
		}
		return Binding{ID: id, Host: id, Role: domain.RoleHost}, nil
	}
	if g, ok := a.guests[id]; ok {
		if !verify(g.conn, connData, sig) {
			return Binding{}, domain.ErrUnauthorized
		}
		return Binding{ID: id, Host: g.host, Role: domain.RoleGuest}, nil
	}
	return Binding{}, domain.ErrUnauthorized
}

func verify(conn domain.ConnParams, connData, sig []byte) bool {
	if string(conn.ConnectionData) != string(connData) {
		return false
	}
	return domain.VerifySignature(conn.Key, connData, sig)
}

// Release drops a host allocation with its guests and stops its relay.
func (a *Allocator) Release(id domain.AllocationID) {
	a.mu.Lock()
	h, ok := a.hosts[id]
	if ok {
		a.dropLocked(h)
	}
	a.mu.Unlock()
	if ok && a.Relays != nil {
		a.Relays.StopRelay(id)
	}
}

func (a *Allocator) dropLocked(h *hostAllocation) {
	delete(a.byCode, h.alloc.JoinCode)
	delete(a.hosts, h.alloc.ID)
	for g := range h.guests {
		delete(a.guests, g)
	}
}

// Sweep drops expired allocations that have no live relay.
func (a *Allocator) Sweep() int {
	a.mu.Lock()
	now := a.now()
	var expired []*hostAllocation
	for _, h := range a.hosts {
		if now.Before(h.alloc.ExpiresAt) {
			continue
		}
		if a.Relays != nil && a.Relays.HasRelay(h.alloc.ID) {
			continue
		}
		expired = append(expired, h)
	}
	for _, h := range expired {
		a.dropLocked(h)
	}
	a.mu.Unlock()

	for _, h := range expired {
		log.Info().
			Str("module", "relay.allocator").
			Str("allocation", string(h.alloc.ID)).
			Msg("allocation expired")
	}
	return len(expired)
}

// Run sweeps expired allocations every period until ctx is done.
func (a *Allocator) Run(ctx context.Context, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.Sweep()
		}
	}
}
