package service

import (
	"sync"
	"time"

	"github.com/SergeiKhy/linkshort-web/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultVisitTTL = 15 * time.Minute

// visit is a resolver kept alive between the lookup and the password form.
type visit struct {
	shortCode string
	resolver  *RedirectResolver
	lastSeen  time.Time
}

// VisitRegistry keeps per-visit resolvers for a stateless HTTP shell.
// Idle visits are dropped after the TTL.
type VisitRegistry struct {
	gateway AccessGateway
	logger  *zap.Logger
	metrics *metrics.Metrics
	ttl     time.Duration

	mu     sync.Mutex
	visits map[string]*visit // visit ID -> visit

	stop     chan struct{}
	stopOnce sync.Once
}

func NewVisitRegistry(gateway AccessGateway, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *VisitRegistry {
	if ttl <= 0 {
		ttl = defaultVisitTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &VisitRegistry{
		gateway: gateway,
		logger:  logger,
		metrics: m,
		ttl:     ttl,
		visits:  make(map[string]*visit),
		stop:    make(chan struct{}),
	}

	go v.cleanupLoop()

	return v
}

// Start begins a new visit to shortCode.
func (v *VisitRegistry) Start(shortCode string) (string, *RedirectResolver) {
	id := uuid.NewString()
	r := NewRedirectResolver(v.gateway, shortCode, v.logger, v.metrics)

	v.mu.Lock()
	v.visits[id] = &visit{shortCode: shortCode, resolver: r, lastSeen: time.Now()}
	v.mu.Unlock()

	return id, r
}

// Get returns the live visit id for shortCode.
func (v *VisitRegistry) Get(id, shortCode string) (*RedirectResolver, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.visits[id]
	if !ok || entry.shortCode != shortCode {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.resolver, true
}

// Finish forgets a visit.
func (v *VisitRegistry) Finish(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.visits, id)
}

func (v *VisitRegistry) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.visits)
}

// Close stops the cleanup loop.
func (v *VisitRegistry) Close() {
	v.stopOnce.Do(func() { close(v.stop) })
}

func (v *VisitRegistry) cleanupLoop() {
	ticker := time.NewTicker(v.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-v.stop:
			return
		case <-ticker.C:
			v.cleanup(time.Now())
		}
	}
}

func (v *VisitRegistry) cleanup(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for id, entry := range v.visits {
		if now.Sub(entry.lastSeen) > v.ttl {
			delete(v.visits, id)
		}
	}
}
