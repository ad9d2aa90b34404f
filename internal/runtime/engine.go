package runtime

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/bus"
	"github.com/arkin-go/core/internal/coreerr"
)

// Engine owns the set of registered services and drives their lifecycle:
// Setup in ascending priority order, event dispatch and background tasks
// concurrently, then Teardown in descending priority order.
type Engine struct {
	log      zerolog.Logger
	bus      *bus.Bus
	core     CoreCtx
	services []Service

	mu   sync.Mutex
	ctxs map[string]*ServiceCtx
}

// New creates an Engine bound to a bus and a CoreCtx template. The bus is
// wired in as core.Publisher so every service can publish without callers
// having to remember to set it themselves.
func New(log zerolog.Logger, b *bus.Bus, core CoreCtx) *Engine {
	core.Publisher = b
	return &Engine{
		log:  log.With().Str("component", "engine").Logger(),
		bus:  b,
		core: core,
		ctxs: make(map[string]*ServiceCtx),
	}
}

// Register adds a service. Order of registration does not matter; Run
// sorts by Priority.
func (e *Engine) Register(s Service) {
	e.services = append(e.services, s)
}

func (e *Engine) sortedByPriorityAsc() []Service {
	out := make([]Service, len(e.services))
	copy(out, e.services)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() < out[j].Priority() })
	return out
}

// Run starts every registered service, blocks until ctx is cancelled, then
// tears every service down in reverse priority order. It returns the first
// task error encountered, if any.
func (e *Engine) Run(ctx context.Context) error {
	ordered := e.sortedByPriorityAsc()

	for _, s := range ordered {
		svcCtx, cancel := context.WithCancel(ctx)
		sub := e.bus.Subscribe(s.Name(), s.EventFilter(), false)
		e.mu.Lock()
		e.ctxs[s.Name()] = &ServiceCtx{Name: s.Name(), Sub: sub, Cancel: cancel}
		e.mu.Unlock()

		if err := s.Setup(svcCtx, e.core); err != nil {
			e.log.Error().Err(err).Str("service", s.Name()).Msg("service setup failed")
			return coreerr.New(coreerr.CategoryConfiguration, "runtime.Engine.Run", err)
		}
		e.log.Info().Str("service", s.Name()).Int("priority", s.Priority()).Msg("service started")
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	recordErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() { firstErr = err })
	}

	for _, s := range ordered {
		s := s
		e.mu.Lock()
		sctx := e.ctxs[s.Name()]
		e.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			e.dispatchLoop(ctx, s, sctx)
		}()
		for _, task := range s.Tasks() {
			task := task
			wg.Add(1)
			go func() {
				defer wg.Done()
				recordErr(task(ctx))
			}()
		}
	}

	<-ctx.Done()
	e.log.Info().Msg("shutdown signal received, tearing down services")

	wg.Wait()

	reversed := make([]Service, len(ordered))
	copy(reversed, ordered)
	sort.SliceStable(reversed, func(i, j int) bool { return reversed[i].Priority() > reversed[j].Priority() })
	for _, s := range reversed {
		teardownCtx, cancel := context.WithCancel(context.Background())
		if err := s.Teardown(teardownCtx); err != nil {
			e.log.Error().Err(err).Str("service", s.Name()).Msg("service teardown failed")
		}
		cancel()
		e.log.Info().Str("service", s.Name()).Msg("service stopped")
	}

	return firstErr
}

// dispatchLoop delivers events from a service's subscriber queue until ctx
// is cancelled.
func (e *Engine) dispatchLoop(ctx context.Context, s Service, sctx *ServiceCtx) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sctx.Sub.Events():
			if !ok {
				return
			}
			if err := s.HandleEvent(ctx, ev); err != nil {
				e.log.Error().Err(err).Str("service", s.Name()).Str("event_type", string(ev.EventType())).Msg("handle_event failed")
			}
		}
	}
}
