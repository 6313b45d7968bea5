// Package engine is the failover decision core. It consumes classified
// membership events one at a time, keeps the membership snapshot and
// the ownership table, gates every ownership change behind the quorum
// predicate, and emits acquire/release actions. The sequential loop is
// what makes the ownership table single-writer: actuation runs
// concurrently per EIP, but every decision is made against one frozen
// snapshot.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/classifier"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/config"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/membership"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/metrics"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/ownership"
)

type Config struct {
	ResyncInterval time.Duration `envconfig:"RESYNC_INTERVAL,optional"`
	RetryBackoff   time.Duration `envconfig:"ASSIGN_RETRY_BACKOFF,optional"`
	ConfirmDown    bool          `envconfig:"CONFIRM_DOWN,optional"`
	// AllowStacking lets one instance hold several EIPs when nobody
	// else is free. Off by default: a sole survivor keeps only its own
	// address and the rest stay unassigned with a warning.
	AllowStacking bool `envconfig:"ALLOW_STACKING,optional"`
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.ResyncInterval == 0 {
		cfg.ResyncInterval = time.Minute
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 30 * time.Second
	}
	return cfg
}

type Membership interface {
	FullView() models.MembershipView
}

// HolderSource answers who the provider has an EIP bound to; used only
// during cold start to seed the ownership table.
type HolderSource interface {
	CurrentHolder(ctx context.Context, eip models.EIPID) (models.NodeID, error)
}

type Submitter interface {
	Submit(action models.Action) error
}

type RetryScheduler interface {
	Schedule(eip models.EIPID, delay time.Duration)
	Cancel(eip models.EIPID) bool
}

type Notifier interface {
	NotifyDecision(event models.DecisionEvent)
}

type Prober interface {
	Down(ctx context.Context, addr string) bool
}

type Deps struct {
	Classifier *classifier.Classifier
	Membership Membership
	Holders    HolderSource
	Executor   Submitter
	Scheduler  RetryScheduler
	Notifier   Notifier
	Metrics    metrics.Metrics
	// Prober is optional; nil disables down confirmation.
	Prober Prober

	RawEvents <-chan models.RawMemberEvent
	Results   <-chan models.ActionResult
	Retries   <-chan models.EIPID
}

type Engine struct {
	cfg   Config
	self  models.NodeID
	pool  config.Pool
	table *ownership.Table
	deps  Deps

	poolUpdates chan models.PoolUpdate

	snap         atomic.Pointer[membership.Snapshot]
	suppressed   atomic.Uint64
	bootstrapped atomic.Bool
}

func New(cfg Config, self models.NodeID, pool config.Pool, deps Deps) *Engine {
	e := &Engine{
		cfg:         cfg.withDefaults(),
		self:        self,
		pool:        pool,
		table:       ownership.NewTable(),
		deps:        deps,
		poolUpdates: make(chan models.PoolUpdate),
	}
	e.snap.Store(membership.NewSnapshot(self, len(pool)))
	return e
}

func (e *Engine) snapshot() *membership.Snapshot {
	return e.snap.Load()
}

// Bootstrap is the cold-start rule: pull a full membership listing and
// the provider's current associations before any actuation. Until it
// runs, events only advance bookkeeping.
func (e *Engine) Bootstrap(ctx context.Context) error {
	view := e.deps.Membership.FullView()
	snap := membership.Rebuild(e.self, len(e.pool), view, e.snapshot().Version()+1)

	for _, zone := range e.pool.Zones() {
		if eip, ok := e.pool.EIPForZone(zone); ok {
			e.table.Ensure(eip, zone)
		}
	}
	for _, member := range view.Members {
		e.registerDeclaredDefault(snap, classifyMeta(member))
	}

	for _, eip := range e.pool.EIPs() {
		holder, err := e.deps.Holders.CurrentHolder(ctx, eip)
		if err != nil {
			log.Warn().Err(err).Msgf("cold start: could not discover holder of %s", eip)
			continue
		}
		if holder == "" {
			continue
		}
		record, _ := e.table.Get(eip)
		state := models.AssignedFailover
		if record.DefaultOwner == holder {
			state = models.AssignedDefault
		}
		e.table.Commit(eip, holder, state)
	}

	e.snap.Store(snap)
	e.bootstrapped.Store(true)
	log.Info().Msgf(
		"cold start finished: %d members, %d alive, %d eips",
		snap.Total(), snap.AliveCount(), e.table.Len(),
	)

	if membership.HasQuorum(snap) {
		e.reconcile(ctx, snap, e.allEIPs()...)
	}
	return nil
}

// Run processes events to completion, one at a time.
func (e *Engine) Run(ctx context.Context) error {
	resync := time.NewTicker(e.cfg.ResyncInterval)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, opened := <-e.deps.RawEvents:
			if !opened {
				return nil
			}
			intent, ok := e.deps.Classifier.Classify(raw)
			if !ok {
				continue
			}
			e.handleIntent(ctx, intent)
		case result, opened := <-e.deps.Results:
			if !opened {
				return nil
			}
			e.applyResult(ctx, result)
		case eip := <-e.deps.Retries:
			e.retryAssignment(ctx, eip)
		case update := <-e.poolUpdates:
			e.applyPoolUpdate(ctx, update)
		case <-resync.C:
			e.resync(ctx)
		}
	}
}

func (e *Engine) handleIntent(ctx context.Context, intent models.Intent) {
	snap := e.snapshot().Observe(intent)
	e.snap.Store(snap)

	e.registerDeclaredDefault(snap, intent)

	if !e.bootstrapped.Load() {
		return
	}
	if !membership.HasQuorum(snap) {
		e.suppress(snap, intent.Instance)
		return
	}

	if intent.Type == models.IntentInstanceFailed && e.deps.Prober != nil && intent.Addr != "" {
		if !e.deps.Prober.Down(ctx, intent.Addr) {
			log.Info().Msgf("failure of %s is a false positive, member still reachable", intent.Instance)
			e.deps.Metrics.Increment("failover.false_positive")
			return
		}
	}

	affected := append(e.table.HeldBy(intent.Instance), e.table.OwnedBy(intent.Instance)...)
	e.reconcile(ctx, snap, affected...)
}

// registerDeclaredDefault binds the instance's declared default EIP.
// First observation wins; a conflicting later declaration is the
// misconfiguration case and only warns.
func (e *Engine) registerDeclaredDefault(snap *membership.Snapshot, intent models.Intent) {
	if intent.DefaultEIP == "" {
		return
	}
	e.table.Ensure(intent.DefaultEIP, intent.Zone)
	owner, ok := e.table.SetDefaultOwner(intent.DefaultEIP, intent.Instance)
	if !ok {
		log.Warn().Msgf(
			"instance %s declares default eip %s already owned by %s",
			intent.Instance, intent.DefaultEIP, owner,
		)
		e.deps.Metrics.Increment("eip.default_conflict")
		e.notify(models.DecisionEvent{
			Kind:            models.DecisionDefaultConflict,
			EIP:             intent.DefaultEIP,
			Instance:        intent.Instance,
			Detail:          fmt.Sprintf("owned by %s", owner),
			SnapshotVersion: snap.Version(),
		})
	}
}

func (e *Engine) suppress(snap *membership.Snapshot, instance models.NodeID) {
	e.suppressed.Add(1)
	e.deps.Metrics.Increment("decision.suppressed")
	log.Warn().Msgf(
		"no quorum (%d/%d alive), withholding actuation",
		snap.AliveCount(), snap.Total(),
	)
	e.notify(models.DecisionEvent{
		Kind:            models.DecisionSuppressed,
		Instance:        instance,
		SnapshotVersion: snap.Version(),
	})
}

// reconcile drives each EIP towards its desired holder: the default
// owner when alive, otherwise the claim algorithm's pick. Comparing
// desired state against the table instead of counting events is what
// makes duplicated deliveries no-ops.
func (e *Engine) reconcile(ctx context.Context, snap *membership.Snapshot, eips ...models.EIPID) {
	for _, eip := range eips {
		record, exists := e.table.Get(eip)
		if !exists {
			continue
		}

		desired, state, found := e.desiredHolder(snap, record)
		if !found {
			if record.Holder != "" && !snap.IsAlive(record.Holder) {
				e.table.Release(eip)
			}
			log.Warn().Msgf("no eligible holder for %s, leaving unassigned", eip)
			e.deps.Metrics.Increment("decision.no_eligible_holder")
			e.notify(models.DecisionEvent{
				Kind:            models.DecisionNoEligibleHolder,
				EIP:             eip,
				SnapshotVersion: snap.Version(),
			})
			continue
		}

		holderAlive := record.Holder != "" && snap.IsAlive(record.Holder)
		settled := record.State == models.AssignedDefault || record.State == models.AssignedFailover
		if record.Holder == desired && holderAlive && settled {
			continue
		}
		if record.State == models.AssignmentInFlight && record.Pending == desired {
			continue
		}

		e.assign(snap, record, desired, state, holderAlive)
	}
}

func (e *Engine) desiredHolder(snap *membership.Snapshot, record models.FloatingIP) (models.NodeID, models.AssignmentState, bool) {
	if record.DefaultOwner != "" && snap.IsAlive(record.DefaultOwner) {
		return record.DefaultOwner, models.AssignedDefault, true
	}
	holder, found := Claim(snap.Alive(), record.ID, e.table.Holds, e.cfg.AllowStacking)
	if !found {
		return "", models.Unassigned, false
	}
	return holder, models.AssignedFailover, true
}

func (e *Engine) assign(
	snap *membership.Snapshot,
	record models.FloatingIP,
	desired models.NodeID,
	state models.AssignmentState,
	holderAlive bool,
) {
	switch {
	case desired == e.self:
		// Our own acquisition: actuate it. AllowReassociation makes
		// the association steal the address from a dead holder.
		e.table.MarkInFlight(record.ID, desired)
		e.submit(models.Action{
			Type:            models.ActionAcquire,
			EIP:             record.ID,
			Instance:        desired,
			SnapshotVersion: snap.Version(),
		})
		e.decide(models.DecisionAcquire, record.ID, desired, snap.Version())

	case record.Holder == e.self && holderAlive:
		// We are the failover holder and the default owner came back:
		// give the address up. The owner's engine performs the acquire.
		e.table.MarkInFlight(record.ID, desired)
		e.submit(models.Action{
			Type:            models.ActionRelease,
			EIP:             record.ID,
			Instance:        e.self,
			SnapshotVersion: snap.Version(),
		})
		e.decide(models.DecisionRelease, record.ID, e.self, snap.Version())

	default:
		// Another instance's acquisition. Every engine derives the
		// same desired holder, so record the outcome without touching
		// the provider.
		e.table.Commit(record.ID, desired, state)
		e.decide(models.DecisionAcquire, record.ID, desired, snap.Version())
	}
}

func (e *Engine) submit(action models.Action) {
	if err := e.deps.Executor.Submit(action); err != nil {
		log.Error().Err(err).Msgf("failed to submit %s of %s", action.Type, action.EIP)
		e.table.Fail(action.EIP)
		e.deps.Scheduler.Schedule(action.EIP, e.cfg.RetryBackoff)
	}
}

func (e *Engine) decide(kind models.DecisionKind, eip models.EIPID, instance models.NodeID, version uint64) {
	e.deps.Metrics.Increment("decision." + kind.String())
	log.Info().Msgf("decision: %s %s for %s", kind, eip, instance)
	e.notify(models.DecisionEvent{
		Kind:            kind,
		EIP:             eip,
		Instance:        instance,
		SnapshotVersion: version,
	})
}

// applyResult settles an actuation outcome. Runs inside the loop, so
// the table stays single-writer.
func (e *Engine) applyResult(ctx context.Context, result models.ActionResult) {
	action := result.Action
	record, exists := e.table.Get(action.EIP)
	if !exists {
		// Pool shrank while the call was in flight.
		return
	}

	if result.Err != nil {
		log.Error().Err(result.Err).Msgf(
			"actuation %s of %s for %s exhausted retries",
			action.Type, action.EIP, action.Instance,
		)
		e.table.Fail(action.EIP)
		e.deps.Scheduler.Schedule(action.EIP, e.cfg.RetryBackoff)
		e.notify(models.DecisionEvent{
			Kind:            models.DecisionActuationFailed,
			EIP:             action.EIP,
			Instance:        action.Instance,
			Detail:          result.Err.Error(),
			SnapshotVersion: action.SnapshotVersion,
		})
		return
	}

	snap := e.snapshot()
	switch action.Type {
	case models.ActionAcquire:
		state := models.AssignedFailover
		if record.DefaultOwner == action.Instance {
			state = models.AssignedDefault
		}
		e.table.Commit(action.EIP, action.Instance, state)
		e.deps.Scheduler.Cancel(action.EIP)
		if !snap.IsAlive(action.Instance) {
			// The target died while the call was in flight; the
			// association landed on a corpse. Re-derive and correct.
			e.reconcile(ctx, snap, action.EIP)
		}
	case models.ActionRelease:
		e.table.Release(action.EIP)
		e.reconcile(ctx, snap, action.EIP)
	}
}

// retryAssignment re-evaluates an EIP whose actuation previously
// exhausted its retries. Desired state is derived fresh, so a stale
// pending target is corrected rather than replayed.
func (e *Engine) retryAssignment(ctx context.Context, eip models.EIPID) {
	snap := e.snapshot()
	if !e.bootstrapped.Load() || !membership.HasQuorum(snap) {
		e.deps.Scheduler.Schedule(eip, e.cfg.RetryBackoff)
		return
	}
	e.reconcile(ctx, snap, eip)
}

// ApplyPoolUpdate funnels a runtime pool change into the event loop.
func (e *Engine) ApplyPoolUpdate(ctx context.Context, update models.PoolUpdate) error {
	select {
	case e.poolUpdates <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) applyPoolUpdate(ctx context.Context, update models.PoolUpdate) {
	snap := e.snapshot()
	if update.Remove {
		log.Info().Msgf("removing %s (zone %s) from the pool", update.EIP, update.Zone)
		record, exists := e.table.Get(update.EIP)
		if exists && record.Holder == e.self && membership.HasQuorum(snap) {
			e.submit(models.Action{
				Type:            models.ActionRelease,
				EIP:             update.EIP,
				Instance:        e.self,
				SnapshotVersion: snap.Version(),
			})
		}
		delete(e.pool, update.Zone)
		e.table.Remove(update.EIP)
		e.deps.Scheduler.Cancel(update.EIP)
		return
	}

	log.Info().Msgf("adding %s (zone %s) to the pool", update.EIP, update.Zone)
	e.pool[update.Zone] = config.ZoneEntry{
		AllocationID: update.EIP.String(),
		Eth1ID:       update.Eth1ID,
	}
	e.table.Ensure(update.EIP, update.Zone)
	if e.bootstrapped.Load() && membership.HasQuorum(snap) {
		e.reconcile(ctx, snap, update.EIP)
	}
}

// resync rebuilds the snapshot from a full membership listing and runs
// one reconcile over everything. This is the healing path for missed
// events, exhausted actuations and stale races.
func (e *Engine) resync(ctx context.Context) {
	view := e.deps.Membership.FullView()
	snap := membership.Rebuild(e.self, len(e.pool), view, e.snapshot().Version()+1)
	e.snap.Store(snap)

	for _, member := range view.Members {
		e.registerDeclaredDefault(snap, classifyMeta(member))
	}

	e.deps.Metrics.Increment("resync")
	e.deps.Metrics.Gauge("members.alive", snap.AliveCount())
	e.deps.Metrics.Gauge("members.total", snap.Total())

	if !e.bootstrapped.Load() {
		return
	}
	if !membership.HasQuorum(snap) {
		e.suppress(snap, e.self)
		return
	}
	e.reconcile(ctx, snap, e.allEIPs()...)
}

func (e *Engine) allEIPs() []models.EIPID {
	view := e.table.View()
	eips := make([]models.EIPID, 0, len(view))
	for _, record := range view {
		eips = append(eips, record.ID)
	}
	return eips
}

func (e *Engine) notify(event models.DecisionEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	e.deps.Notifier.NotifyDecision(event)
}

// Status is the read-only monitoring view.
func (e *Engine) Status() models.EngineStatus {
	snap := e.snapshot()
	return models.EngineStatus{
		Bootstrapped:    e.bootstrapped.Load(),
		Quorum:          membership.HasQuorum(snap),
		SnapshotVersion: snap.Version(),
		TotalMembers:    snap.Total(),
		AliveMembers:    snap.AliveCount(),
		Suppressed:      e.suppressed.Load(),
		EIPs:            e.table.View(),
	}
}
