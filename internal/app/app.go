package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"paygate/internal/cache"
	"paygate/internal/events"
	"paygate/internal/storage"
	"paygate/internal/store"
	"paygate/pkg/domain"
)

const defaultDownloadTTL = 15 * time.Minute

// Config wires the application core. Store may be nil when the database was
// unreachable at startup; the app then serves every data operation as
// ErrStoreUnavailable instead of crashing.
type Config struct {
	Store       store.Store
	Objects     storage.ObjectStore
	Events      events.Publisher
	Cache       *cache.PublishedCache
	DownloadTTL time.Duration
}

// App is the application core: collection/content registry, purchase
// lifecycle, and entitlement checks.
type App struct {
	store       store.Store
	objects     storage.ObjectStore
	events      events.Publisher
	cache       *cache.PublishedCache
	downloadTTL time.Duration
	now         func() time.Time
}

// New constructs the application core.
func New(cfg Config) *App {
	ttl := cfg.DownloadTTL
	if ttl <= 0 {
		ttl = defaultDownloadTTL
	}
	return &App{
		store:       cfg.Store,
		objects:     cfg.Objects,
		events:      cfg.Events,
		cache:       cfg.Cache,
		downloadTTL: ttl,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// DatabaseConnected reports backing-store reachability for the health check.
func (a *App) DatabaseConnected() bool {
	return a.store != nil && a.store.Ping() == nil
}

func (a *App) ready() error {
	if a.store == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// publishPurchaseEvent emits a lifecycle event. Best-effort: failures are
// logged and swallowed so the primary write always wins.
func (a *App) publishPurchaseEvent(ctx context.Context, p domain.Purchase) {
	if a.events == nil {
		return
	}
	err := a.events.PublishPurchase(ctx, events.PurchaseEvent{
		PurchaseID:   p.ID,
		UserID:       p.UserID,
		CollectionID: p.CollectionID,
		Status:       string(p.Status),
		Amount:       p.Amount,
		OccurredAt:   a.now(),
	})
	if err != nil {
		slog.Warn("purchase event dropped", "purchase_id", p.ID, "status", p.Status, "err", err)
	}
}

// invalidatePublished drops the cached published listing after a collection
// write. Best-effort.
func (a *App) invalidatePublished(ctx context.Context) {
	if err := a.cache.Invalidate(ctx); err != nil {
		slog.Warn("published cache invalidation failed", "err", err)
	}
}

func newID() string {
	return uuid.NewString()
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
