package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"paygate/internal/store"
	"paygate/pkg/domain"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return New(Config{Store: mem}), mem
}

func mustCreateCollection(t *testing.T, a *App, accessType domain.AccessType, limit int) domain.Collection {
	t.Helper()
	c, err := a.CreateCollection(context.Background(), domain.Collection{
		UserID:      "creator-1",
		Title:       "Bundle",
		Price:       9.99,
		AccessType:  accessType,
		AccessLimit: limit,
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	return c
}

func mustCreatePurchase(t *testing.T, a *App, collectionID string, status domain.PurchaseStatus) domain.Purchase {
	t.Helper()
	p, err := a.CreatePurchase(context.Background(), domain.Purchase{
		UserID:       "buyer-1",
		CollectionID: collectionID,
		Amount:       9.99,
		Status:       status,
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	return p
}

func TestCreatePurchaseTimeBasedSnapshot(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessTimeBased, 7)

	before := time.Now().UTC()
	p := mustCreatePurchase(t, a, c.ID, "")
	after := time.Now().UTC()

	if p.ViewsRemaining != nil {
		t.Fatal("time-based purchase must not carry a view counter")
	}
	if p.AccessExpires == nil {
		t.Fatal("time-based purchase missing expiry")
	}
	low, high := before.AddDate(0, 0, 7), after.AddDate(0, 0, 7).Add(time.Second)
	if p.AccessExpires.Before(low) || p.AccessExpires.After(high) {
		t.Fatalf("expiry %v outside [%v, %v]", p.AccessExpires, low, high)
	}
	if p.Status != domain.PurchasePending {
		t.Fatalf("default status = %s, want pending", p.Status)
	}
}

func TestCreatePurchaseViewBasedSnapshot(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessViewBased, 5)
	p := mustCreatePurchase(t, a, c.ID, "")
	if p.AccessExpires != nil {
		t.Fatal("view-based purchase must not carry an expiry")
	}
	if p.ViewsRemaining == nil || *p.ViewsRemaining != 5 {
		t.Fatalf("views = %v, want 5", p.ViewsRemaining)
	}
}

func TestCreatePurchasePermanentSnapshot(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)
	p := mustCreatePurchase(t, a, c.ID, domain.PurchaseCompleted)
	if p.AccessExpires != nil || p.ViewsRemaining != nil {
		t.Fatal("permanent purchase must carry no restriction fields")
	}
	ok, err := a.CheckAccess("buyer-1", c.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if !ok {
		t.Fatal("completed permanent purchase must grant access")
	}
}

func TestCreatePurchaseZeroLimitDegenerate(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessTimeBased, 0)
	p := mustCreatePurchase(t, a, c.ID, "")
	if p.AccessExpires != nil || p.ViewsRemaining != nil {
		t.Fatal("zero-limit purchase must carry no restriction fields")
	}
}

func TestCreatePurchaseUnknownCollection(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.CreatePurchase(context.Background(), domain.Purchase{
		UserID:       "buyer-1",
		CollectionID: "missing",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPolicySnapshotIsNeverRecomputed(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessViewBased, 3)
	p := mustCreatePurchase(t, a, c.ID, domain.PurchaseCompleted)

	// Tightening the collection afterwards must not touch the purchase.
	limit := 1
	at := domain.AccessTimeBased
	if _, err := a.UpdateCollection(context.Background(), c.ID, CollectionPatch{
		AccessType:  &at,
		AccessLimit: &limit,
	}); err != nil {
		t.Fatalf("update collection: %v", err)
	}

	list, err := a.ListPurchasesForUser("buyer-1")
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("purchases = %d, want 1", len(list))
	}
	got := list[0]
	if got.ViewsRemaining == nil || *got.ViewsRemaining != 3 || got.AccessExpires != nil {
		t.Fatalf("snapshot changed after collection update: %+v", got.Purchase)
	}
	if got.ID != p.ID {
		t.Fatalf("unexpected purchase %s", got.ID)
	}
}

func TestViewLifecycleScenario(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessViewBased, 3)
	p := mustCreatePurchase(t, a, c.ID, "")

	if _, err := a.SetPurchaseStatus(context.Background(), p.ID, domain.PurchaseCompleted); err != nil {
		t.Fatalf("complete purchase: %v", err)
	}
	if ok, _ := a.CheckAccess("buyer-1", c.ID); !ok {
		t.Fatal("completed purchase with views should grant access")
	}

	for _, want := range []int{2, 1, 0, 0} {
		got, err := a.DecrementViews("buyer-1", c.ID)
		if err != nil {
			t.Fatalf("decrement: %v", err)
		}
		if got == nil || *got != want {
			t.Fatalf("decrement = %v, want %d", got, want)
		}
	}
	if ok, _ := a.CheckAccess("buyer-1", c.ID); ok {
		t.Fatal("drained purchase must no longer grant access")
	}
}

func TestDecrementViewsNoPurchaseOrNoCounter(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)

	got, err := a.DecrementViews("nobody", c.ID)
	if err != nil {
		t.Fatalf("decrement without purchase: %v", err)
	}
	if got != nil {
		t.Fatalf("decrement without purchase = %v, want nil", *got)
	}

	mustCreatePurchase(t, a, c.ID, domain.PurchaseCompleted)
	got, err = a.DecrementViews("buyer-1", c.ID)
	if err != nil {
		t.Fatalf("decrement on permanent: %v", err)
	}
	if got != nil {
		t.Fatalf("decrement on permanent = %v, want nil", *got)
	}
}

func TestCheckAccessIgnoresNonCompleted(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)
	mustCreatePurchase(t, a, c.ID, domain.PurchasePending)

	ok, err := a.CheckAccess("buyer-1", c.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if ok {
		t.Fatal("pending purchase must not grant access")
	}
}

func TestCheckAccessExpiredTimeBased(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessTimeBased, 1)
	mustCreatePurchase(t, a, c.ID, domain.PurchaseCompleted)

	a.now = func() time.Time { return time.Now().UTC().AddDate(0, 0, 2) }
	ok, err := a.CheckAccess("buyer-1", c.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if ok {
		t.Fatal("expired purchase must not grant access")
	}
}

func TestSetPurchaseStatusValidatesEnumOnly(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)
	p := mustCreatePurchase(t, a, c.ID, "")

	if _, err := a.SetPurchaseStatus(context.Background(), p.ID, "shipped"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status err = %v, want ErrValidation", err)
	}
	// Backwards transitions are allowed by design.
	if _, err := a.SetPurchaseStatus(context.Background(), p.ID, domain.PurchaseRefunded); err != nil {
		t.Fatalf("refund from pending: %v", err)
	}
	if _, err := a.SetPurchaseStatus(context.Background(), p.ID, domain.PurchasePending); err != nil {
		t.Fatalf("back to pending: %v", err)
	}
	if _, err := a.SetPurchaseStatus(context.Background(), "missing", domain.PurchaseFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing purchase err = %v, want ErrNotFound", err)
	}
}

func TestContentOrderingDefaultsAndReorder(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		content, err := a.CreateContent(domain.Content{
			CollectionID: c.ID,
			UserID:       "creator-1",
			Title:        title,
		}, false)
		if err != nil {
			t.Fatalf("create content %s: %v", title, err)
		}
		ids = append(ids, content.ID)
	}

	list, err := a.ListContentsForCollection(c.ID)
	if err != nil {
		t.Fatalf("list contents: %v", err)
	}
	for i, content := range list {
		if content.Order != i {
			t.Fatalf("content %d has order %d", i, content.Order)
		}
	}

	// [c3, c1, c2] becomes the new display sequence.
	reordered := []string{ids[2], ids[0], ids[1]}
	if err := a.ReorderContents(context.Background(), c.ID, reordered); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	list, err = a.ListContentsForCollection(c.ID)
	if err != nil {
		t.Fatalf("list after reorder: %v", err)
	}
	for i, want := range reordered {
		if list[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestCreateContentExplicitOrder(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)
	content, err := a.CreateContent(domain.Content{
		CollectionID: c.ID,
		UserID:       "creator-1",
		Order:        42,
	}, true)
	if err != nil {
		t.Fatalf("create content: %v", err)
	}
	if content.Order != 42 {
		t.Fatalf("order = %d, want 42", content.Order)
	}
}

func TestDeleteCollectionCascades(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)
	for i := 0; i < 3; i++ {
		if _, err := a.CreateContent(domain.Content{CollectionID: c.ID, UserID: "creator-1"}, false); err != nil {
			t.Fatalf("create content: %v", err)
		}
	}
	if err := a.DeleteCollection(context.Background(), c.ID); err != nil {
		t.Fatalf("delete collection: %v", err)
	}
	list, err := a.ListContentsForCollection(c.ID)
	if err != nil {
		t.Fatalf("list contents: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("contents after cascade = %d, want 0", len(list))
	}
	if _, err := a.GetCollection(c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted collection err = %v, want ErrNotFound", err)
	}
}

func TestUpsertUserReturnsExisting(t *testing.T) {
	a, _ := newTestApp(t)
	first, created, err := a.UpsertUser(domain.User{UID: "uid-1", Email: "a@example.com", DisplayName: "A"})
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	second, created, err := a.UpsertUser(domain.User{UID: "uid-1", Email: "changed@example.com"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("second upsert must not create a duplicate")
	}
	if second.Email != first.Email {
		t.Fatalf("second upsert must return the stored record, got %q", second.Email)
	}
}

func TestDegradedModeWithoutStore(t *testing.T) {
	a := New(Config{})
	if a.DatabaseConnected() {
		t.Fatal("nil store must report disconnected")
	}
	if _, err := a.GetCollection("x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if _, _, err := a.UpsertUser(domain.User{UID: "u"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if _, err := a.CreatePurchase(context.Background(), domain.Purchase{UserID: "u", CollectionID: "c"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestListPurchasesJoinsCollections(t *testing.T) {
	a, _ := newTestApp(t)
	c := mustCreateCollection(t, a, domain.AccessPermanent, 0)
	mustCreatePurchase(t, a, c.ID, domain.PurchaseCompleted)
	mustCreatePurchase(t, a, c.ID, domain.PurchasePending)

	list, err := a.ListPurchasesForUser("buyer-1")
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("completed purchases = %d, want 1", len(list))
	}
	if list[0].Collection == nil || list[0].Collection.ID != c.ID {
		t.Fatalf("purchase not joined with collection: %+v", list[0])
	}
}
