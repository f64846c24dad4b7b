package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCustomer(t *testing.T, db *DB, userID string, quota int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.SeedUser(ctx, User{ID: userID, FullName: "Test User", Email: userID + "@example.com"}))
	require.NoError(t, db.SeedSubscription(ctx, Subscription{UserID: userID, Status: "active", Tier: "basic", MonthlyQuota: quota}))
}

func insertReservation(t *testing.T, db *DB, id, userID, expID, status string, created time.Time) {
	t.Helper()
	_, err := db.db.Exec(
		"INSERT INTO reservations(reservation_id, user_id, experience_id, status, created_at) VALUES(?, ?, ?, ?, ?)",
		id, userID, expID, status, formatTime(created),
	)
	require.NoError(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SeedUser(context.Background(), User{ID: "u1", FullName: "A", Email: "a@x"}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err, "migrations must be idempotent")
	defer db.Close()

	p, err := NewCustomerStore(db).GetUserProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "A", p.FullName)
}

func TestCustomerStore_GetUserProfile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedUser(ctx, User{ID: "a4ab87", FullName: "Alice", Email: "alice@example.com", IsBlocked: true}))
	store := NewCustomerStore(db)

	p, err := store.GetUserProfile(ctx, "a4ab87")
	require.NoError(t, err)
	assert.Equal(t, &domain.Profile{UserID: "a4ab87", FullName: "Alice", Email: "alice@example.com", IsBlocked: true}, p)

	_, err = store.GetUserProfile(ctx, "nobody")
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestCustomerStore_SubscriptionQuota(t *testing.T) {
	db := openTestDB(t)
	seedCustomer(t, db, "u1", 3)
	store := NewCustomerStore(db)
	ctx := context.Background()

	// Counted: reserved, created this month.
	insertReservation(t, db, "r1", "u1", "e1", domain.ReservationReserved, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	insertReservation(t, db, "r2", "u1", "e1", domain.ReservationReserved, fixedNow.Add(-time.Hour))
	// Not counted: cancelled, or last month.
	insertReservation(t, db, "r3", "u1", "e1", domain.ReservationCancelled, fixedNow.Add(-time.Hour))
	insertReservation(t, db, "r4", "u1", "e1", domain.ReservationReserved, time.Date(2026, time.February, 28, 23, 59, 59, 0, time.UTC))

	st, err := store.GetSubscriptionStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.SubscriptionStatus{
		Status: "active", Tier: "basic", MonthlyQuota: 3, UsedThisMonth: 2, RemainingQuota: 1,
	}, st)

	insertReservation(t, db, "r5", "u1", "e1", domain.ReservationReserved, fixedNow)
	insertReservation(t, db, "r6", "u1", "e1", domain.ReservationReserved, fixedNow)
	st, err = store.GetSubscriptionStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.UsedThisMonth)
	assert.Equal(t, 0, st.RemainingQuota, "remaining never goes negative")

	_, err = store.GetSubscriptionStatus(ctx, "nosub")
	assert.Equal(t, domain.CodeNoSub, domain.CodeOf(err))
}

func TestCustomerStore_ListReservations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCustomer(t, db, "u1", 5)
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "past", Title: "Past", When: fixedNow.AddDate(0, 0, -1), Slots: 1}))
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "future", Title: "Future", When: fixedNow.AddDate(0, 0, 1), Slots: 1}))
	insertReservation(t, db, "r-past", "u1", "past", domain.ReservationReserved, fixedNow)
	insertReservation(t, db, "r-future", "u1", "future", domain.ReservationReserved, fixedNow)
	store := NewCustomerStore(db)

	all, err := store.ListReservations(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all.Reservations, 2)
	assert.Equal(t, "r-past", all.Reservations[0].ReservationID)

	upcoming, err := store.ListReservations(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, upcoming.Reservations, 1)
	assert.Equal(t, "Future", upcoming.Reservations[0].Title)
	assert.Equal(t, fixedNow.AddDate(0, 0, 1), upcoming.Reservations[0].When)

	none, err := store.ListReservations(ctx, "nobody", true)
	require.NoError(t, err)
	assert.NotNil(t, none.Reservations)
	assert.Empty(t, none.Reservations)
}

func TestCustomerStore_ReserveRules(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "exp", Title: "Exp", When: fixedNow.AddDate(0, 0, 3), Slots: 5}))
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "full", Title: "Full", When: fixedNow.AddDate(0, 0, 3), Slots: 0}))

	seedCustomer(t, db, "ok", 2)
	seedCustomer(t, db, "blocked", 2)
	require.NoError(t, db.SeedUser(ctx, User{ID: "blocked", FullName: "B", Email: "b@x", IsBlocked: true}))
	seedCustomer(t, db, "inactive", 2)
	require.NoError(t, db.SeedSubscription(ctx, Subscription{UserID: "inactive", Status: "paused", Tier: "basic", MonthlyQuota: 2}))
	require.NoError(t, db.SeedUser(ctx, User{ID: "nosub", FullName: "N", Email: "n@x"}))
	seedCustomer(t, db, "noquota", 0)

	store := NewCustomerStore(db)
	cases := []struct {
		user, exp string
		code      domain.Code
	}{
		{"ghost", "exp", domain.CodeUserNotFound},
		{"blocked", "exp", domain.CodeBlocked},
		{"inactive", "exp", domain.CodeInactiveSub},
		{"nosub", "exp", domain.CodeInactiveSub},
		{"noquota", "exp", domain.CodeNoQuota},
		{"ok", "missing", domain.CodeExpNotFound},
		{"ok", "full", domain.CodeNoSlots},
	}
	for _, tc := range cases {
		t.Run(string(tc.code)+"/"+tc.user, func(t *testing.T) {
			_, err := store.ReserveExperience(ctx, tc.user, tc.exp)
			require.Error(t, err)
			assert.Equal(t, tc.code, domain.CodeOf(err))
		})
	}

	slots, err := store.SlotsAvailable(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, 5, slots, "failed reservations must not touch capacity")
}

func TestCustomerStore_ReserveConsumesQuotaAndSlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCustomer(t, db, "u1", 1)
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "exp", Title: "Exp", When: fixedNow.AddDate(0, 0, 3), Slots: 5}))
	store := NewCustomerStore(db)

	receipt, err := store.ReserveExperience(ctx, "u1", "exp")
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ReservationID)

	slots, err := store.SlotsAvailable(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, 4, slots)

	st, err := store.GetSubscriptionStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.RemainingQuota)

	_, err = store.ReserveExperience(ctx, "u1", "exp")
	assert.Equal(t, domain.CodeNoQuota, domain.CodeOf(err))
}

func TestCustomerStore_ConcurrentReserveLastSlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCustomer(t, db, "u1", 10)
	seedCustomer(t, db, "u2", 10)
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "last", Title: "Last", When: fixedNow.AddDate(0, 0, 3), Slots: 1}))
	store := NewCustomerStore(db)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = store.ReserveExperience(ctx, user, "last")
		}()
	}
	close(start)
	wg.Wait()

	var ok, noSlots int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.CodeOf(err) == domain.CodeNoSlots:
			noSlots++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, noSlots)

	slots, err := store.SlotsAvailable(ctx, "last")
	require.NoError(t, err)
	assert.Equal(t, 0, slots)
}

func TestCustomerStore_Cancel(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCustomer(t, db, "u1", 5)
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "exp", Title: "Exp", When: fixedNow.AddDate(0, 0, 3), Slots: 2}))
	store := NewCustomerStore(db)

	receipt, err := store.ReserveExperience(ctx, "u1", "exp")
	require.NoError(t, err)

	_, err = store.CancelReservation(ctx, receipt.ReservationID, "someone-else")
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err), "reservation is scoped to its owner")

	cancelled, err := store.CancelReservation(ctx, receipt.ReservationID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, cancelled.Status)

	slots, err := store.SlotsAvailable(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, 2, slots, "cancel restores exactly one slot")

	list, err := store.ListReservations(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, list.Reservations, 1)
	assert.Equal(t, domain.ReservationCancelled, list.Reservations[0].Status)

	_, err = store.CancelReservation(ctx, receipt.ReservationID, "u1")
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))

	slots, err = store.SlotsAvailable(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, 2, slots)
}

type countingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return func(context.Context) error { return nil }, nil
}

func TestCustomerStore_WithLocker(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCustomer(t, db, "u1", 5)
	require.NoError(t, db.SeedExperience(ctx, Experience{ID: "exp", Title: "Exp", When: fixedNow.AddDate(0, 0, 3), Slots: 2}))
	locker := &countingLocker{}
	store := NewCustomerStore(db, WithLocker(locker))

	receipt, err := store.ReserveExperience(ctx, "u1", "exp")
	require.NoError(t, err)
	_, err = store.CancelReservation(ctx, receipt.ReservationID, "u1")
	require.NoError(t, err)

	assert.Equal(t, []string{"experience:exp", "reservation:" + receipt.ReservationID}, locker.keys)
}
