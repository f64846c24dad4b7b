package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ritotombe/supportflow/pkg/domain"
)

// User is a seedable customer row.
type User struct {
	ID        string
	FullName  string
	Email     string
	IsBlocked bool
}

// Subscription is a seedable subscription row.
type Subscription struct {
	UserID       string
	Status       string
	Tier         string
	MonthlyQuota int
}

// Experience is a seedable bookable item.
type Experience struct {
	ID          string
	Title       string
	Description string
	Location    string
	When        time.Time
	Slots       int
	IsPremium   bool
}

// SeedUser inserts or updates a user.
func (d *DB) SeedUser(ctx context.Context, u User) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users(user_id, full_name, email, is_blocked, created_at) VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET full_name = excluded.full_name, email = excluded.email, is_blocked = excluded.is_blocked`,
		u.ID, u.FullName, u.Email, boolInt(u.IsBlocked), formatTime(d.now()),
	)
	if err != nil {
		return fmt.Errorf("seed user %s: %w", u.ID, err)
	}
	return nil
}

// SeedSubscription inserts or replaces the user's subscription.
func (d *DB) SeedSubscription(ctx context.Context, s Subscription) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO subscriptions(subscription_id, user_id, status, tier, monthly_quota, started_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET status = excluded.status, tier = excluded.tier, monthly_quota = excluded.monthly_quota`,
		uuid.NewString(), s.UserID, s.Status, s.Tier, s.MonthlyQuota, formatTime(d.now()),
	)
	if err != nil {
		return fmt.Errorf("seed subscription %s: %w", s.UserID, err)
	}
	return nil
}

// SeedExperience inserts or replaces an experience.
func (d *DB) SeedExperience(ctx context.Context, e Experience) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO experiences(experience_id, title, description, location, when_at, slots_available, is_premium)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.Location, formatTime(e.When), e.Slots, boolInt(e.IsPremium),
	)
	if err != nil {
		return fmt.Errorf("seed experience %s: %w", e.ID, err)
	}
	return nil
}

// SeedArticle inserts or replaces a knowledge article.
func (d *DB) SeedArticle(ctx context.Context, a Article) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO knowledge(article_id, account_id, title, content, tags) VALUES(?, ?, ?, ?, ?)`,
		a.ID, a.AccountID, a.Title, a.Content, a.Tags,
	)
	if err != nil {
		return fmt.Errorf("seed article %s: %w", a.ID, err)
	}
	return nil
}

// SeedTicket inserts a ticket with a caller-chosen id, ignoring duplicates.
func (d *DB) SeedTicket(ctx context.Context, t domain.Ticket) error {
	if t.Status == "" {
		t.Status = domain.TicketOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = d.now()
	}
	ts := formatTime(t.CreatedAt)
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tickets(ticket_id, account_id, user_id, channel, status, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.UserID, t.Channel, t.Status, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("seed ticket %s: %w", t.ID, err)
	}
	return nil
}

// DemoAccountID is the account the demo data belongs to.
const DemoAccountID = "cultpass"

// SeedDemo populates db with a small, self-consistent demo data set.
func (d *DB) SeedDemo(ctx context.Context) error {
	now := d.now().UTC()

	users := []User{
		{ID: "a4ab87", FullName: "Alice Kingsley", Email: "alice@example.com"},
		{ID: "f556c0", FullName: "Bruno Okafor", Email: "bruno@example.com"},
		{ID: "b7e3d1", FullName: "Chen Wu", Email: "chen@example.com", IsBlocked: true},
	}
	subs := []Subscription{
		{UserID: "a4ab87", Status: "active", Tier: "premium", MonthlyQuota: 4},
		{UserID: "f556c0", Status: "cancelled", Tier: "basic", MonthlyQuota: 2},
		{UserID: "b7e3d1", Status: "active", Tier: "basic", MonthlyQuota: 2},
	}
	experiences := []Experience{
		{ID: "exp-jazz", Title: "Jazz Night at the Blue Room", Location: "Downtown", When: now.AddDate(0, 0, 7), Slots: 12},
		{ID: "exp-pottery", Title: "Pottery Workshop", Location: "Arts District", When: now.AddDate(0, 0, 14), Slots: 1},
		{ID: "exp-museum", Title: "After Hours Museum Tour", Location: "City Museum", When: now.AddDate(0, 0, -3), Slots: 20, IsPremium: true},
	}
	articles := []Article{
		{ID: "kb-login", Title: "How to reset your password",
			Content: "Forgot my password? Open the login screen and tap Forgot password. We send a reset link to your email address. The link expires after 30 minutes.",
			Tags:    "login,password"},
		{ID: "kb-subscription", Title: "Managing your subscription",
			Content: "Your subscription tier sets a monthly quota of experiences. You can upgrade, downgrade or pause your subscription from the account page. Unused quota does not roll over.",
			Tags:    "subscription,billing"},
		{ID: "kb-reserve", Title: "How to reserve an experience",
			Content: "Browse experiences in the app and tap Reserve to book a slot. Each reservation uses one unit of your monthly quota. Cancel a reservation to get the slot and the quota back.",
			Tags:    "reservation,booking"},
		{ID: "kb-premium", Title: "Premium experiences",
			Content: "Premium experiences are available to premium tier subscribers only and may require booking at least 48 hours in advance.",
			Tags:    "premium"},
	}

	for _, u := range users {
		if err := d.SeedUser(ctx, u); err != nil {
			return err
		}
	}
	for _, s := range subs {
		if err := d.SeedSubscription(ctx, s); err != nil {
			return err
		}
	}
	for _, e := range experiences {
		if err := d.SeedExperience(ctx, e); err != nil {
			return err
		}
	}
	for _, a := range articles {
		a.AccountID = DemoAccountID
		if err := d.SeedArticle(ctx, a); err != nil {
			return err
		}
	}
	return d.SeedTicket(ctx, domain.Ticket{
		ID:        "unknown",
		AccountID: DemoAccountID,
		UserID:    "a4ab87",
		Channel:   "chat",
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
