package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// DefaultReservationLockTTL bounds the distributed lock around a reservation write.
const DefaultReservationLockTTL = 10 * time.Second

// CustomerStore implements ports.CustomerStore.
type CustomerStore struct {
	*DB
	locker ports.DistributedLocker
	logger *slog.Logger
}

var _ ports.CustomerStore = (*CustomerStore)(nil)

// CustomerOption configures a CustomerStore.
type CustomerOption func(*CustomerStore)

// WithLocker wraps reservation writes in a lock keyed by experience or reservation.
func WithLocker(locker ports.DistributedLocker) CustomerOption {
	return func(s *CustomerStore) {
		s.locker = locker
	}
}

// WithCustomerLogger sets the logger.
func WithCustomerLogger(logger *slog.Logger) CustomerOption {
	return func(s *CustomerStore) {
		s.logger = logger
	}
}

// NewCustomerStore wraps an open database.
func NewCustomerStore(db *DB, opts ...CustomerOption) *CustomerStore {
	s := &CustomerStore{DB: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CustomerStore) GetUserProfile(ctx context.Context, externalUserID string) (*domain.Profile, error) {
	var (
		p       domain.Profile
		blocked int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, full_name, email, is_blocked FROM users WHERE user_id = ?", externalUserID,
	).Scan(&p.UserID, &p.FullName, &p.Email, &blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.CodeNotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	p.IsBlocked = blocked != 0
	return &p, nil
}

func (s *CustomerStore) GetSubscriptionStatus(ctx context.Context, userID string) (*domain.SubscriptionStatus, error) {
	return s.subscriptionStatus(ctx, s.db, userID)
}

// subscriptionStatus computes usage over the calendar month containing now.
func (s *CustomerStore) subscriptionStatus(ctx context.Context, q queryer, userID string) (*domain.SubscriptionStatus, error) {
	var st domain.SubscriptionStatus
	err := q.QueryRowContext(ctx,
		"SELECT status, tier, monthly_quota FROM subscriptions WHERE user_id = ?", userID,
	).Scan(&st.Status, &st.Tier, &st.MonthlyQuota)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.CodeNoSub, "Subscription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE user_id = ? AND status = ? AND created_at >= ?`,
		userID, domain.ReservationReserved, formatTime(monthStart),
	).Scan(&st.UsedThisMonth)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}

	st.RemainingQuota = max(0, st.MonthlyQuota-st.UsedThisMonth)
	return &st, nil
}

func (s *CustomerStore) ListReservations(ctx context.Context, userID string, upcomingOnly bool) (*domain.ReservationList, error) {
	query := `SELECT r.reservation_id, e.experience_id, e.title, e.when_at, r.status
		FROM reservations r JOIN experiences e ON r.experience_id = e.experience_id
		WHERE r.user_id = ?`
	args := []any{userID}
	if upcomingOnly {
		query += " AND e.when_at >= ?"
		args = append(args, formatTime(s.now()))
	}
	query += " ORDER BY e.when_at, r.created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	list := &domain.ReservationList{Reservations: []domain.ReservationItem{}}
	for rows.Next() {
		var (
			item domain.ReservationItem
			when string
		)
		if err := rows.Scan(&item.ReservationID, &item.ExperienceID, &item.Title, &when, &item.Status); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		item.When = parseTime(when)
		list.Reservations = append(list.Reservations, item)
	}
	return list, rows.Err()
}

// ReserveExperience performs every eligibility check and the slot decrement in
// one transaction, so two concurrent calls cannot both take the last slot.
func (s *CustomerStore) ReserveExperience(ctx context.Context, userID, experienceID string) (*domain.ReservationReceipt, error) {
	unlock, err := s.lock(ctx, "experience:"+experienceID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var receipt *domain.ReservationReceipt
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var blocked int
		err := tx.QueryRowContext(ctx, "SELECT is_blocked FROM users WHERE user_id = ?", userID).Scan(&blocked)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Errorf(domain.CodeUserNotFound, "User not found")
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if blocked != 0 {
			return domain.Errorf(domain.CodeBlocked, "User is blocked")
		}

		status, err := s.subscriptionStatus(ctx, tx, userID)
		if domain.CodeOf(err) == domain.CodeNoSub {
			return domain.Errorf(domain.CodeInactiveSub, "Subscription inactive")
		}
		if err != nil {
			return err
		}
		if status.Status != "active" {
			return domain.Errorf(domain.CodeInactiveSub, "Subscription inactive")
		}
		if status.RemainingQuota <= 0 {
			return domain.Errorf(domain.CodeNoQuota, "Monthly quota exhausted")
		}

		var slots int
		err = tx.QueryRowContext(ctx,
			"SELECT slots_available FROM experiences WHERE experience_id = ?", experienceID,
		).Scan(&slots)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Errorf(domain.CodeExpNotFound, "Experience not found")
		}
		if err != nil {
			return fmt.Errorf("get experience: %w", err)
		}
		if slots <= 0 {
			return domain.Errorf(domain.CodeNoSlots, "No slots available")
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE experiences SET slots_available = slots_available - 1 WHERE experience_id = ? AND slots_available > 0",
			experienceID,
		)
		if err != nil {
			return fmt.Errorf("decrement slots: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return domain.Errorf(domain.CodeNoSlots, "No slots available")
		}

		id := uuid.NewString()
		_, err = tx.ExecContext(ctx,
			"INSERT INTO reservations(reservation_id, user_id, experience_id, status, created_at) VALUES(?, ?, ?, ?, ?)",
			id, userID, experienceID, domain.ReservationReserved, formatTime(s.now()),
		)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		receipt = &domain.ReservationReceipt{ReservationID: id}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation created", "user_id", userID, "experience_id", experienceID, "reservation_id", receipt.ReservationID)
	return receipt, nil
}

// CancelReservation flips an active reservation to cancelled and returns its slot.
func (s *CustomerStore) CancelReservation(ctx context.Context, reservationID, userID string) (*domain.ReservationReceipt, error) {
	unlock, err := s.lock(ctx, "reservation:"+reservationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var experienceID, status string
		err := tx.QueryRowContext(ctx,
			"SELECT experience_id, status FROM reservations WHERE reservation_id = ? AND user_id = ?",
			reservationID, userID,
		).Scan(&experienceID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Errorf(domain.CodeNotFound, "Reservation not found")
		}
		if err != nil {
			return fmt.Errorf("get reservation: %w", err)
		}
		if status != domain.ReservationReserved {
			return domain.Errorf(domain.CodeInvalidState, "Reservation not active")
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE reservations SET status = ? WHERE reservation_id = ?",
			domain.ReservationCancelled, reservationID,
		); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE experiences SET slots_available = slots_available + 1 WHERE experience_id = ?",
			experienceID,
		); err != nil {
			return fmt.Errorf("restore slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation cancelled", "user_id", userID, "reservation_id", reservationID)
	return &domain.ReservationReceipt{ReservationID: reservationID, Status: domain.ReservationCancelled}, nil
}

// SlotsAvailable reports the remaining capacity of an experience.
func (s *CustomerStore) SlotsAvailable(ctx context.Context, experienceID string) (int, error) {
	var slots int
	err := s.db.QueryRowContext(ctx,
		"SELECT slots_available FROM experiences WHERE experience_id = ?", experienceID,
	).Scan(&slots)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.Errorf(domain.CodeExpNotFound, "Experience not found")
	}
	return slots, err
}

func (s *CustomerStore) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, key, DefaultReservationLockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release reservation lock (will expire via TTL)", "key", key, "err", err)
		}
	}, nil
}
