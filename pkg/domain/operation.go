package domain

import "time"

// Operation names a registered support operation.
type Operation string

const (
	OpGetUserProfile        Operation = "get_user_profile"
	OpGetSubscriptionStatus Operation = "get_subscription_status"
	OpListReservations      Operation = "list_reservations"
	OpReserveExperience     Operation = "reserve_experience"
	OpCancelReservation     Operation = "cancel_reservation"
)

// Operations is the fixed registry order, used in prompts and listings.
var Operations = []Operation{
	OpGetUserProfile,
	OpGetSubscriptionStatus,
	OpListReservations,
	OpReserveExperience,
	OpCancelReservation,
}

// Reservation statuses.
const (
	ReservationReserved  = "reserved"
	ReservationCancelled = "cancelled"
)

// Profile is the public view of a customer.
type Profile struct {
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	IsBlocked bool   `json:"is_blocked"`
}

// SubscriptionStatus reports current-period usage against the monthly quota.
type SubscriptionStatus struct {
	Status         string `json:"status"`
	Tier           string `json:"tier"`
	MonthlyQuota   int    `json:"monthly_quota"`
	UsedThisMonth  int    `json:"used_this_month"`
	RemainingQuota int    `json:"remaining_quota"`
}

// ReservationItem is a reservation joined with its experience.
type ReservationItem struct {
	ReservationID string    `json:"reservation_id"`
	ExperienceID  string    `json:"experience_id"`
	Title         string    `json:"title"`
	When          time.Time `json:"when"`
	Status        string    `json:"status"`
}

// ReservationList is the payload of list_reservations.
type ReservationList struct {
	Reservations []ReservationItem `json:"reservations"`
}

// ReservationReceipt is the payload of reserve_experience and cancel_reservation.
type ReservationReceipt struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status,omitempty"`
}

// Ticket statuses.
const (
	TicketOpen      = "open"
	TicketEscalated = "escalated"
)

// Ticket is the metadata record of a support ticket.
type Ticket struct {
	ID        string    `json:"ticket_id"`
	AccountID string    `json:"account_id"`
	UserID    string    `json:"user_id"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketMessage is an entry of a ticket's history.
type TicketMessage struct {
	ID        string    `json:"message_id"`
	TicketID  string    `json:"ticket_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
