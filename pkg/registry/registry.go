package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// ProfileArgs are the arguments of get_user_profile.
type ProfileArgs struct {
	ExternalUserID string `mapstructure:"external_user_id"`
}

// SubscriptionArgs are the arguments of get_subscription_status.
type SubscriptionArgs struct {
	UserID string `mapstructure:"user_id"`
}

// ListArgs are the arguments of list_reservations.
// UpcomingOnly defaults to true when omitted.
type ListArgs struct {
	UserID       string `mapstructure:"user_id"`
	UpcomingOnly *bool  `mapstructure:"upcoming_only"`
}

// ReserveArgs are the arguments of reserve_experience.
type ReserveArgs struct {
	UserID       string `mapstructure:"user_id"`
	ExperienceID string `mapstructure:"experience_id"`
}

// CancelArgs are the arguments of cancel_reservation.
type CancelArgs struct {
	ReservationID string `mapstructure:"reservation_id"`
	UserID        string `mapstructure:"user_id"`
}

// Entry describes one registered operation.
type Entry struct {
	Name        domain.Operation
	Description string
	Required    []string
	Optional    []string
}

// Registry is the closed table of support operations backed by a CustomerStore.
// Entries are fixed at construction.
type Registry struct {
	store   ports.CustomerStore
	entries map[domain.Operation]Entry
}

// New builds the registry over store.
func New(store ports.CustomerStore) *Registry {
	entries := []Entry{
		{
			Name:        domain.OpGetUserProfile,
			Description: "Look up a customer profile by external user id.",
			Required:    []string{"external_user_id"},
		},
		{
			Name:        domain.OpGetSubscriptionStatus,
			Description: "Report subscription status and this month's remaining quota.",
			Required:    []string{"user_id"},
		},
		{
			Name:        domain.OpListReservations,
			Description: "List the user's reservations.",
			Required:    []string{"user_id"},
			Optional:    []string{"upcoming_only"},
		},
		{
			Name:        domain.OpReserveExperience,
			Description: "Reserve a slot of an experience for the user.",
			Required:    []string{"user_id", "experience_id"},
		},
		{
			Name:        domain.OpCancelReservation,
			Description: "Cancel an active reservation and return its slot.",
			Required:    []string{"reservation_id", "user_id"},
		},
	}

	r := &Registry{store: store, entries: make(map[domain.Operation]Entry, len(entries))}
	for _, e := range entries {
		r.entries[e.Name] = e
	}
	return r
}

// Lookup returns the entry registered for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[domain.Operation(name)]
	return e, ok
}

// Entries returns the registered operations in fixed order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(domain.Operations))
	for _, op := range domain.Operations {
		out = append(out, r.entries[op])
	}
	return out
}

// Describe renders the operation list for prompts.
func (r *Registry) Describe() string {
	var sb strings.Builder
	for _, e := range r.Entries() {
		fmt.Fprintf(&sb, "- %s(%s): %s\n", e.Name, strings.Join(argNames(e), ", "), e.Description)
	}
	return sb.String()
}

func argNames(e Entry) []string {
	names := append([]string(nil), e.Required...)
	for _, o := range e.Optional {
		names = append(names, o+"?")
	}
	return names
}

// Execute validates args against the operation and runs it.
// Store failures are returned unchanged so callers see their codes.
func (r *Registry) Execute(ctx context.Context, op domain.Operation, args map[string]any) (any, error) {
	entry, ok := r.entries[op]
	if !ok {
		return nil, domain.Errorf(domain.CodeBadAction, "%s", op)
	}

	switch op {
	case domain.OpGetUserProfile:
		var a ProfileArgs
		if err := decode(entry, args, &a); err != nil {
			return nil, err
		}
		return r.store.GetUserProfile(ctx, a.ExternalUserID)

	case domain.OpGetSubscriptionStatus:
		var a SubscriptionArgs
		if err := decode(entry, args, &a); err != nil {
			return nil, err
		}
		return r.store.GetSubscriptionStatus(ctx, a.UserID)

	case domain.OpListReservations:
		var a ListArgs
		if err := decode(entry, args, &a); err != nil {
			return nil, err
		}
		upcoming := true
		if a.UpcomingOnly != nil {
			upcoming = *a.UpcomingOnly
		}
		return r.store.ListReservations(ctx, a.UserID, upcoming)

	case domain.OpReserveExperience:
		var a ReserveArgs
		if err := decode(entry, args, &a); err != nil {
			return nil, err
		}
		return r.store.ReserveExperience(ctx, a.UserID, a.ExperienceID)

	case domain.OpCancelReservation:
		var a CancelArgs
		if err := decode(entry, args, &a); err != nil {
			return nil, err
		}
		return r.store.CancelReservation(ctx, a.ReservationID, a.UserID)
	}

	panic(fmt.Sprintf("registry: operation %q registered without executor", op))
}

// decode checks required keys and decodes args into out.
// Scalars are weakly typed, so a numeric id or a "false" string still decode.
func decode(entry Entry, args map[string]any, out any) error {
	for _, key := range entry.Required {
		v, ok := args[key]
		if !ok || v == nil || v == "" {
			return domain.Errorf(domain.CodeMissingArgument, "%s requires %s", entry.Name, key)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return domain.Errorf(domain.CodeBadOutput, "invalid arguments for %s: %v", entry.Name, err)
	}
	return nil
}
