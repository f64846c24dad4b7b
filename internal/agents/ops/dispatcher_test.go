package ops_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ritotombe/supportflow/internal/agents/ops"
	"github.com/ritotombe/supportflow/internal/testutils"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultCtx = ops.Context{
	UserID:         "a4ab87",
	ExternalUserID: "a4ab87",
	AccountID:      "cultpass",
}

func newDispatcher(store *testutils.FakeCustomerStore, replies ...string) (*ops.Dispatcher, *testutils.ScriptedCompleter) {
	llm := testutils.NewCompleter(replies...)
	return ops.New(llm, registry.New(store)), llm
}

func TestOperate_SubscriptionStatus(t *testing.T) {
	store := &testutils.FakeCustomerStore{
		Subscription: func(userID string) (*domain.SubscriptionStatus, error) {
			assert.Equal(t, "a4ab87", userID, "user id comes from context")
			return &domain.SubscriptionStatus{Status: "active", Tier: "premium", MonthlyQuota: 4, UsedThisMonth: 1, RemainingQuota: 3}, nil
		},
	}
	d, llm := newDispatcher(store, `{"action": "get_subscription_status", "args": {}}`)

	res := d.Operate(context.Background(), "what is my subscription status?", defaultCtx)

	require.True(t, res.OK, "%+v", res.Error)
	assert.Equal(t, domain.OpGetSubscriptionStatus, res.Operation)
	assert.Equal(t, 3, res.Data.(*domain.SubscriptionStatus).RemainingQuota)

	require.Len(t, llm.Calls, 1)
	assert.Contains(t, llm.Calls[0].System, "choose one action from: get_user_profile, get_subscription_status, list_reservations, reserve_experience, cancel_reservation.")
	assert.Contains(t, llm.Calls[0].System, "Respond ONLY as JSON with keys: action, args.")
	assert.Equal(t,
		"User message: what is my subscription status?\nContext: {\"user_id\":\"a4ab87\",\"external_user_id\":\"a4ab87\",\"account_id\":\"cultpass\"}\n",
		llm.Calls[0].User)
}

func TestOperate_ModelArgsWinOverContext(t *testing.T) {
	store := &testutils.FakeCustomerStore{
		Reserve: func(userID, experienceID string) (*domain.ReservationReceipt, error) {
			assert.Equal(t, "a4ab87", userID)
			assert.Equal(t, "exp-model", experienceID)
			return &domain.ReservationReceipt{ReservationID: "r-9"}, nil
		},
	}
	d, _ := newDispatcher(store, `{"action":"reserve_experience","args":{"experience_id":"exp-model"}}`)
	c := defaultCtx
	c.ExperienceID = "exp-context"

	res := d.Operate(context.Background(), "book jazz night", c)
	require.True(t, res.OK)
	assert.Equal(t, "r-9", res.Data.(*domain.ReservationReceipt).ReservationID)
}

func TestOperate_AccountIDIsNotMerged(t *testing.T) {
	assert.NotContains(t, defaultCtx.Args(), "account_id")
	assert.Equal(t, map[string]any{"user_id": "a4ab87", "external_user_id": "a4ab87"}, defaultCtx.Args())
}

func TestOperate_FencedReply(t *testing.T) {
	store := &testutils.FakeCustomerStore{}
	d, _ := newDispatcher(store, "```json\n{\"action\": \"list_reservations\", \"args\": {\"upcoming_only\": false}}\n```")

	res := d.Operate(context.Background(), "show my bookings", defaultCtx)
	require.True(t, res.OK, "%+v", res.Error)
	assert.Equal(t, []string{"list_reservations"}, store.Calls)
}

func TestOperate_BadAction(t *testing.T) {
	for _, action := range []string{"delete_account", "GET_USER_PROFILE", "drop table"} {
		store := &testutils.FakeCustomerStore{}
		d, _ := newDispatcher(store, `{"action":"`+action+`","args":{}}`)

		res := d.Operate(context.Background(), "x", defaultCtx)
		assert.False(t, res.OK)
		require.NotNil(t, res.Error)
		assert.Equal(t, domain.CodeBadAction, res.Error.Code)
		assert.Equal(t, action, res.Error.Message)
		assert.Empty(t, store.Calls)
	}
}

func TestOperate_BadOutput(t *testing.T) {
	for _, reply := range []string{
		"I think you want your profile",
		`{"args": {}}`,
		`{"action": 7, "args": {}}`,
		`{"action": "get_user_profile", "args": "nope"}`,
		`[]`,
		"",
	} {
		d, _ := newDispatcher(&testutils.FakeCustomerStore{}, reply)
		res := d.Operate(context.Background(), "x", defaultCtx)
		require.NotNil(t, res.Error, reply)
		assert.Equal(t, domain.CodeBadOutput, res.Error.Code, reply)
	}
}

func TestOperate_LLMError(t *testing.T) {
	llm := (&testutils.ScriptedCompleter{}).Then("", errors.New("connection refused"))
	d := ops.New(llm, registry.New(&testutils.FakeCustomerStore{}))

	res := d.Operate(context.Background(), "x", defaultCtx)
	assert.Equal(t, domain.CodeLLMError, res.Error.Code)
	assert.Contains(t, res.Error.Message, "connection refused")
}

func TestOperate_StoreErrorsReturnedVerbatim(t *testing.T) {
	store := &testutils.FakeCustomerStore{
		Cancel: func(reservationID, userID string) (*domain.ReservationReceipt, error) {
			return nil, domain.Errorf(domain.CodeInvalidState, "Reservation not active")
		},
	}
	d, _ := newDispatcher(store, `{"action":"cancel_reservation","args":{"reservation_id":"r-1"}}`)

	res := d.Operate(context.Background(), "cancel r-1", defaultCtx)
	assert.Equal(t, domain.OpCancelReservation, res.Operation)
	assert.Equal(t, &domain.Error{Code: domain.CodeInvalidState, Message: "Reservation not active"}, res.Error)
}

func TestOperate_ExecutorFailures(t *testing.T) {
	store := &testutils.FakeCustomerStore{
		Profile: func(string) (*domain.Profile, error) { return nil, errors.New("disk I/O error") },
	}
	d, _ := newDispatcher(store, `{"action":"get_user_profile","args":{}}`)
	res := d.Operate(context.Background(), "who am i", defaultCtx)
	assert.Equal(t, domain.CodeLLMOrToolError, res.Error.Code)
	assert.Contains(t, res.Error.Message, "disk I/O error")

	store = &testutils.FakeCustomerStore{
		Profile: func(string) (*domain.Profile, error) { panic("nil map") },
	}
	d, _ = newDispatcher(store, `{"action":"get_user_profile","args":{}}`)
	res = d.Operate(context.Background(), "who am i", defaultCtx)
	assert.False(t, res.OK)
	assert.Equal(t, domain.CodeLLMOrToolError, res.Error.Code)
	assert.Equal(t, domain.OpGetUserProfile, res.Operation)
}

func TestOperate_MissingArgument(t *testing.T) {
	store := &testutils.FakeCustomerStore{}
	d, _ := newDispatcher(store, `{"action":"reserve_experience","args":{}}`)

	res := d.Operate(context.Background(), "book something", defaultCtx)
	assert.Equal(t, domain.CodeMissingArgument, res.Error.Code)
	assert.Empty(t, store.Calls)
}

func TestSummarize(t *testing.T) {
	when := time.Date(2026, time.March, 20, 19, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		res  domain.OpsResult
		want string
	}{
		{"profile", domain.OpsResult{Result: domain.Success(&domain.Profile{FullName: "Alice", Email: "a@x"})}, "Here is your profile: Alice (a@x)."},
		{"subscription", domain.OpsResult{Result: domain.Success(&domain.SubscriptionStatus{Status: "active", Tier: "basic", MonthlyQuota: 2, UsedThisMonth: 1, RemainingQuota: 1})},
			"Your basic subscription is active. You have used 1 of 2 experiences this month, 1 remaining."},
		{"empty list", domain.OpsResult{Result: domain.Success(&domain.ReservationList{})}, "You have no reservations."},
		{"list", domain.OpsResult{Result: domain.Success(&domain.ReservationList{Reservations: []domain.ReservationItem{
			{ReservationID: "r1", Title: "Jazz", When: when, Status: "reserved"},
		}})}, "Your reservations:\n- Jazz on Fri 20 Mar 2026 19:30 (reserved, id r1)"},
		{"reserve", domain.OpsResult{Result: domain.Success(&domain.ReservationReceipt{ReservationID: "r1"})}, "Your reservation is confirmed. Reservation ID: r1."},
		{"cancel", domain.OpsResult{Result: domain.Success(&domain.ReservationReceipt{ReservationID: "r1", Status: "cancelled"})}, "Reservation r1 has been cancelled."},
		{"business failure", domain.OpsResult{Result: domain.Failure(domain.Errorf(domain.CodeNoSlots, "No slots available"), domain.CodeLLMOrToolError)},
			"Sorry, I couldn't complete that request: No slots available."},
		{"technical failure", domain.OpsResult{Result: domain.Failure(errors.New("LLM_ERROR: 500"), domain.CodeLLMError)},
			"Sorry, I couldn't complete that request: something went wrong on our side."},
		{"bad action", domain.OpsResult{Result: domain.Failure(domain.Errorf(domain.CodeBadAction, "drop"), domain.CodeLLMOrToolError)},
			"Sorry, I couldn't complete that request: I couldn't work out which action you need."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ops.Summarize(tt.res)
			assert.Equal(t, tt.want, got)
			if !tt.res.OK {
				assert.NotContains(t, got, string(tt.res.Error.Code))
			}
		})
	}
}
