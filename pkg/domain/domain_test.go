package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritotombe/supportflow/pkg/domain"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		raw    string
		want   domain.Intent
		wantOK bool
	}{
		{"login", domain.IntentLogin, true},
		{"  Subscription\n", domain.IntentSubscription, true},
		{"RESERVATION", domain.IntentReservation, true},
		{"knowledge", domain.IntentKnowledge, true},
		{"unknown", domain.IntentUnknown, true},
		{"billing", domain.IntentUnknown, false},
		{"", domain.IntentUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := domain.ParseIntent(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestLastHumanContent(t *testing.T) {
	_, ok := domain.LastHumanContent(nil)
	assert.False(t, ok)

	msgs := []domain.Message{
		domain.HumanMessage("first"),
		domain.AIMessage("reply"),
		domain.HumanMessage("second"),
		domain.AIMessage("another reply"),
	}
	got, ok := domain.LastHumanContent(msgs)
	assert.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestLatestReplies(t *testing.T) {
	assert.Equal(t, []string{}, domain.LatestReplies(nil))

	msgs := []domain.Message{
		domain.HumanMessage("q1"),
		domain.AIMessage("a1"),
		domain.HumanMessage("q2"),
		{Role: domain.RoleSystem, Content: "note"},
		domain.AIMessage("a2"),
		domain.AIMessage("a3"),
	}
	assert.Equal(t, []string{"a2", "a3"}, domain.LatestReplies(msgs))

	assert.Equal(t, []string{}, domain.LatestReplies(msgs[:3]))
}

func TestState_Clone(t *testing.T) {
	s := domain.NewState("t-1", domain.HumanMessage("hello"))
	s.MinConfidence = domain.Float(0.4)
	s.History = []domain.NodeID{domain.NodePrepare}

	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.History[0] = domain.NodeEnd
	*c.MinConfidence = 0.9

	assert.Equal(t, "hello", s.Messages[0].Content)
	assert.Equal(t, domain.NodePrepare, s.History[0])
	assert.Equal(t, 0.4, *s.MinConfidence)
}

func TestState_WithMessage(t *testing.T) {
	s := domain.NewState("t-1")
	next := s.WithMessage(domain.HumanMessage("hi"))

	assert.Empty(t, s.Messages)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, domain.NodePrepare, next.CurrentNodeID)
	assert.Equal(t, domain.StatusActive, next.Status)
}

func TestState_Confidence(t *testing.T) {
	var s domain.State
	assert.Equal(t, 0.6, s.Confidence(0.6))
	assert.Nil(t, s.LastConfidence())

	s.MinConfidence = domain.Float(0)
	assert.Equal(t, 0.0, s.Confidence(0.6))

	s.ResolverResult = &domain.ResolveResult{Reason: domain.ReasonSearchFailed}
	assert.Nil(t, s.LastConfidence())

	s.ResolverResult.BestScore = domain.Float(0.25)
	got := s.LastConfidence()
	require.NotNil(t, got)
	assert.Equal(t, 0.25, *got)
	*got = 1
	assert.Equal(t, 0.25, *s.ResolverResult.BestScore)
}

func TestError(t *testing.T) {
	assert.Equal(t, "NO_QUOTA", (&domain.Error{Code: domain.CodeNoQuota}).Error())
	assert.Equal(t, "NO_SLOTS: exp-1 is full", domain.Errorf(domain.CodeNoSlots, "%s is full", "exp-1").Error())

	wrapped := fmt.Errorf("reserve: %w", domain.Errorf(domain.CodeBlocked, "user blocked"))
	assert.Equal(t, domain.CodeBlocked, domain.CodeOf(wrapped))
	assert.Equal(t, domain.Code(""), domain.CodeOf(errors.New("plain")))

	assert.Nil(t, domain.AsError(nil, domain.CodeStoreError))
	assert.Equal(t, domain.CodeBlocked, domain.AsError(wrapped, domain.CodeStoreError).Code)
	plain := domain.AsError(errors.New("disk full"), domain.CodeStoreError)
	assert.Equal(t, domain.CodeStoreError, plain.Code)
	assert.Equal(t, "disk full", plain.Message)
}

func TestResults(t *testing.T) {
	ok := domain.Success(map[string]int{"slots": 2})
	assert.True(t, ok.OK)
	assert.Nil(t, ok.Error)

	failed := domain.Failure(errors.New("boom"), domain.CodeException)
	assert.False(t, failed.OK)
	require.NotNil(t, failed.Error)
	assert.Equal(t, domain.CodeException, failed.Error.Code)
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, domain.IsBusiness(domain.CodeNoQuota))
	assert.True(t, domain.IsBusiness(domain.CodeInvalidState))
	assert.False(t, domain.IsBusiness(domain.CodeStoreError))
	assert.False(t, domain.IsBusiness(domain.CodeLLMError))
}
