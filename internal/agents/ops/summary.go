package ops

import (
	"fmt"
	"strings"

	"github.com/ritotombe/supportflow/pkg/domain"
)

const whenLayout = "Mon 2 Jan 2006 15:04"

// Summarize renders an ops outcome for the conversation. Codes never appear.
func Summarize(res domain.OpsResult) string {
	if !res.OK {
		return "Sorry, I couldn't complete that request: " + humanReason(res.Error) + "."
	}

	switch data := res.Data.(type) {
	case *domain.Profile:
		s := fmt.Sprintf("Here is your profile: %s (%s).", data.FullName, data.Email)
		if data.IsBlocked {
			s += " Your account is currently blocked."
		}
		return s
	case *domain.SubscriptionStatus:
		return fmt.Sprintf("Your %s subscription is %s. You have used %d of %d experiences this month, %d remaining.",
			data.Tier, data.Status, data.UsedThisMonth, data.MonthlyQuota, data.RemainingQuota)
	case *domain.ReservationList:
		if len(data.Reservations) == 0 {
			return "You have no reservations."
		}
		var sb strings.Builder
		sb.WriteString("Your reservations:")
		for _, r := range data.Reservations {
			fmt.Fprintf(&sb, "\n- %s on %s (%s, id %s)", r.Title, r.When.Format(whenLayout), r.Status, r.ReservationID)
		}
		return sb.String()
	case *domain.ReservationReceipt:
		if data.Status == domain.ReservationCancelled {
			return fmt.Sprintf("Reservation %s has been cancelled.", data.ReservationID)
		}
		return fmt.Sprintf("Your reservation is confirmed. Reservation ID: %s.", data.ReservationID)
	}
	return "Done."
}

func humanReason(err *domain.Error) string {
	if err == nil {
		return "something went wrong on our side"
	}
	if domain.IsBusiness(err.Code) && err.Message != "" {
		return strings.TrimSuffix(err.Message, ".")
	}
	switch err.Code {
	case domain.CodeBadAction, domain.CodeBadOutput:
		return "I couldn't work out which action you need"
	case domain.CodeMissingArgument:
		return "some required details are missing"
	}
	return "something went wrong on our side"
}
