// internal/funnel/orchestrator/submit.go
package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/notify"
	"energylab-funnel/internal/funnel/lead"
	"energylab-funnel/internal/funnel/session"
	"energylab-funnel/internal/funnel/state"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9 +()-]{7,20}$`)
)

// Contact is the contact-step input.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// SubmitContact validates and stores contact details, then advances to the
// privacy step. Validation errors block progression and are the only
// errors this funnel ever shows a user.
func (o *Orchestrator) SubmitContact(ctx context.Context, sessionID string, contact Contact) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	firstName := strings.TrimSpace(contact.FirstName)
	lastName := strings.TrimSpace(contact.LastName)
	email := strings.TrimSpace(contact.Email)
	phone := strings.TrimSpace(contact.Phone)

	if firstName == "" {
		return nil, errors.NewValidationError("firstName", "first name is required")
	}
	if lastName == "" {
		return nil, errors.NewValidationError("lastName", "last name is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, errors.NewValidationError("email", "a valid email address is required")
	}
	if !phonePattern.MatchString(phone) {
		return nil, errors.NewValidationError("phone", "a valid phone number is required")
	}

	patch := state.Patch{
		FirstName: state.String(firstName),
		LastName:  state.String(lastName),
		Email:     state.String(email),
		Phone:     state.String(phone),
	}
	s.Step = s.Step.Next()
	if err := o.mergeAndSave(ctx, s, patch); err != nil {
		return nil, err
	}
	o.controller(s).Jump(s.Step)

	o.indexEvent(ctx, s.ID, "contact_submitted", nil)
	return s, nil
}

// Finalize records consent, submits the lead, and completes the session.
// Whatever happens downstream, the receipt is a success carrying the phone
// number for the confirmation message; only the audit trail, the log, the
// event index, and the metrics see the true outcome.
func (o *Orchestrator) Finalize(ctx context.Context, sessionID string, marketingOptOut bool) (lead.Receipt, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return lead.Receipt{}, err
	}

	s.Form = s.Form.Merge(state.Patch{MarketingOptOut: state.Bool(marketingOptOut)})

	receipt := o.submitter.Submit(ctx, s.ID, s.Form, s.Tracking)

	s.Completed = true
	if err := o.sessions.Save(ctx, s); err != nil {
		o.logger.Warn("Failed to persist completed session", map[string]interface{}{
			"sessionId": s.ID,
			"error":     err.Error(),
		})
	}

	o.indexEvent(ctx, s.ID, "lead_submitted", map[string]interface{}{
		"marketingOptOut": marketingOptOut,
	})

	if o.notifier != nil {
		o.notifier.SendConfirmation(ctx, notify.Confirmation{
			FirstName:  s.Form.FirstName,
			Email:      s.Form.Email,
			Phone:      s.Form.Phone,
			EmailOptIn: !marketingOptOut,
			SMSOptIn:   !marketingOptOut,
		})
	}
	return receipt, nil
}
