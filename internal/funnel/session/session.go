// internal/funnel/session/session.go
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/funnel/lead"
	"energylab-funnel/internal/funnel/state"
	"energylab-funnel/internal/funnel/wizard"
)

// SubState is the postcode step's internal position.
type SubState string

const (
	SubPostcodeEntry SubState = "postcode_entry"
	SubAddressList   SubState = "address_list"
	SubEPCConfirm    SubState = "epc_confirm"
	SubManualEntry   SubState = "manual_entry"
)

// Session is one visitor's wizard state: the accumulated form, the current
// step, and the campaign attribution captured at landing. It is discarded
// when the TTL lapses without activity.
type Session struct {
	ID        string          `json:"id"`
	Step      wizard.Step     `json:"step"`
	SubState  SubState        `json:"subState"`
	Form      state.FormState `json:"form"`
	Tracking  lead.Tracking   `json:"tracking"`
	Completed bool            `json:"completed"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewSession creates a fresh session at the welcome step.
func NewSession(tracking lead.Tracking) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Step:      wizard.StepWelcome,
		SubState:  SubPostcodeEntry,
		Form:      state.New(),
		Tracking:  tracking,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists wizard sessions between requests.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// notFound produces the standard session error for an unknown id.
func notFound(id string) error {
	return errors.NewSessionNotFoundError(id)
}
