// internal/funnel/orchestrator/postcode.go
package orchestrator

import (
	"context"
	"strings"
	"time"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/funnel/address"
	"energylab-funnel/internal/funnel/epc"
	"energylab-funnel/internal/funnel/progress"
	"energylab-funnel/internal/funnel/session"
	"energylab-funnel/internal/funnel/state"
	"energylab-funnel/internal/funnel/wizard"
)

// AddressOption is one selectable entry in the address list.
type AddressOption struct {
	Display   string            `json:"display"`
	Candidate address.Candidate `json:"candidate"`
}

// LookupPostcode resolves the postcode to the candidate list and moves the
// postcode step into its address-list sub-state.
func (o *Orchestrator) LookupPostcode(ctx context.Context, sessionID, postcode string) ([]AddressOption, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	candidates, err := o.resolver.Resolve(ctx, postcode)
	if o.obs != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		o.obs.RecordEnrichment(ctx, "address_lookup", outcome, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	s.SubState = session.SubAddressList
	if err := o.mergeAndSave(ctx, s, state.Patch{Postcode: state.String(strings.TrimSpace(postcode))}); err != nil {
		return nil, err
	}

	options := make([]AddressOption, 0, len(candidates))
	for _, c := range candidates {
		options = append(options, AddressOption{Display: c.FormatDisplay(), Candidate: c})
	}
	o.indexEvent(ctx, s.ID, "postcode_resolved", map[string]interface{}{
		"candidates": len(options),
	})
	return options, nil
}

// SelectionResult reports what the wizard should show after an address is
// chosen. The EPC confirmation sub-state is required exactly when an EPC
// record was found.
type SelectionResult struct {
	RequiresEPCConfirm bool         `json:"requiresEpcConfirm"`
	EPCSummary         *epc.Summary `json:"epcSummary,omitempty"`
}

// SelectAddress runs the enrichment chain for the chosen candidate:
// address lines, then eligibility, then EPC, each awaited before the next.
// Every enrichment failure degrades silently; selection never fails past
// session lookup.
func (o *Orchestrator) SelectAddress(ctx context.Context, sessionID string, candidate address.Candidate) (*SelectionResult, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var gate *progress.Gate
	if o.cfg.Script != nil {
		gate = progress.NewGate()
		timer := time.AfterFunc(o.cfg.Script.Total(), gate.ScriptFinished)
		defer timer.Stop()
	}

	lines := address.BuildCandidateLines(candidate)

	start := time.Now()
	elig := o.eligibility.Check(ctx, lines.Line1, lines.Line2, candidate.Postcode)
	if o.obs != nil {
		o.obs.RecordEnrichment(ctx, "eligibility", "ok", time.Since(start))
	}

	start = time.Now()
	record := o.epc.Lookup(ctx, lines.Line1, lines.Line2, candidate.Postcode)
	if o.obs != nil {
		outcome := "found"
		if record == nil {
			outcome = "absent"
		}
		o.obs.RecordEnrichment(ctx, "epc", outcome, time.Since(start))
	}

	house := candidate.HouseName
	if house == "" {
		house = candidate.HouseNumber
	}

	patch := state.Patch{
		Postcode:            state.String(candidate.Postcode),
		Address:             state.String(candidate.FormatDisplay()),
		House:               state.String(house),
		Street:              state.String(candidate.Street),
		Town:                state.String(candidate.Town),
		County:              state.String(candidate.County),
		UPRN:                state.String(candidate.UPRN),
		AddressLine1:        state.String(lines.Line1),
		AddressLine2:        state.String(lines.Line2),
		EcoEligible:         state.Bool(elig.EcoEligible),
		BaxterKellyEligible: state.Bool(elig.BaxterKellyEligible),
		ProductID:           state.String(elig.ProductID),
		DesID:               state.String(elig.DesID),
		EPC:                 record,
	}

	result := &SelectionResult{RequiresEPCConfirm: record != nil}
	if record != nil {
		s.SubState = session.SubEPCConfirm
		summary := record.Summarize()
		result.EPCSummary = &summary
	} else {
		s.SubState = session.SubPostcodeEntry
		s.Step = s.Step.Next()
		o.controller(s).Jump(s.Step)
	}

	if err := o.mergeAndSave(ctx, s, patch); err != nil {
		return nil, err
	}

	o.indexEvent(ctx, s.ID, "address_selected", map[string]interface{}{
		"ecoEligible":         elig.EcoEligible,
		"baxterKellyEligible": elig.BaxterKellyEligible,
		"epcFound":            record != nil,
	})

	// Selection does not complete before the finding-deals script has
	// played out, so the wizard never advances mid-animation.
	if gate != nil {
		gate.WorkFinished()
		select {
		case <-gate.Released():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, nil
}

// ConfirmEPC acknowledges the EPC confirmation sub-state and advances to
// the contact step.
func (o *Orchestrator) ConfirmEPC(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.SubState != session.SubEPCConfirm {
		return nil, errors.NewValidationError("subState", "no EPC confirmation pending")
	}

	s.SubState = session.SubPostcodeEntry
	s.Step = s.Step.Next()
	if err := o.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	o.controller(s).Jump(s.Step)

	o.indexEvent(ctx, s.ID, "epc_confirmed", nil)
	return s, nil
}

// SearchAgain discards the address-lookup subset of the form and returns
// the postcode step to postcode entry. Contact details survive.
func (o *Orchestrator) SearchAgain(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.Form = s.Form.ResetAddress()
	s.SubState = session.SubPostcodeEntry
	s.Step = wizard.StepPostcode
	if err := o.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	o.controller(s).Jump(s.Step)

	o.indexEvent(ctx, s.ID, "search_again", nil)
	return s, nil
}

// ManualAddress is the escape-hatch address entry. It bypasses lookup and
// all enrichment.
type ManualAddress struct {
	House    string `json:"house"`
	Street   string `json:"street"`
	Town     string `json:"town"`
	County   string `json:"county"`
	Postcode string `json:"postcode"`
}

// SubmitManualAddress stores a manually entered address with eligibility
// defaulted to not-eligible and no EPC record, then advances to the contact
// step.
func (o *Orchestrator) SubmitManualAddress(ctx context.Context, sessionID string, manual ManualAddress) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(manual.House) == "" {
		return nil, errors.NewValidationError("house", "house name or number is required")
	}
	if strings.TrimSpace(manual.Street) == "" {
		return nil, errors.NewValidationError("street", "street is required")
	}
	if strings.TrimSpace(manual.Town) == "" {
		return nil, errors.NewValidationError("town", "town is required")
	}
	if !address.IsPostcodeValid(manual.Postcode) {
		return nil, errors.NewPostcodeInvalidError(manual.Postcode)
	}

	lines := address.BuildLines("", "", strings.TrimSpace(manual.House), strings.TrimSpace(manual.Street))
	display := address.Candidate{
		HouseNumber: strings.TrimSpace(manual.House),
		Street:      strings.TrimSpace(manual.Street),
		Town:        strings.TrimSpace(manual.Town),
		Postcode:    strings.TrimSpace(manual.Postcode),
	}.FormatDisplay()

	patch := state.Patch{
		Postcode:            state.String(strings.TrimSpace(manual.Postcode)),
		Address:             state.String(display),
		House:               state.String(strings.TrimSpace(manual.House)),
		Street:              state.String(strings.TrimSpace(manual.Street)),
		Town:                state.String(strings.TrimSpace(manual.Town)),
		County:              state.String(strings.TrimSpace(manual.County)),
		AddressLine1:        state.String(lines.Line1),
		AddressLine2:        state.String(lines.Line2),
		EcoEligible:         state.Bool(false),
		BaxterKellyEligible: state.Bool(false),
	}

	s.SubState = session.SubPostcodeEntry
	s.Step = s.Step.Next()
	if err := o.mergeAndSave(ctx, s, patch); err != nil {
		return nil, err
	}
	o.controller(s).Jump(s.Step)

	o.indexEvent(ctx, s.ID, "manual_address_submitted", nil)
	return s, nil
}

// EnterManualAddress moves the postcode step into its manual-entry
// sub-state.
func (o *Orchestrator) EnterManualAddress(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.SubState = session.SubManualEntry
	if err := o.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
