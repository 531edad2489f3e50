// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrLeadNotFound is a sentinel error
type ErrLeadNotFound struct {
	LeadID uuid.UUID
}

func (e *ErrLeadNotFound) Error() string {
	return fmt.Sprintf("lead %s not found", e.LeadID)
}

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID uuid.UUID
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

// ErrDraftNotFound is a sentinel error
type ErrDraftNotFound struct {
	DraftID uuid.UUID
}

func (e *ErrDraftNotFound) Error() string {
	return fmt.Sprintf("draft %s not found", e.DraftID)
}

// ValidationError marks bad input rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PreconditionKind names the specific precondition a state-mutating
// operation failed on. The operation has no partial effect.
type PreconditionKind string

const (
	NotEnrolled       PreconditionKind = "not_enrolled"
	AlreadyReplied    PreconditionKind = "already_replied"
	SequenceExhausted PreconditionKind = "sequence_exhausted"
	InvalidDraftState PreconditionKind = "invalid_draft_state"
	InvalidTransition PreconditionKind = "invalid_transition"
)

// PreconditionError is surfaced to the caller when an operation's
// preconditions do not hold.
type PreconditionError struct {
	Kind   PreconditionKind
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// IntegrationError wraps a failure from an external collaborator (content
// generator, mail sender, research agent). Transient failures are safe to
// retry; permanent ones need manual remediation.
type IntegrationError struct {
	Service   string
	Transient bool
	Err       error
}

func (e *IntegrationError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s integration failure (%s): %v", e.Service, kind, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// Helper constructors

func NewLeadNotFound(id uuid.UUID) error     { return &ErrLeadNotFound{LeadID: id} }
func NewCampaignNotFound(id uuid.UUID) error { return &ErrCampaignNotFound{CampaignID: id} }
func NewDraftNotFound(id uuid.UUID) error    { return &ErrDraftNotFound{DraftID: id} }

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func NewPrecondition(kind PreconditionKind, detail string) error {
	return &PreconditionError{Kind: kind, Detail: detail}
}

func NewTransient(service string, err error) error {
	return &IntegrationError{Service: service, Transient: true, Err: err}
}

func NewPermanent(service string, err error) error {
	return &IntegrationError{Service: service, Transient: false, Err: err}
}

// IsPrecondition reports whether err is a PreconditionError of the given kind.
func IsPrecondition(err error, kind PreconditionKind) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) && pe.Kind == kind
}

// IsTransient reports whether err is a retryable integration failure.
func IsTransient(err error) bool {
	var ie *IntegrationError
	return errors.As(err, &ie) && ie.Transient
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	var lead *ErrLeadNotFound
	var campaign *ErrCampaignNotFound
	var draft *ErrDraftNotFound
	return errors.As(err, &lead) || errors.As(err, &campaign) || errors.As(err, &draft)
}
