// Package models holds the pipeline-local entities of the registration
// intake flow. Every entity is single-owner and discarded once the message
// finishes processing; the only cross-message state lives in the external
// record store.
package models

import "time"

// RawMessage is an unprocessed incoming text unit plus locale metadata.
// Created per incoming item, consumed once by the pipeline.
type RawMessage struct {
	ID         string
	Subject    string
	Body       string
	Locale     string // "et", "en", or "" when the source has no hint
	ReceivedAt time.Time
}

// ExtractedRecord is the typed field mapping pulled out of normalized text.
// Fields not matched by any rule stay at their zero value; absence is
// meaningful and never defaulted here.
type ExtractedRecord struct {
	CompanyName      string
	RegistrationCode string
	Email            string
	Phone            string
	Industry         string
	Participants     []string // document order
	RawText          string
	LowConfidence    bool
}

// ValidatedRecord is an ExtractedRecord whose required fields passed
// validation. Participants is never nil past this point.
type ValidatedRecord struct {
	CompanyName      string
	RegistrationCode string
	Email            string
	Phone            string
	Industry         string
	Participants     []string
	RawText          string
	ReceivedAt       time.Time
}

// ResolvedRecord is a ValidatedRecord augmented with the derived location tag
// and, once reconciliation assigns it, the sequence key. SequenceKey is the
// only post-construction mutation any entity receives.
type ResolvedRecord struct {
	ValidatedRecord
	Location    string
	SequenceKey int64
}

// Selector names the logical destination database inside the external store.
// It is computed by the routing rule before the core runs and treated as an
// opaque input by the reconciler.
type Selector string

// Candidate is an existing store entry matched by registration code.
type Candidate struct {
	ID          string
	SequenceKey int64
}

// Operation discriminates the two reconciliation outcomes.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// MatchDecision is the reconciler's verdict, consumed by the store client.
// For OpUpdate, ExistingID names the entry to update and Record carries the
// preserved sequence key of that entry.
type MatchDecision struct {
	Op         Operation
	Selector   Selector
	ExistingID string
	Record     ResolvedRecord
}

// OutcomeStatus terminates a pipeline invocation.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome is the terminal result of one message, handed to the reporter.
// On failure, Partial carries the best-available record so an operator can
// act without re-reading the original message.
type Outcome struct {
	MessageID   string
	Status      OutcomeStatus
	Selector    Selector
	Op          Operation
	StoreID     string
	SequenceKey int64
	CompanyName string
	Reason      string
	Partial     ExtractedRecord
	RawBody     string
	// Notes carries soft events (e.g. unknown location prefix) that must be
	// surfaced in the notification without failing the message.
	Notes []string
}

// NotificationRequest is the reporter's output for the notifier collaborator.
type NotificationRequest struct {
	Recipients []string
	CC         string
	Subject    string
	Body       string
	MessageID  string
}

// Service identifies a detected service category from the original intake
// forms. Keys keep the Estonian names used across the destination databases.
type Service string

const (
	ServiceDigitalMaturity Service = "Digiküpsuse hindamine"
	ServiceAIConsultancy   Service = "Tehisintellekti otstarbekuse nõustamine"
	ServicePrivateFunding  Service = "Finantseerimise nõustamine – Erakapitali kaasamine"
	ServicePublicMeasures  Service = "Finantseerimise nõustamine – Avalikud meetmed"
	ServiceRobotics        Service = "Robotiseerimise nõustamine"
	ServicePreAccelerator  Service = "AIRE eelkiirendi"
)
