package models

import "encoding/json"

// Payload is the typed data attached to an analysis or response. Each
// variant is tagged by the entity it carries.
type Payload interface {
	Entity() EntityKind
	// Empty reports whether a result set holds no rows. Single-record
	// variants are never empty.
	Empty() bool
}

// CustomerResults is the customer lookup result set.
type CustomerResults []Customer

func (CustomerResults) Entity() EntityKind { return EntityCustomer }
func (r CustomerResults) Empty() bool      { return len(r) == 0 }

func (r CustomerResults) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Customer(r))
}

// RequestResults is the request lookup result set.
type RequestResults []Request

func (RequestResults) Entity() EntityKind { return EntityRequest }
func (r RequestResults) Empty() bool      { return len(r) == 0 }

func (r RequestResults) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Request(r))
}

// OfferResults is the offer lookup result set.
type OfferResults []Offer

func (OfferResults) Entity() EntityKind { return EntityOffer }
func (r OfferResults) Empty() bool      { return len(r) == 0 }

func (r OfferResults) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Offer(r))
}

// BusinessCardResult wraps a freshly created business card.
type BusinessCardResult struct {
	BusinessCard
}

func (BusinessCardResult) Entity() EntityKind { return EntityBusinessCard }
func (BusinessCardResult) Empty() bool        { return false }

// AppointmentCreated is the data of a completed appointment flow.
type AppointmentCreated struct {
	Appointment
}

func (AppointmentCreated) Entity() EntityKind { return EntityAppointment }
func (AppointmentCreated) Empty() bool        { return false }

// AppointmentDraft exposes the slots collected so far while the flow runs.
type AppointmentDraft struct {
	Step Step    `json:"step"`
	Type *string `json:"type"`
	Date *string `json:"date"`
	Time *string `json:"time"`
}

func (AppointmentDraft) Entity() EntityKind { return EntityAppointment }
func (AppointmentDraft) Empty() bool        { return false }

// IsEmptyResult reports whether p is a result set with no rows.
func IsEmptyResult(p Payload) bool {
	return p != nil && p.Empty()
}
