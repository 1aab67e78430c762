package models

// Intent is the classified purpose of an utterance.
type Intent string

const (
	IntentArchiveSearch      Intent = "archive_search"
	IntentManageAppointments Intent = "manage_appointments"
	IntentCreateBusinessCard Intent = "create_business_card"
	IntentUrgentRequests     Intent = "urgent_requests"
	IntentSearchCustomers    Intent = "search_customers"
	IntentSearchRequests     Intent = "search_requests"
	IntentSearchOffers       Intent = "search_offers"
	IntentAnalytics          Intent = "analytics"
	IntentSocialPost         Intent = "social_post"
	IntentMarketInsights     Intent = "market_insights"
	IntentHelp               Intent = "help"
	IntentGreeting           Intent = "greeting"
	IntentGeneralInquiry     Intent = "general_inquiry"
	IntentSystemError        Intent = "system_error"
)

// Action is the verb an intent performs.
type Action string

const (
	ActionSearch Action = "search"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	ActionGreet  Action = "greet"
	ActionHelp   Action = "help"
)

// EntityKind is the noun an intent operates on. It also tags the Payload variant.
type EntityKind string

const (
	EntityCustomer     EntityKind = "customer"
	EntityRequest      EntityKind = "request"
	EntityOffer        EntityKind = "offer"
	EntityAppointment  EntityKind = "appointment"
	EntityBusinessCard EntityKind = "business_card"
	EntityAnalytics    EntityKind = "analytics"
	EntitySocialPost   EntityKind = "social_post"
	EntityArchive      EntityKind = "archive"
	EntityMarket       EntityKind = "market"
	EntitySystem       EntityKind = "system"
	EntityUnknown      EntityKind = "unknown"
)

var scopes = map[EntityKind]string{
	EntityCustomer:     "customers",
	EntityRequest:      "requests",
	EntityOffer:        "offers",
	EntityAppointment:  "appointments",
	EntityBusinessCard: "business_cards",
	EntityAnalytics:    "analytics",
	EntitySocialPost:   "social_posts",
	EntityArchive:      "archives",
	EntityMarket:       "markets",
}

// Scope returns the pluralized entity used as a response scope, or "general"
// for system and unknown entities.
func (e EntityKind) Scope() string {
	if s, ok := scopes[e]; ok {
		return s
	}
	return "general"
}

// ExtractedEntities holds best-effort substrings pulled out of an utterance.
// A nil field means the pattern did not match.
type ExtractedEntities struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Date  *string `json:"date"`
	Time  *string `json:"time"`
	Email *string `json:"email"`
}

// Analysis is the classifier output for one turn, optionally enriched with
// collaborator data.
type Analysis struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Action     Action            `json:"action"`
	Entity     EntityKind        `json:"entity"`
	Entities   ExtractedEntities `json:"entities"`
	Data       Payload           `json:"data"`
}
