// Package compose turns an analysis and the dialogue outcome of a turn into
// the normalized response returned to callers.
package compose

import (
	"fmt"
	"strconv"
	"strings"

	"realestate-assistant/internal/assistant/classify"
	"realestate-assistant/internal/assistant/dialogue"
	"realestate-assistant/internal/models"
)

const (
	// ConfidentThreshold switches the acknowledgement from "تم" to "ابشر".
	ConfidentThreshold = 0.85

	// FlowConfidence is reported for turns consumed by an active flow.
	FlowConfidence = 1.0

	defaultMaxItems = 5
	rowSeparator    = " — "
)

// TurnState carries what the router learned about the turn besides the
// analysis itself.
type TurnState struct {
	// Text is the raw utterance.
	Text string
	// Query is the search term handed to collaborators.
	Query string
	// Dialogue is set when the appointment flow handled the turn.
	Dialogue *dialogue.Outcome
	// Session is the session after the turn.
	Session models.Session
}

type Composer struct {
	maxItems int
}

// New returns a composer listing at most maxItems rows per reply.
func New(maxItems int) *Composer {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	return &Composer{maxItems: maxItems}
}

// Compose builds the response for a turn. Every path fills the reply texts
// and the result is normalized before it is returned.
func (c *Composer) Compose(a models.Analysis, st TurnState) models.NormalizedResponse {
	var resp models.NormalizedResponse

	switch {
	case st.Dialogue != nil:
		resp = c.dialogueResponse(a, *st.Dialogue, st.Session)
	case a.Intent == models.IntentSystemError:
		resp = SystemError()
	case models.IsEmptyResult(a.Data):
		resp = c.emptyResult(a, st.Query)
	case a.Data != nil:
		resp = c.results(a)
	case a.Intent == models.IntentGreeting:
		resp = c.greeting(a)
	default:
		if nav, ok := navigations[a.Intent]; ok {
			resp = c.navigation(a, nav, st.Query)
		} else {
			resp = c.general(a, st)
		}
	}

	resp.Normalize()
	return resp
}

// SystemError is the fixed apology for failed turns.
func SystemError() models.NormalizedResponse {
	action, entity := classify.ActionEntity(models.IntentSystemError)
	resp := models.NormalizedResponse{
		Intent:     models.IntentSystemError,
		Confidence: 0,
		Action:     action,
		Entity:     entity,
		Reply:      systemReply,
		ReplyPlain: systemReply,
	}
	resp.Normalize()
	return resp
}

// PendingOfferFor returns the archive offer attached to the session after an
// empty search, or nil when the analysis did not come back empty.
func PendingOfferFor(a models.Analysis, query string) *models.PendingOffer {
	if !models.IsEmptyResult(a.Data) {
		return nil
	}
	return &models.PendingOffer{Intent: models.IntentArchiveSearch, Query: query}
}

func base(a models.Analysis) models.NormalizedResponse {
	return models.NormalizedResponse{
		Intent:     a.Intent,
		Confidence: a.Confidence,
		Data:       a.Data,
		Action:     a.Action,
		Entity:     a.Entity,
	}
}

func (c *Composer) emptyResult(a models.Analysis, query string) models.NormalizedResponse {
	g, ok := emptyGuidance[a.Data.Entity()]
	if !ok {
		g = emptyGuidance[models.EntityCustomer]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ما لقيت %s مطابقة لبحثك. جرّب التالي:\n", g.noun)
	for i, step := range g.steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString(archiveOffer)
	script := b.String()

	resp := base(a)
	resp.Reply = script
	resp.ReplyPlain = fmt.Sprintf("ما لقيت %s مطابقة. %s", g.noun, archiveOffer)
	resp.ReplyRich = models.StringPtr("🔎 " + script)
	resp.Actions = []models.SuggestedAction{
		{
			Name:   "search_archive",
			Label:  "ابحث في الأرشيف",
			Params: map[string]interface{}{"query": query, "entity": string(a.Data.Entity())},
		},
		cloneAction(g.create),
	}
	resp.FollowUp = &models.FollowUp{AwaitingReply: true}
	return resp
}

func (c *Composer) results(a models.Analysis) models.NormalizedResponse {
	resp := base(a)
	ack := acknowledgement(a.Confidence)

	if card, ok := a.Data.(models.BusinessCardResult); ok {
		resp.Reply = fmt.Sprintf("%s، جهزت بطاقة الأعمال باسم %s:\n%s", ack, card.DisplayName, card.ShareURL)
		resp.ReplyPlain = fmt.Sprintf("%s، بطاقتك جاهزة: %s", ack, card.ShareURL)
		resp.Actions = []models.SuggestedAction{
			{Name: "share_card", Label: "مشاركة البطاقة", Params: map[string]interface{}{"url": card.ShareURL}},
		}
		return resp
	}

	rows := c.rows(a.Data)
	// A lookup fetches one row past maxItems, so more rows than maxItems
	// means the listing is cut and the real total is unknown.
	truncated := resultCount(a.Data) > len(rows)
	noun := resultNouns[a.Data.Entity()]
	header := fmt.Sprintf("%s، لقيت %d %s:", ack, len(rows), noun)
	if truncated {
		header = fmt.Sprintf("%s، لقيت أكثر من %d %s، هذي أحدثها:", ack, len(rows), noun)
	}

	var b strings.Builder
	b.WriteString(header)
	for _, row := range rows {
		b.WriteString("\n• ")
		b.WriteString(row)
	}
	listing := b.String()

	resp.Reply = listing
	resp.ReplyPlain = strings.TrimSuffix(header, ":")
	if truncated {
		resp.ReplyRich = models.StringPtr(listing + "\n… وفيه نتائج أكثر في القائمة الكاملة")
	} else {
		resp.ReplyRich = models.StringPtr(listing)
	}
	resp.Actions = []models.SuggestedAction{
		{Name: "navigate", Label: "عرض الكل", Params: map[string]interface{}{"screen": a.Entity.Scope()}},
	}
	return resp
}

func (c *Composer) greeting(a models.Analysis) models.NormalizedResponse {
	resp := base(a)
	resp.Reply = greetingReply
	resp.ReplyPlain = greetingReply
	resp.ReplyRich = models.StringPtr(greetingRich)
	resp.Actions = []models.SuggestedAction{
		{Name: "search_customers", Label: "ابحث عن عميل"},
		{Name: "search_offers", Label: "تصفح العروض"},
		{Name: "book_appointment", Label: "احجز موعد"},
	}
	return resp
}

func (c *Composer) navigation(a models.Analysis, nav navigation, query string) models.NormalizedResponse {
	resp := base(a)
	resp.Reply = nav.reply
	resp.ReplyPlain = nav.reply
	resp.ReplyRich = models.StringPtr(nav.rich)
	action := cloneAction(nav.action)
	if query != "" && a.Intent == models.IntentArchiveSearch {
		action.Params["query"] = query
	}
	resp.Actions = []models.SuggestedAction{action}
	return resp
}

func (c *Composer) general(a models.Analysis, st TurnState) models.NormalizedResponse {
	resp := base(a)
	query := strings.TrimSpace(st.Query)
	if query == "" {
		query = strings.TrimSpace(st.Text)
	}
	resp.Reply = generalReply
	resp.ReplyPlain = generalReply
	if query != "" {
		resp.ReplyRich = models.StringPtr(fmt.Sprintf("وين تبغاني أبحث عن «%s»؟", query))
	}
	resp.Actions = quickActions(query)
	return resp
}

func (c *Composer) dialogueResponse(a models.Analysis, out dialogue.Outcome, s models.Session) models.NormalizedResponse {
	resp := models.NormalizedResponse{
		Intent:     models.IntentManageAppointments,
		Confidence: FlowConfidence,
		Action:     models.ActionCreate,
		Entity:     models.EntityAppointment,
	}
	if a.Intent == models.IntentManageAppointments && a.Confidence > 0 {
		// The turn that starts the flow keeps its classifier confidence.
		resp.Confidence = a.Confidence
	}

	switch out.Kind {
	case dialogue.OutcomeCompleted:
		appt := out.Appointment
		if appt == nil {
			appt = &models.Appointment{}
		}
		resp.Data = models.AppointmentCreated{Appointment: *appt}
		resp.Reply = fmt.Sprintf("ابشر، تم حجز موعد %s بتاريخ %s الساعة %s.\nالهدف: %s", appt.Type, appt.Date, appt.Time, appt.Purpose)
		resp.ReplyPlain = fmt.Sprintf("تم حجز الموعد بتاريخ %s الساعة %s", appt.Date, appt.Time)
		resp.ReplyRich = models.StringPtr(fmt.Sprintf("📅 %s\n• التاريخ: %s\n• الوقت: %s\n• الهدف: %s", appt.Type, appt.Date, appt.Time, appt.Purpose))
		resp.Actions = []models.SuggestedAction{
			{Name: "navigate", Label: "عرض المواعيد", Params: map[string]interface{}{"screen": "appointments", "id": appt.ID}},
		}
		resp.FollowUp = &models.FollowUp{Confirmed: true}

	case dialogue.OutcomeCancelled:
		resp.Reply = cancelledReply
		resp.ReplyPlain = cancelledReply
		resp.FollowUp = &models.FollowUp{}

	default:
		step := out.Step
		prompt := stepPrompts[step]
		if out.Reprompt {
			prompt = repromptPrefix + prompt
		}
		resp.Data = dialogue.Draft(s)
		resp.Reply = prompt
		resp.ReplyPlain = strings.SplitN(prompt, "\n", 2)[0]
		resp.ReplyRich = models.StringPtr(prompt)
		if step == models.StepChooseAppointmentType {
			resp.Actions = typeActions()
		}
		resp.FollowUp = &models.FollowUp{AwaitingReply: true, Step: &step}
	}
	return resp
}

func (c *Composer) rows(p models.Payload) []string {
	var rows []string
	switch v := p.(type) {
	case models.CustomerResults:
		for i := 0; i < len(v) && i < c.maxItems; i++ {
			rows = append(rows, row(v[i].Name, v[i].Phone, v[i].City))
		}
	case models.RequestResults:
		for i := 0; i < len(v) && i < c.maxItems; i++ {
			rows = append(rows, row(v[i].Title, v[i].CustomerName, v[i].Status))
		}
	case models.OfferResults:
		for i := 0; i < len(v) && i < c.maxItems; i++ {
			rows = append(rows, row(v[i].Title, v[i].Location, formatPrice(v[i].Price)))
		}
	}
	return rows
}

func resultCount(p models.Payload) int {
	switch v := p.(type) {
	case models.CustomerResults:
		return len(v)
	case models.RequestResults:
		return len(v)
	case models.OfferResults:
		return len(v)
	}
	return 0
}

// row joins fields with the list separator, printing "-" for blanks so
// columns keep their position.
func row(fields ...string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if f = strings.TrimSpace(f); f == "" {
			f = "-"
		}
		out[i] = f
	}
	return strings.Join(out, rowSeparator)
}

func formatPrice(price float64) string {
	if price <= 0 {
		return ""
	}
	return strconv.FormatFloat(price, 'f', -1, 64) + " ريال"
}

func acknowledgement(confidence float64) string {
	if confidence >= ConfidentThreshold {
		return ackConfident
	}
	return ackPlain
}

func cloneAction(a models.SuggestedAction) models.SuggestedAction {
	params := make(map[string]interface{}, len(a.Params))
	for k, v := range a.Params {
		params[k] = v
	}
	a.Params = params
	return a
}
