package compose

import (
	"realestate-assistant/internal/assistant/dialogue"
	"realestate-assistant/internal/models"
)

const (
	ackConfident = "ابشر"
	ackPlain     = "تم"

	archiveOffer = "هل تبغاني أبحث في الأرشيف؟ (نعم / لا)"

	greetingReply  = "أهلاً وسهلاً! كيف أقدر أخدمك اليوم؟"
	greetingRich   = "أهلاً وسهلاً! 👋\nأقدر أساعدك في:\n• البحث عن العملاء والطلبات والعروض\n• حجز المواعيد\n• إنشاء بطاقة أعمال"
	systemReply    = "عذراً، صار عندنا خلل في النظام. حاول مرة ثانية بعد شوي."
	generalReply   = "ما فهمت طلبك بالضبط، خلني أبحث لك عنه."
	cancelledReply = "تم إلغاء حجز الموعد."
	repromptPrefix = "ما وصلني رد. "
)

// guidance is the recovery script shown when a search finds nothing.
type guidance struct {
	noun  string
	steps []string
	// create is the action offered next to the archive search.
	create models.SuggestedAction
}

var emptyGuidance = map[models.EntityKind]guidance{
	models.EntityCustomer: {
		noun: "عملاء",
		steps: []string{
			"تأكد من كتابة اسم العميل أو رقم جواله بشكل صحيح",
			"جرّب البحث بجزء من الاسم أو برقم الجوال فقط",
			"إذا كان العميل جديد، سجّله من شاشة العملاء",
		},
		create: models.SuggestedAction{Name: "add_customer", Label: "إضافة عميل جديد", Params: map[string]interface{}{"screen": "customers"}},
	},
	models.EntityOffer: {
		noun: "عروض",
		steps: []string{
			"وسّع نطاق الحي أو المدينة",
			"عدّل نطاق السعر أو المساحة",
			"جرّب نوع عقار مختلف",
		},
		create: models.SuggestedAction{Name: "add_offer", Label: "إضافة عرض", Params: map[string]interface{}{"screen": "offers"}},
	},
	models.EntityRequest: {
		noun: "طلبات",
		steps: []string{
			"تأكد من اسم العميل صاحب الطلب",
			"راجع الطلبات المغلقة أو المنتهية",
			"سجّل طلب جديد للعميل إذا لزم",
		},
		create: models.SuggestedAction{Name: "add_request", Label: "تسجيل طلب جديد", Params: map[string]interface{}{"screen": "requests"}},
	},
}

var resultNouns = map[models.EntityKind]string{
	models.EntityCustomer: "عميل",
	models.EntityRequest:  "طلب",
	models.EntityOffer:    "عرض",
}

var stepPrompts = map[models.Step]string{
	models.StepChooseAppointmentType: "وش نوع الموعد؟\n1. " + dialogue.TypeViewing + "\n2. " + dialogue.TypeMeeting,
	models.StepSetDate:               "حدد تاريخ الموعد (مثال: 20/5/2025)",
	models.StepSetTime:               "كم الساعة؟ (مثال: 10:00)",
	models.StepSetGoal:               "وش الهدف من الموعد؟",
}

// navigation holds the templates of intents that only point the user at a
// screen.
type navigation struct {
	reply  string
	rich   string
	action models.SuggestedAction
}

var navigations = map[models.Intent]navigation{
	models.IntentArchiveSearch: {
		reply:  "ابشر، بفتح لك الأرشيف.",
		rich:   "الأرشيف يحتوي على العملاء والطلبات والعروض المنتهية.\nتقدر تبحث بالاسم أو رقم الجوال.",
		action: models.SuggestedAction{Name: "navigate", Label: "فتح الأرشيف", Params: map[string]interface{}{"screen": "archive"}},
	},
	models.IntentAnalytics: {
		reply:  "ابشر، هذي تقارير الأداء.",
		rich:   "التقارير تعرض:\n• عدد الصفقات\n• الطلبات الجديدة\n• نسبة الإغلاق",
		action: models.SuggestedAction{Name: "navigate", Label: "عرض التقارير", Params: map[string]interface{}{"screen": "analytics"}},
	},
	models.IntentSocialPost: {
		reply:  "ابشر، خلنا نجهز منشور لعقارك.",
		rich:   "اختر العرض اللي تبي تسوق له وبجهز لك نص المنشور.",
		action: models.SuggestedAction{Name: "navigate", Label: "إنشاء منشور", Params: map[string]interface{}{"screen": "social"}},
	},
	models.IntentMarketInsights: {
		reply:  "ابشر، هذي مؤشرات السوق.",
		rich:   "مؤشرات السوق تعرض متوسط الأسعار حسب الحي ونوع العقار.",
		action: models.SuggestedAction{Name: "navigate", Label: "مؤشرات السوق", Params: map[string]interface{}{"screen": "market"}},
	},
	models.IntentHelp: {
		reply: "أقدر أساعدك في البحث عن العملاء والطلبات والعروض، وحجز المواعيد، وإنشاء بطاقة أعمال.",
		rich: "أمثلة:\n1. ابحث عن عميل محمد\n2. الطلبات العاجلة\n3. عروض فلل في الرياض\n4. احجز موعد\n5. سوي لي بطاقة أعمال",
		action: models.SuggestedAction{Name: "navigate", Label: "دليل الاستخدام", Params: map[string]interface{}{"screen": "help"}},
	},
}

func quickActions(query string) []models.SuggestedAction {
	return []models.SuggestedAction{
		{Name: "search_customers", Label: "ابحث في العملاء", Params: map[string]interface{}{"query": query}},
		{Name: "search_offers", Label: "ابحث في العروض", Params: map[string]interface{}{"query": query}},
		{Name: "search_requests", Label: "ابحث في الطلبات", Params: map[string]interface{}{"query": query}},
	}
}

func typeActions() []models.SuggestedAction {
	actions := make([]models.SuggestedAction, 0, len(dialogue.AppointmentTypes))
	for _, t := range dialogue.AppointmentTypes {
		actions = append(actions, models.SuggestedAction{
			Name:   "choose_appointment_type",
			Label:  t,
			Params: map[string]interface{}{"type": t},
		})
	}
	return actions
}
