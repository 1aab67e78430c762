package classify

import (
	"regexp"

	"realestate-assistant/internal/models"
)

// Rule pairs an intent with the pattern that selects it.
type Rule struct {
	Intent  models.Intent
	Pattern *regexp.Regexp
}

// DefaultRules is evaluated top to bottom and the first match wins, so the
// order is part of the behavior: archive beats appointments, appointments
// beat business cards, urgency beats plain request search, and the entity
// searches are tried before the navigation intents and the greeting.
// The singular offer word only counts as a whole word; it is also the stem
// of the verb "show" and of "exhibition".
var DefaultRules = []Rule{
	{models.IntentArchiveSearch, regexp.MustCompile(`(?i)أرشيف|ارشيف|الأرشيف|الارشيف|مؤرشف|\barchived?\b`)},
	{models.IntentManageAppointments, regexp.MustCompile(`(?i)موعد|مواعيد|المواعيد|الموعد|اجتماع|\bappointments?\b|\bmeeting\b|\bschedule\b`)},
	{models.IntentCreateBusinessCard, regexp.MustCompile(`(?i)بطاقة عمل|بطاقة أعمال|بطاقة اعمال|بطاقتي|كرت شخصي|كرتي|\bbusiness\s*card\b|\bvcard\b`)},
	{models.IntentUrgentRequests, regexp.MustCompile(`(?i)عاجل|مستعجل|طارئ|ضروري|\burgent\b`)},
	{models.IntentSearchCustomers, regexp.MustCompile(`(?i)عميل|عملاء|العميل|العملاء|زبون|زبائن|\bcustomers?\b|\bclients?\b`)},
	{models.IntentSearchRequests, regexp.MustCompile(`(?i)طلب|طلبات|الطلبات|\brequests?\b`)},
	{models.IntentSearchOffers, regexp.MustCompile(`(?i)(?:^|\P{L})(?:ال)?عرض|عروض|شقة|شقق|فيلا|فلل|عقار|عقارات|للبيع|للإيجار|للايجار|\boffers?\b|\blistings?\b|\bpropert(?:y|ies)\b|\bapartments?\b|\bvillas?\b`)},
	{models.IntentAnalytics, regexp.MustCompile(`(?i)تحليل|تحليلات|إحصائيات|احصائيات|احصائية|تقرير|تقارير|أداء|اداء|\banalytics\b|\bstatistics\b|\bstats\b|\breports?\b`)},
	{models.IntentSocialPost, regexp.MustCompile(`(?i)منشور|بوست|انستقرام|انستغرام|تويتر|سناب|تيك توك|سوشل|سوشال|\bsocial\b|\bpost\b|\binstagram\b|\btwitter\b|\btiktok\b`)},
	{models.IntentMarketInsights, regexp.MustCompile(`(?i)السوق|سوق|أسعار|اسعار|مؤشرات|\bmarket\b|\binsights?\b|\btrends?\b`)},
	{models.IntentHelp, regexp.MustCompile(`(?i)مساعدة|ساعدني|وش تقدر|ماذا تستطيع|كيف استخدم|\bhelp\b`)},
	{models.IntentGreeting, regexp.MustCompile(`(?i)^\s*(?:مرحبا|مرحباً|أهلا|اهلا|أهلاً|اهلاً|هلا|السلام عليكم|سلام|صباح الخير|مساء الخير|\bhi\b|\bhello\b|\bhey\b|good\s+(?:morning|evening))`)},
}

// looseGreetingTokens feed the heuristic pass for short utterances that no
// rule claimed.
var looseGreetingTokens = regexp.MustCompile(`(?i)مرحب|هلا|اهلين|أهلين|هاي|السلام|صباحك|مساك|كيف حالك|شلونك|\bhi\b|\bhello\b|\bhey\b|\bthanks?\b|شكرا`)

type mapping struct {
	action models.Action
	entity models.EntityKind
}

var intentMappings = map[models.Intent]mapping{
	models.IntentArchiveSearch:      {models.ActionSearch, models.EntityArchive},
	models.IntentManageAppointments: {models.ActionCreate, models.EntityAppointment},
	models.IntentCreateBusinessCard: {models.ActionCreate, models.EntityBusinessCard},
	models.IntentUrgentRequests:     {models.ActionList, models.EntityRequest},
	models.IntentSearchCustomers:    {models.ActionSearch, models.EntityCustomer},
	models.IntentSearchRequests:     {models.ActionSearch, models.EntityRequest},
	models.IntentSearchOffers:       {models.ActionSearch, models.EntityOffer},
	models.IntentAnalytics:          {models.ActionList, models.EntityAnalytics},
	models.IntentSocialPost:         {models.ActionCreate, models.EntitySocialPost},
	models.IntentMarketInsights:     {models.ActionSearch, models.EntityMarket},
	models.IntentHelp:               {models.ActionHelp, models.EntityUnknown},
	models.IntentGreeting:           {models.ActionGreet, models.EntityUnknown},
	models.IntentGeneralInquiry:     {models.ActionHelp, models.EntityUnknown},
	models.IntentSystemError:        {models.ActionHelp, models.EntitySystem},
}

// ActionEntity returns the static action and entity for an intent.
// Unknown intents map to search/unknown.
func ActionEntity(intent models.Intent) (models.Action, models.EntityKind) {
	if m, ok := intentMappings[intent]; ok {
		return m.action, m.entity
	}
	return models.ActionSearch, models.EntityUnknown
}
