package dispatch

import (
	"strings"

	"realestate-assistant/internal/models"
)

// searchNoise is dropped from the utterance when no entity gives a better
// search term.
var searchNoise = map[string]bool{
	"ابحث": true, "ابحثي": true, "دور": true, "دورلي": true, "عن": true, "على": true, "لي": true,
	"ابي": true, "ابغى": true, "أبي": true, "أبغى": true, "اعرض": true, "عرض": true, "اعطني": true, "هات": true,
	"وش": true, "ما": true, "هي": true, "في": true, "من": true, "كل": true, "جميع": true,
	"عميل": true, "عملاء": true, "العميل": true, "العملاء": true, "زبون": true,
	"طلب": true, "طلبات": true, "الطلب": true, "الطلبات": true,
	"عروض": true, "العروض": true, "عاجل": true, "عاجلة": true, "العاجلة": true, "مستعجل": true,
	"find": true, "search": true, "show": true, "me": true, "for": true, "the": true, "all": true,
	"customer": true, "customers": true, "client": true, "clients": true,
	"request": true, "requests": true, "offer": true, "offers": true, "urgent": true,
}

// BuildQuery derives a collaborator query from the analysis. The search
// term prefers the extracted name, then phone, then email, then the
// utterance with command words removed.
func BuildQuery(a models.Analysis, text string, limit int) Query {
	q := Query{
		Name:  models.StringValue(a.Entities.Name),
		Phone: models.StringValue(a.Entities.Phone),
		Email: models.StringValue(a.Entities.Email),
		Limit: limit,
	}

	switch {
	case q.Name != "":
		q.Text = q.Name
	case q.Phone != "":
		q.Text = q.Phone
	case q.Email != "":
		q.Text = q.Email
	default:
		q.Text = stripNoise(text)
	}
	return q
}

func stripNoise(text string) string {
	var kept []string
	for _, w := range strings.Fields(text) {
		if searchNoise[strings.ToLower(strings.Trim(w, "؟?!.,،"))] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// DisplayName picks the name printed on a business card.
func DisplayName(a models.Analysis, u models.Utterance) string {
	if name := models.StringValue(a.Entities.Name); name != "" {
		return name
	}
	if v, ok := u.Metadata["displayName"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return u.UserID
}
