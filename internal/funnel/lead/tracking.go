// internal/funnel/lead/tracking.go
package lead

import "net/url"

// Tracking holds the campaign-attribution parameters captured from the
// landing URL. Every field defaults to empty except Source, which falls
// back to the configured default so leads are always attributable.
type Tracking struct {
	Source      string `json:"source"`
	ClickID     string `json:"click_id"`
	MkwID       string `json:"mkwid"`
	CampaignID  string `json:"cpgnid"`
	GadSource   string `json:"gadsource"`
	Pcrid       string `json:"pcrid"`
	Pdv         string `json:"pdv"`
	Keyword     string `json:"pkw"`
	MatchType   string `json:"pmt"`
	AdGroupID   string `json:"pgrid"`
	TargetID    string `json:"ptaid"`
	MsclkID     string `json:"msclkid"`
	FbclID      string `json:"fbclid"`
	UTMCampaign string `json:"utm_campaign"`
	UTMMedium   string `json:"utm_medium"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
}

// ExtractTracking reads attribution parameters from landing-page query
// values. Aliased parameters resolve first non-empty in the listed order.
func ExtractTracking(query url.Values, defaultSource string) Tracking {
	return Tracking{
		Source:      firstNonEmpty(query, defaultSource, "source", "utm_source"),
		ClickID:     firstNonEmpty(query, "", "click_id", "clickid", "gclid"),
		MkwID:       query.Get("mkwid"),
		CampaignID:  query.Get("cpgnid"),
		GadSource:   firstNonEmpty(query, "", "gadsource", "gad_source"),
		Pcrid:       query.Get("pcrid"),
		Pdv:         query.Get("pdv"),
		Keyword:     firstNonEmpty(query, "", "pkw", "keyword"),
		MatchType:   query.Get("pmt"),
		AdGroupID:   query.Get("pgrid"),
		TargetID:    query.Get("ptaid"),
		MsclkID:     query.Get("msclkid"),
		FbclID:      query.Get("fbclid"),
		UTMCampaign: query.Get("utm_campaign"),
		UTMMedium:   query.Get("utm_medium"),
		UTMTerm:     query.Get("utm_term"),
		UTMContent:  query.Get("utm_content"),
	}
}

func firstNonEmpty(query url.Values, fallback string, keys ...string) string {
	for _, k := range keys {
		if v := query.Get(k); v != "" {
			return v
		}
	}
	return fallback
}
