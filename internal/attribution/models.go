package attribution

import (
	"net/url"
	"time"
)

// Params are the campaign query parameters recognized on a landing page URL.
// Besides the standard UTM set this includes the Google and Facebook click
// identifiers and the Facebook ad hierarchy identifiers.
type Params struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMID       string `json:"utm_id,omitempty"`
	GCLID       string `json:"gclid,omitempty"`
	FBCLID      string `json:"fbclid,omitempty"`
	AdID        string `json:"ad_id,omitempty"`
	AdsetID     string `json:"adset_id,omitempty"`
	CampaignID  string `json:"campaign_id,omitempty"`
}

// Record is a captured attribution snapshot: the recognized parameters plus
// the page context at capture time.
type Record struct {
	Params
	Referrer    string `json:"referrer,omitempty"`
	LandingPage string `json:"landing_page,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// storedRecord is the persisted envelope for the long-lived record. Expiry
// is carried inside the value (as epoch milliseconds) in addition to the key
// TTL, and checked on read.
type storedRecord struct {
	Attribution Record `json:"attribution"`
	Expires     int64  `json:"expires"`
}

func (s storedRecord) expired(now time.Time) bool {
	return now.UnixMilli() > s.Expires
}

// ParamsFromQuery extracts the recognized campaign parameters from a URL
// query. Unrecognized parameters are ignored; empty values are treated as
// absent.
func ParamsFromQuery(query url.Values) Params {
	return Params{
		UTMSource:   query.Get("utm_source"),
		UTMMedium:   query.Get("utm_medium"),
		UTMCampaign: query.Get("utm_campaign"),
		UTMContent:  query.Get("utm_content"),
		UTMTerm:     query.Get("utm_term"),
		UTMID:       query.Get("utm_id"),
		GCLID:       query.Get("gclid"),
		FBCLID:      query.Get("fbclid"),
		AdID:        query.Get("ad_id"),
		AdsetID:     query.Get("adset_id"),
		CampaignID:  query.Get("campaign_id"),
	}
}

// IsEmpty reports whether no recognized parameter carries a value.
func (p Params) IsEmpty() bool {
	return p == Params{}
}

// PageContext is the non-query page state accompanying a capture.
type PageContext struct {
	Referrer    string `json:"referrer"`
	LandingPage string `json:"landing_page"`
}
