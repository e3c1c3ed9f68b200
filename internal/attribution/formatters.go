package attribution

import (
	"fmt"
	"net/url"
)

// ForCRM maps a record onto CRM contact property names. The referrer and
// landing page travel as the HubSpot analytics source fields.
func ForCRM(rec *Record) map[string]string {
	if rec == nil {
		return map[string]string{}
	}

	out := map[string]string{}
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	put("utm_source", rec.UTMSource)
	put("utm_medium", rec.UTMMedium)
	put("utm_campaign", rec.UTMCampaign)
	put("utm_content", rec.UTMContent)
	put("utm_term", rec.UTMTerm)
	put("utm_id", rec.UTMID)
	put("gclid", rec.GCLID)
	put("fbclid", rec.FBCLID)
	put("hs_analytics_source", rec.Referrer)
	put("hs_analytics_first_url", rec.LandingPage)

	return out
}

// ForAdPixel maps a record onto the properties sent with ad pixel events.
// The Google click ID is deliberately absent; the pixel side only cares
// about its own click identifier.
func ForAdPixel(rec *Record) map[string]any {
	if rec == nil {
		return map[string]any{}
	}

	out := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	put("utm_source", rec.UTMSource)
	put("utm_medium", rec.UTMMedium)
	put("utm_campaign", rec.UTMCampaign)
	put("utm_content", rec.UTMContent)
	put("utm_term", rec.UTMTerm)
	put("fbclid", rec.FBCLID)
	put("referrer", rec.Referrer)

	return out
}

// ForAnalytics maps a record onto analytics event parameters, renaming the
// UTM fields to the campaign_* names the analytics backend expects.
func ForAnalytics(rec *Record) map[string]any {
	if rec == nil {
		return map[string]any{}
	}

	out := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	put("campaign_source", rec.UTMSource)
	put("campaign_medium", rec.UTMMedium)
	put("campaign_name", rec.UTMCampaign)
	put("campaign_content", rec.UTMContent)
	put("campaign_term", rec.UTMTerm)
	put("campaign_id", rec.UTMID)
	put("gclid", rec.GCLID)
	put("referrer", rec.Referrer)

	return out
}

// ForSchedulingLink maps a record onto the query parameters carried into
// the booking page, so appointments stay attributed to the campaign that
// produced them. Only the UTM set travels; click identifiers do not.
func ForSchedulingLink(rec *Record) map[string]string {
	if rec == nil {
		return map[string]string{}
	}

	out := map[string]string{}
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	put("utm_source", rec.UTMSource)
	put("utm_medium", rec.UTMMedium)
	put("utm_campaign", rec.UTMCampaign)
	put("utm_content", rec.UTMContent)
	put("utm_term", rec.UTMTerm)
	put("utm_id", rec.UTMID)

	return out
}

// SchedulingLink decorates the booking page URL with the extra parameters
// and the record's UTM set. A nil record yields the base URL with only the
// extra parameters.
func SchedulingLink(base string, extra map[string]string, rec *Record) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid scheduling base url: %w", err)
	}

	query := u.Query()
	for key, value := range extra {
		query.Set(key, value)
	}
	for key, value := range ForSchedulingLink(rec) {
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
