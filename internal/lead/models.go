package lead

import "strings"

// Submission is the lead payload arriving from a landing page.
type Submission struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone,omitempty"`
	Company    string   `json:"company,omitempty"`
	FormType   string   `json:"form_type,omitempty"`
	LeadSource string   `json:"lead_source,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	ListIDs    []int    `json:"list_ids,omitempty"`
	PageURI    string   `json:"page_uri,omitempty"`
	PageName   string   `json:"page_name,omitempty"`
	HUTK       string   `json:"hutk,omitempty"`
}

// FirstName returns the leading word of the name.
func (s Submission) FirstName() string {
	name, _, _ := splitName(s.Name)
	return name
}

// LastName returns everything after the first word.
func (s Submission) LastName() string {
	_, last, _ := splitName(s.Name)
	return last
}

// Provider labels used in results and metrics.
const (
	ProviderCRM       = "hubspot"
	ProviderMarketing = "brevo"
)

// ProviderResult is the outcome of one provider call during a submission.
type ProviderResult struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Result is the aggregate outcome returned to the caller. Success reflects
// the CRM leg only; the marketing leg's outcome stays visible in Providers.
type Result struct {
	Success   bool             `json:"success"`
	Providers []ProviderResult `json:"providers"`
}

func splitName(full string) (first, last string, ok bool) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], " "), true
}

// WorkflowRequest enrolls a contact in a marketing automation workflow.
type WorkflowRequest struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	WorkflowID string `json:"workflow_id"`
}
