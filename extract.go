package main

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Analysis is the structured analysis embedded in a search response. Either
// the result fields or the error fields are populated, never both; the
// custom marshaller picks the matching wire shape.
type Analysis struct {
	Summary   string
	Trends    string
	Contacts  []string
	Companies []AnalysisCompany
	Discounts []string

	Error   string
	Details string
	Raw     string
}

// AnalysisCompany is one company entry extracted from the channel posts.
type AnalysisCompany struct {
	Name               string             `json:"name"`
	ContactInformation ContactInformation `json:"contact_information"`
	SpecialOffers      string             `json:"special_offers"`
}

// ContactInformation holds the contact details for an extracted company.
type ContactInformation struct {
	PhoneNumber        string   `json:"phone_number"`
	SocialMediaHandles []string `json:"social_media_handles"`
}

// MarshalJSON emits the error shape when extraction or the upstream call
// failed, and the result shape otherwise.
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.Error != "" {
		return json.Marshal(struct {
			Error   string `json:"error"`
			Details string `json:"details,omitempty"`
			Raw     string `json:"raw,omitempty"`
		}{a.Error, a.Details, a.Raw})
	}
	// A missing trends field defaults to an empty list, not an empty string.
	var trends interface{} = a.Trends
	if a.Trends == "" {
		trends = []string{}
	}
	return json.Marshal(struct {
		Summary   string            `json:"summary"`
		Contacts  []string          `json:"contacts"`
		Companies []AnalysisCompany `json:"companies"`
		Discounts []string          `json:"discounts"`
		Trends    interface{}       `json:"keyProductsTrend"`
	}{a.Summary, a.Contacts, a.Companies, a.Discounts, trends})
}

// fencedJSON matches the inner content of a markdown code fence.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractAnalysis pulls a JSON object out of a completion that may be plain
// JSON, fenced JSON or JSON buried in prose, and projects it onto the
// expected shape. Missing optional fields get explicit defaults; anything
// unparseable becomes an error result carrying the raw text verbatim.
func extractAnalysis(content string) Analysis {
	candidate := jsonCandidate(content)
	if candidate == "" {
		return Analysis{
			Error:   "Failed to parse AI output",
			Details: "no JSON structure found",
			Raw:     content,
		}
	}

	var parsed struct {
		Summary   string            `json:"summary"`
		Trends    string            `json:"trends"`
		Contacts  []string          `json:"contacts"`
		Companies []AnalysisCompany `json:"companies"`
		Discounts []string          `json:"discounts"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return Analysis{
			Error:   "Failed to parse AI output",
			Details: err.Error(),
			Raw:     content,
		}
	}

	a := Analysis{
		Summary:   parsed.Summary,
		Trends:    parsed.Trends,
		Contacts:  parsed.Contacts,
		Companies: parsed.Companies,
		Discounts: parsed.Discounts,
	}
	if a.Summary == "" {
		a.Summary = "No summary"
	}
	if a.Contacts == nil {
		a.Contacts = []string{}
	}
	if a.Companies == nil {
		a.Companies = []AnalysisCompany{}
	}
	if a.Discounts == nil {
		a.Discounts = []string{}
	}
	return a
}

// jsonCandidate returns the fenced block's inner content if present,
// otherwise the span from the first '{' to the last '}'.
func jsonCandidate(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}
