package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Analysis is the structured suggestion set returned by Analyze.
// ParseFailed marks the canned fallback that replaces unparseable model
// output, so callers can tell it apart from a genuine suggestion.
type Analysis struct {
	Title               string   `json:"title"`
	ImprovedDescription string   `json:"improved_description"`
	Severity            string   `json:"severity"`
	CVSSScore           string   `json:"cvss_score"`
	CVSSVector          string   `json:"cvss_vector"`
	Remediation         string   `json:"remediation"`
	Impact              string   `json:"impact"`
	Likelihood          string   `json:"likelihood"`
	SimilarVulns        []string `json:"similar_vulns"`
	ExecutiveSummary    string   `json:"executive_summary"`
	References          string   `json:"references"`
	ParseFailed         bool     `json:"parse_failed,omitempty"`
}

// SimilarVulnerability is one match from DetectSimilar.
type SimilarVulnerability struct {
	Title           string `json:"title"`
	SimilarityScore string `json:"similarity_score"`
	Reason          string `json:"reason"`
}

// Result is the uniform advisor outcome: either Data/Text or a
// human-readable Error, optionally with an advisory retry delay.
type Result struct {
	Success    bool                   `json:"success"`
	Data       *Analysis              `json:"data,omitempty"`
	Text       string                 `json:"text,omitempty"`
	Similar    []SimilarVulnerability `json:"similar,omitempty"`
	Error      string                 `json:"error,omitempty"`
	RetryAfter int                    `json:"retry_after,omitempty"`
}

// Assistant runs the advisor operations for one tenant's client.
type Assistant struct {
	client *Client
}

func NewAssistant(client *Client) *Assistant {
	return &Assistant{client: client}
}

// Failure converts any advisor error into a structured result. The
// classification mirrors the API's status semantics: 404 model missing,
// 403/401 bad key, 429 quota (with the retry delay surfaced unchanged).
func Failure(err error) Result {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return Result{Error: "Model unavailable. Check your API key and try again."}
		case apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized:
			return Result{Error: "Invalid API key or missing permissions. Check your configuration."}
		case apiErr.StatusCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			if retry := RetryAfterSeconds(apiErr.Message); retry > 0 {
				return Result{
					Error:      fmt.Sprintf("Quota exceeded. Try again in %d seconds.", retry),
					RetryAfter: retry,
				}
			}
			return Result{Error: "Free quota exceeded. Wait a few hours or upgrade your plan."}
		}
	}
	return Result{Error: "Analysis failed: " + err.Error()}
}

const analyzePrompt = `You are an information security expert. Analyze the following vulnerability and provide:

TITLE: %s
DESCRIPTION: %s

Return ONLY a JSON object with the following fields:
{
    "title": "Technical, descriptive vulnerability title",
    "improved_description": "Improved description with technical language and detail",
    "severity": "Critical|High|Medium|Low|Informative",
    "cvss_score": "0.0-10.0",
    "cvss_vector": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
    "remediation": "Detailed remediation suggestion",
    "impact": "Description of the vulnerability's impact",
    "likelihood": "Description of the likelihood of exploitation",
    "similar_vulns": ["List of similar known vulnerabilities"],
    "executive_summary": "Executive summary for management",
    "references": "Technical references (CVE, OWASP, NIST, etc.)"
}

IMPORTANT:
- Use plain text only, NO markdown formatting (**, *, etc.)
- For CVSS: Critical=9.0-10.0, High=7.0-8.9, Medium=4.0-6.9, Low=0.1-3.9, Informative=0.0
- Be precise and technical. Use OWASP and NIST standards where applicable.
- Include relevant technical references (CVE, OWASP Top 10, etc.)
- The title must be concise, technical and descriptive (200 characters max)`

// Analyze returns structured suggestions for a vulnerability write-up.
func (a *Assistant) Analyze(ctx context.Context, title, description string) Result {
	text, err := a.client.GenerateContent(ctx, fmt.Sprintf(analyzePrompt, title, description))
	if err != nil {
		return Failure(err)
	}

	var analysis Analysis
	if !decodeStripped(text, &analysis) {
		// unparseable output: substitute the canned default but flag it
		analysis = Analysis{
			Title:               "Security Vulnerability",
			ImprovedDescription: description,
			Severity:            "Medium",
			CVSSScore:           "5.0",
			CVSSVector:          "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:L/I:L/A:L",
			Remediation:         "Review the vulnerability and implement the necessary fixes.",
			Impact:              "Impact to be assessed",
			Likelihood:          "Likelihood to be assessed",
			SimilarVulns:        []string{},
			ExecutiveSummary:    "Executive summary to be written",
			References:          "References to be added",
			ParseFailed:         true,
		}
	}
	return Result{Success: true, Data: &analysis}
}

const similarPrompt = `Analyze the following vulnerability and compare it against the list of existing ones.

NEW VULNERABILITY:
%s

EXISTING VULNERABILITIES:
%s

Return ONLY a JSON object with similar vulnerabilities:
{
    "similar_vulnerabilities": [
        {
            "title": "Title of the similar vulnerability",
            "similarity_score": "0.0-1.0",
            "reason": "Why it is similar"
        }
    ]
}`

// DetectSimilar compares a new write-up against up to 10 existing titles.
func (a *Assistant) DetectSimilar(ctx context.Context, description string, existingTitles []string) Result {
	if len(existingTitles) == 0 {
		return Result{Success: true, Similar: []SimilarVulnerability{}}
	}
	if len(existingTitles) > 10 {
		existingTitles = existingTitles[:10]
	}

	var list strings.Builder
	for _, t := range existingTitles {
		fmt.Fprintf(&list, "- %s\n", t)
	}

	text, err := a.client.GenerateContent(ctx, fmt.Sprintf(similarPrompt, description, list.String()))
	if err != nil {
		return Failure(err)
	}

	var parsed struct {
		Similar []SimilarVulnerability `json:"similar_vulnerabilities"`
	}
	if !decodeStripped(text, &parsed) {
		return Result{Success: true, Similar: []SimilarVulnerability{}}
	}
	return Result{Success: true, Similar: parsed.Similar}
}

const summaryPrompt = `Write an executive summary for management about the following security vulnerabilities:

%s

The summary must:
- Be clear and direct for executives
- Highlight the main risks
- Include action recommendations
- Be at most 300 words
- Use professional but accessible language

Return ONLY the text of the executive summary.`

// VulnSummary is the condensed per-finding input to ExecutiveSummary.
type VulnSummary struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// ExecutiveSummary generates a management-facing summary of findings.
func (a *Assistant) ExecutiveSummary(ctx context.Context, vulns []VulnSummary) Result {
	for i := range vulns {
		// truncate on rune boundaries so multi-byte text is not split
		if r := []rune(vulns[i].Description); len(r) > 200 {
			vulns[i].Description = string(r[:200]) + "..."
		}
	}
	payload, err := json.MarshalIndent(vulns, "", "  ")
	if err != nil {
		return Failure(err)
	}

	text, err := a.client.GenerateContent(ctx, fmt.Sprintf(summaryPrompt, payload))
	if err != nil {
		return Failure(err)
	}
	return Result{Success: true, Text: StripMarkdown(text)}
}

const remediationPrompt = `As a security expert, provide detailed remediation for:

TYPE: %s
DESCRIPTION: %s

The remediation must include:
- Specific technical steps
- Security best practices
- Post-implementation checks
- References to standards (OWASP, NIST, etc.)

Be technical but practical. 500 words max.`

// SuggestRemediation returns remediation text for a vulnerability type.
func (a *Assistant) SuggestRemediation(ctx context.Context, vulnType, description string) Result {
	text, err := a.client.GenerateContent(ctx, fmt.Sprintf(remediationPrompt, vulnType, description))
	if err != nil {
		return Failure(err)
	}
	return Result{Success: true, Text: StripMarkdown(text)}
}

const titlePrompt = `As an information security expert, generate a technical and descriptive title for the following vulnerability:

DESCRIPTION: %s

The title must:
- Be concise and technical (200 characters max)
- Clearly describe the vulnerability
- Use standard security terminology
- Be specific about the flaw type
- Not use markdown formatting

Return ONLY the title.`

// GenerateTitle produces a technical title from a description.
func (a *Assistant) GenerateTitle(ctx context.Context, description string) Result {
	text, err := a.client.GenerateContent(ctx, fmt.Sprintf(titlePrompt, description))
	if err != nil {
		return Failure(err)
	}
	return Result{Success: true, Text: StripMarkdown(text)}
}

// TestConnection verifies an API key by resolving a model and sending a
// trivial prompt.
func (a *Assistant) TestConnection(ctx context.Context) Result {
	model, err := a.client.ResolveModel(ctx)
	if err != nil {
		return Failure(err)
	}
	if _, err := a.client.GenerateContent(ctx, "Connectivity test"); err != nil {
		return Failure(err)
	}
	return Result{Success: true, Text: "Connection succeeded with " + model}
}
