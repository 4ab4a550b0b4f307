package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "probate-resolver/internal/common/errors"
	httpclient "probate-resolver/internal/common/http"
	"probate-resolver/internal/common/validation"
	"probate-resolver/internal/models"
)

var matchSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"bestMatchIndex", "confidence", "reasoning"},
	"properties": map[string]interface{}{
		"bestMatchIndex": map[string]interface{}{"type": "integer", "minimum": -1},
		"confidence":     map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100},
		"reasoning":      map[string]interface{}{"type": "string"},
		"matchType": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"VERIFIED", "HIGHLY_PROBABLE", "PLAUSIBLE_GUESS", "NONE"},
		},
		"isAttorney": map[string]interface{}{"type": "boolean"},
	},
})

var survivorsSchema = validation.MustCompile(map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "string"},
})

// LLMConfig points at the text generation endpoint.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// LLMOracle asks a text generation service to score the pool. It makes one
// attempt per call; wrap it in Retrying.
type LLMOracle struct {
	config LLMConfig
	client *httpclient.Client
}

func NewLLMOracle(cfg LLMConfig, client *httpclient.Client) *LLMOracle {
	if cfg.APIKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &LLMOracle{config: cfg, client: client}
}

type generateRequest struct {
	Prompt      string                 `json:"prompt"`
	Context     map[string]interface{} `json:"context,omitempty"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// promptCandidate is what the model sees of a candidate.
type promptCandidate struct {
	Index         int      `json:"index"`
	FullName      string   `json:"fullName"`
	Age           string   `json:"age,omitempty"`
	Location      string   `json:"location,omitempty"`
	PastLocations string   `json:"pastLocations,omitempty"`
	Relatives     []string `json:"relatives,omitempty"`
	Phones        []string `json:"phones,omitempty"`
	Deceased      string   `json:"isDeceased"`
	Snippet       string   `json:"snippet,omitempty"`
}

func (o *LLMOracle) generate(ctx context.Context, prompt string, extra map[string]interface{}) (string, error) {
	req := generateRequest{
		Prompt:      prompt,
		Context:     extra,
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
	}
	var resp generateResponse
	if err := o.client.PostJSON(ctx, strings.TrimRight(o.config.BaseURL, "/")+"/api/ai/generate", req, &resp); err != nil {
		return "", apperrors.NewOracleTransientError(err)
	}
	return stripFences(resp.Text), nil
}

func (o *LLMOracle) Match(ctx context.Context, target Target, candidates []models.Candidate) (models.MatchResult, error) {
	if len(candidates) == 0 {
		return models.NoMatchResult("no candidates"), nil
	}

	pool := make([]promptCandidate, len(candidates))
	for i, c := range candidates {
		pool[i] = promptCandidate{
			Index:         i,
			FullName:      c.FullName,
			Age:           c.Age,
			Location:      c.Location,
			PastLocations: c.Extensions[PastLocationsKey],
			Relatives:     models.RelativeNames(c.Relatives),
			Phones:        c.VisiblePhones,
			Deceased:      c.Deceased.String(),
			Snippet:       c.Snippet,
		}
	}
	poolJSON, err := json.MarshalIndent(pool, "", "  ")
	if err != nil {
		return models.MatchResult{}, err
	}

	text, err := o.generate(ctx, matchPrompt(target, string(poolJSON)), map[string]interface{}{"target": target})
	if err != nil {
		return models.MatchResult{}, err
	}

	res, err := matchSchema.ValidateJSON([]byte(text))
	if err != nil {
		return models.MatchResult{}, apperrors.NewOracleTransientError(fmt.Errorf("unparseable model output: %w", err))
	}
	if verr := res.Err(); verr != nil {
		return models.MatchResult{}, apperrors.NewOracleTransientError(verr)
	}

	var raw struct {
		BestMatchIndex int              `json:"bestMatchIndex"`
		Confidence     float64          `json:"confidence"`
		Reasoning      string           `json:"reasoning"`
		MatchType      models.MatchType `json:"matchType"`
		IsAttorney     bool             `json:"isAttorney"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return models.MatchResult{}, apperrors.NewOracleTransientError(err)
	}

	result := sanitize(models.MatchResult{
		BestIndex:      raw.BestMatchIndex,
		Confidence:     int(raw.Confidence + 0.5),
		Rationale:      raw.Reasoning,
		MatchType:      raw.MatchType,
		IsProfessional: raw.IsAttorney,
	}, len(candidates))
	if result.IsProfessional && !strings.Contains(result.Rationale, ProfessionalCaution) {
		result.Rationale = strings.TrimSpace(result.Rationale + " " + ProfessionalCaution)
	}
	return result, nil
}

func (o *LLMOracle) ExtractSurvivors(ctx context.Context, decedent string, snippets []string) ([]string, error) {
	if len(snippets) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(`Analyze obituary snippets for "%s". Extract FULL NAMES of surviving family members (Spouse, Children, or PRs). Return ONLY a JSON array of strings. If none found, return [].

Snippets:
%s`, decedent, strings.Join(snippets, "\n---\n"))

	text, err := o.generate(ctx, prompt, nil)
	if err != nil {
		return nil, err
	}
	res, err := survivorsSchema.ValidateJSON([]byte(text))
	if err != nil {
		return nil, apperrors.NewOracleTransientError(fmt.Errorf("unparseable model output: %w", err))
	}
	if verr := res.Err(); verr != nil {
		return nil, apperrors.NewOracleTransientError(verr)
	}

	var survivors []string
	if err := json.Unmarshal([]byte(text), &survivors); err != nil {
		return nil, apperrors.NewOracleTransientError(err)
	}
	out := survivors[:0]
	for _, s := range survivors {
		if len(strings.TrimSpace(s)) > 3 {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out, nil
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func matchPrompt(t Target, poolJSON string) string {
	subject := t.SubjectName
	if strings.TrimSpace(subject) == "" {
		subject = "a current resident"
	}
	linked := t.LinkedName
	if linked == "" {
		linked = "(none given)"
	}
	city := t.City
	if city == "" {
		city = t.State
	}

	return fmt.Sprintf(`I am looking for the phone number of %[1]s.
This person is linked to "%[2]s" who lived in "%[3]s".

Identify the most likely match among the candidate profiles below, even if the data is incomplete.

HIERARCHY OF MATCHING (highest to lowest):
1. Direct link: the profile explicitly lists "%[2]s" as a relative. (VERIFIED, 95+)
2. Shared unusual surname between "%[1]s" and "%[2]s". (HIGH CONFIDENCE, 85+)
3. Historical location: a current or past residence in "%[4]s". (70+)
4. Exact name match alone. (cap at 60)

RULES:
- Reject candidates that are clearly deceased.
- Never penalize a candidate only because they currently live in a different state.
- If candidates are otherwise equal, prefer the one with the most phone numbers.
- If a candidate looks like an attorney or other professional (Attorney, Law Firm, Esquire, JD, Lawyer, Law Office, Counsel), set "isAttorney": true and end the reasoning with "%[5]s"

Candidates:
%[6]s

Return ONLY a raw JSON object with:
- "bestMatchIndex": 0-based index, or -1 if nobody is plausible
- "confidence": 0 to 100
- "reasoning": brief explanation
- "matchType": "VERIFIED", "HIGHLY_PROBABLE", "PLAUSIBLE_GUESS" or "NONE"
- "isAttorney": true or false`, subject, linked, t.Location(), city, ProfessionalCaution, poolJSON)
}
