package oracle

import (
	"time"

	"probate-resolver/internal/common/config"
	httpclient "probate-resolver/internal/common/http"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/retry"
	"probate-resolver/internal/resolver/names"
)

// PolicyFromConfig maps the oracle retry settings onto a retry policy.
func PolicyFromConfig(cfg config.OracleConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		Factor:      cfg.Factor,
		MaxDelay:    time.Duration(cfg.MaxDelayMs) * time.Millisecond,
	}
}

// Build returns the configured oracle wrapped in Retrying, and the matching
// survivor extractor.
func Build(cfg *config.Config, predicates names.Predicates, log logger.Logger) (Oracle, SurvivorExtractor) {
	policy := PolicyFromConfig(cfg.Oracle)

	if cfg.Oracle.Mode == config.OracleModeLLM {
		genai := cfg.APIs.GenAI
		client := httpclient.NewClient(time.Duration(genai.Timeout) * time.Millisecond)
		llm := NewLLMOracle(LLMConfig{
			BaseURL:     genai.BaseURL,
			APIKey:      genai.APIKey,
			MaxTokens:   genai.MaxTokens,
			Temperature: genai.Temperature,
		}, client)
		return NewRetrying(llm, policy, log), llm
	}

	rules := NewRuleOracle(predicates, cfg.Resolver.BacklinkSimilarity)
	return NewRetrying(rules, policy, log), RuleSurvivorExtractor{}
}
