package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probate-resolver/internal/common/config"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/retry"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/internal/resolver/oracle"
	"probate-resolver/internal/resolver/source"
	"probate-resolver/internal/resolver/source/sourcetest"
)

// ==========================
// Test doubles
// ==========================

// countingOracle wraps an oracle and counts Match calls.
type countingOracle struct {
	inner oracle.Oracle
	calls atomic.Int32
}

func (c *countingOracle) Match(ctx context.Context, t oracle.Target, cands []models.Candidate) (models.MatchResult, error) {
	c.calls.Add(1)
	return c.inner.Match(ctx, t, cands)
}

// oracleFunc adapts a function to oracle.Oracle.
type oracleFunc func(t oracle.Target, cands []models.Candidate) models.MatchResult

func (f oracleFunc) Match(ctx context.Context, t oracle.Target, cands []models.Candidate) (models.MatchResult, error) {
	return f(t, cands), nil
}

// pickFirst always selects the first candidate it is shown.
var pickFirst = oracleFunc(func(t oracle.Target, cands []models.Candidate) models.MatchResult {
	return models.MatchResult{BestIndex: 0, Confidence: 90, Rationale: "first", MatchType: models.MatchVerified}
})

// textFake is a web source that also answers free-text queries.
type textFake struct {
	*sourcetest.Fake
	mu      sync.Mutex
	hits    map[string][]source.TextHit
	queries []string
}

func newTextFake(name string) *textFake {
	return &textFake{Fake: sourcetest.New(name), hits: make(map[string][]source.TextHit)}
}

func (f *textFake) SearchText(ctx context.Context, q string) ([]source.TextHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.hits[q], nil
}

func (f *textFake) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func scoped(a source.Adapter) *source.Guard {
	return source.NewGuard(a, nil, source.GuardOptions{Kind: config.SourceKindRecords, Scoped: true}, nil)
}

func unscoped(a source.Adapter) *source.Guard {
	return source.NewGuard(a, nil, source.GuardOptions{Kind: config.SourceKindProvider}, nil)
}

func web(a source.Adapter) *source.Guard {
	return source.NewGuard(a, nil, source.GuardOptions{Kind: config.SourceKindWebSearch}, nil)
}

func rules() oracle.Oracle {
	return oracle.NewRuleOracle(names.DefaultPredicates(), 0.88)
}

func setupEngine(t *testing.T, orc oracle.Oracle, registry *source.Registry) (*Engine, *countingOracle) {
	t.Helper()
	return setupEngineWithConfig(t, config.DefaultResolverConfig(), orc, registry)
}

func setupEngineWithConfig(t *testing.T, cfg config.ResolverConfig, orc oracle.Oracle, registry *source.Registry) (*Engine, *countingOracle) {
	t.Helper()
	counting := &countingOracle{inner: orc}
	e := New(cfg, Deps{
		Registry: registry,
		Oracle:   counting,
		Logger:   logger.NewTestLogger(t),
	})
	return e, counting
}

var seattle = models.SearchTarget{PersonName: "Jane Smith", City: "Seattle", State: "WA"}

// ==========================
// Direct tiers
// ==========================

func TestResolve_CrossReferenceFastPath(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith", models.Candidate{
		FullName:      "Jane Smith",
		Location:      "Seattle, WA",
		Relatives:     []models.Relative{{Name: "John Smith"}},
		VisiblePhones: []string{"2065551234"},
	})
	webSrc := sourcetest.New("WebSearch")
	e, orc := setupEngine(t, rules(), source.NewRegistry(scoped(records), web(webSrc)))

	out := e.Resolve(context.Background(), models.SearchTarget{
		PersonName:     "JANE SMITH",
		AssociatedName: "JOHN SMITH",
		City:           "Seattle",
		State:          "WA",
	})

	assert.True(t, out.Found)
	assert.Equal(t, "(206) 555-1234", out.PrimaryPhone)
	assert.GreaterOrEqual(t, out.Confidence, 85)
	assert.Equal(t, models.TierLocal, out.Tier)
	assert.Equal(t, "CountyRecords", out.Source)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, int32(1), orc.calls.Load())

	for _, call := range records.Searches() {
		assert.False(t, call.Hint.Nationwide, "fast path must not broaden")
	}
	assert.Empty(t, webSrc.Searches())
}

func TestResolve_ExplicitLinkBeatsGeography(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith",
		models.Candidate{FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"2065550100"}},
		models.Candidate{
			FullName:      "Jane Smith",
			Location:      "Portland, OR",
			Relatives:     []models.Relative{{Name: "John Smith"}},
			VisiblePhones: []string{"5035550123"},
		},
	)
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), models.SearchTarget{
		PersonName: "Jane Smith", AssociatedName: "John Smith", City: "Seattle", State: "WA",
	})

	require.True(t, out.Found)
	assert.Equal(t, "(503) 555-0123", out.PrimaryPhone)
	assert.Equal(t, 95, out.Confidence)
}

func TestResolve_EmptyPoolShortCircuits(t *testing.T) {
	records := sourcetest.New("CountyRecords")
	e, orc := setupEngine(t, rules(), source.NewRegistry(scoped(records), web(sourcetest.New("WebSearch"))))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "exhausted")
	assert.Equal(t, models.TierNone, out.Tier)
	assert.Equal(t, int32(0), orc.calls.Load())
	assert.Empty(t, records.DetailCalls())
}

func TestResolve_AllSourcesFail(t *testing.T) {
	broken := sourcetest.New("Broken")
	broken.SearchErr = errors.New("connection reset")
	exploding := sourcetest.New("Exploding")
	exploding.Panic = true

	e, orc := setupEngine(t, rules(), source.NewRegistry(scoped(broken), unscoped(exploding)))

	var out models.ResolutionOutcome
	require.NotPanics(t, func() {
		out = e.Resolve(context.Background(), seattle)
	})
	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "exhausted")
	assert.Equal(t, int32(0), orc.calls.Load())
}

func TestResolve_NoMatchSkipsMerger(t *testing.T) {
	records := sourcetest.New("CountyRecords").
		AddLocal("Jane Smith", models.Candidate{
			FullName:        "Jane Smith",
			Location:        "Seattle, WA",
			DetailReference: "r1",
			VisiblePhones:   []string{"2065550100"},
		}).
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"2065550101"}})
	nobody := oracleFunc(func(oracle.Target, []models.Candidate) models.MatchResult {
		return models.NoMatchResult("nobody fits")
	})
	e, orc := setupEngine(t, nobody, source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "no plausible candidate")
	assert.Empty(t, records.DetailCalls())
	assert.Equal(t, int32(2), orc.calls.Load())
}

func TestResolve_BroadenedTierAcceptsLinkedNationwideMatch(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddNationwide("Jane Smith", models.Candidate{
		FullName:      "Jane Smith",
		Location:      "Miami, FL",
		Relatives:     []models.Relative{{Name: "John Smith"}},
		VisiblePhones: []string{"3055550100"},
	})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), models.SearchTarget{
		PersonName: "Jane Smith", AssociatedName: "John Smith", City: "Seattle", State: "WA",
	})

	require.True(t, out.Found)
	assert.Equal(t, models.TierBroadened, out.Tier)
	assert.Equal(t, "(305) 555-0100", out.PrimaryPhone)
}

func TestResolve_NationwideNameOnlyFallsToGreedy(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddNationwide("Jane Smith", models.Candidate{
		FullName:      "Jane Smith",
		Location:      "Miami, FL",
		VisiblePhones: []string{"3055550100"},
	})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	require.True(t, out.Found)
	assert.Equal(t, models.TierGreedy, out.Tier)
	assert.True(t, out.LowConfidence)
	assert.Equal(t, "CountyRecords (Greedy)", out.Source)
	assert.Equal(t, 60, out.Confidence)
	assert.True(t, strings.HasPrefix(out.Rationale, "Low confidence fallback: "))
}

func TestResolve_GreedyRespectsFloor(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddNationwide("Jane Smith", models.Candidate{
		FullName:      "Jane Smith",
		Location:      "Miami, FL",
		VisiblePhones: []string{"3055550100"},
	})
	cfg := config.DefaultResolverConfig()
	cfg.GreedyFloor = 65
	e, _ := setupEngineWithConfig(t, cfg, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "below threshold")
}

func TestResolve_MatchWithoutPhonesIsNotFound(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith", models.Candidate{
		FullName:  "Jane Smith",
		Location:  "Seattle, WA",
		Relatives: []models.Relative{{Name: "John Smith"}},
	})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), models.SearchTarget{
		PersonName: "Jane Smith", AssociatedName: "John Smith", City: "Seattle", State: "WA",
	})

	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "no contact info")
	assert.Equal(t, "Jane Smith", out.ChosenName)
}

func TestResolve_InvalidTarget(t *testing.T) {
	records := sourcetest.New("CountyRecords")
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	for _, name := range []string{"", "Unknown", "John Doe (Dead)"} {
		out := e.Resolve(context.Background(), models.SearchTarget{PersonName: name, State: "WA"})
		assert.False(t, out.Found, name)
		assert.Contains(t, out.Rationale, "Invalid target", name)
	}
	assert.Empty(t, records.Searches())
}

func TestResolve_DegradedOracle(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith", models.Candidate{
		FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"2065550100"},
	})
	failing := oracle.NewRetrying(
		oracleErr{},
		retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: time.Millisecond},
		nil,
	)
	e, _ := setupEngine(t, failing, source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "AI Error")
}

type oracleErr struct{}

func (oracleErr) Match(context.Context, oracle.Target, []models.Candidate) (models.MatchResult, error) {
	return models.MatchResult{}, errors.New("429 too many requests")
}

// ==========================
// Deceased handling
// ==========================

func TestResolve_DeceasedBestIsReplaced(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith",
		models.Candidate{FullName: "Jane Smith", Location: "Seattle, WA", Deceased: models.DeceasedYes, VisiblePhones: []string{"2065550001"}},
		models.Candidate{FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"2065550002"}},
	)
	e, orc := setupEngine(t, pickFirst, source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	require.True(t, out.Found)
	assert.Equal(t, "(206) 555-0002", out.PrimaryPhone)
	assert.NotContains(t, out.AllPhones, "(206) 555-0001")
	assert.Equal(t, int32(2), orc.calls.Load())
}

func TestResolve_DeceasedProfileIsReplaced(t *testing.T) {
	records := sourcetest.New("CountyRecords").
		AddLocal("Jane Smith",
			models.Candidate{FullName: "Jane Smith", Location: "Spokane, WA", DetailReference: "r1"},
			models.Candidate{FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"2065550002"}},
		).
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"5095550001"}, Deceased: models.DeceasedYes})
	e, _ := setupEngine(t, pickFirst, source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	require.True(t, out.Found)
	assert.Equal(t, []string{"(206) 555-0002"}, out.AllPhones)
}

func TestResolve_OnlyDeceasedCandidates(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith",
		models.Candidate{FullName: "Jane Smith", Location: "Seattle, WA", Deceased: models.DeceasedYes, VisiblePhones: []string{"2065550001"}},
	)
	e, _ := setupEngine(t, pickFirst, source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Empty(t, out.PrimaryPhone)
}

func TestResolve_GreedySkipsDeceasedProfile(t *testing.T) {
	records := sourcetest.New("CountyRecords").
		AddNationwide("Jane Smith",
			models.Candidate{FullName: "Jane Smith", Location: "Miami, FL", DetailReference: "r1", VisiblePhones: []string{"3055550101", "3055550102"}},
			models.Candidate{FullName: "Jane Smith", Location: "Miami, FL", VisiblePhones: []string{"3055550199"}},
		).
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"3055550103"}, Deceased: models.DeceasedYes})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	require.True(t, out.Found)
	assert.Equal(t, models.TierGreedy, out.Tier)
	assert.Equal(t, "(305) 555-0199", out.PrimaryPhone)
	assert.Equal(t, []string{"(305) 555-0199"}, out.AllPhones)
}

func TestResolve_GreedyDeclinesWhenOnlyProfileIsDeceased(t *testing.T) {
	records := sourcetest.New("CountyRecords").
		AddNationwide("Jane Smith", models.Candidate{
			FullName:        "Jane Smith",
			Location:        "Miami, FL",
			DetailReference: "r1",
			VisiblePhones:   []string{"3055550101"},
		}).
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"3055550103"}, Deceased: models.DeceasedYes})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Empty(t, out.PrimaryPhone)
	assert.NotEqual(t, models.TierGreedy, out.Tier)
}

// ==========================
// Deep-fetch bound
// ==========================

func TestResolve_DeepFetchesStayWithinBound(t *testing.T) {
	records := sourcetest.New("CountyRecords")
	for i := 0; i < 50; i++ {
		ref := fmt.Sprintf("r%02d", i)
		records.AddLocal("Jane Smith", models.Candidate{FullName: "Jane Smith", Location: "Seattle, WA", DetailReference: ref})
		records.AddProfile(ref, &models.DetailProfile{AllPhones: []string{fmt.Sprintf("20655501%02d", i)}})
	}
	cfg := config.DefaultResolverConfig()
	cfg.MaxDeepFetches = 8
	e, _ := setupEngineWithConfig(t, cfg, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), seattle)

	assert.True(t, out.Found)
	assert.LessOrEqual(t, len(records.DetailCalls()), 8)
}

// ==========================
// Relay
// ==========================

func TestResolve_RelayWithBacklink(t *testing.T) {
	records := sourcetest.New("CountyRecords").
		AddLocal("Jane Smith", models.Candidate{
			FullName:  "Jane Smith",
			Location:  "Seattle, WA",
			Relatives: []models.Relative{{Name: "John Smith"}, {Name: "Robert Smith"}},
		}).
		AddLocal("Robert Smith", models.Candidate{
			FullName:      "Robert Smith",
			Location:      "Seattle, WA",
			Relatives:     []models.Relative{{Name: "Jane Smith"}},
			VisiblePhones: []string{"2065550111"},
		})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), models.SearchTarget{
		PersonName: "Jane Smith", AssociatedName: "John Smith", City: "Seattle", State: "WA",
	})

	require.True(t, out.Found)
	assert.Equal(t, models.TierRelay, out.Tier)
	assert.Equal(t, "Jane Smith", out.PersonName)
	assert.Equal(t, "Robert Smith", out.ChosenName)
	assert.Equal(t, "(206) 555-0111", out.PrimaryPhone)
	assert.Equal(t, "CountyRecords (Relay)", out.Source)

	for _, call := range records.Searches() {
		assert.NotEqual(t, "John Smith", call.Name, "linked decedent must not be relayed")
	}
}

func TestResolve_RelayWithoutBacklinkIsRejected(t *testing.T) {
	records := sourcetest.New("CountyRecords").
		AddLocal("Jane Smith", models.Candidate{
			FullName:  "Jane Smith",
			Location:  "Seattle, WA",
			Relatives: []models.Relative{{Name: "John Smith"}, {Name: "Robert Smith"}},
		}).
		AddLocal("Robert Smith", models.Candidate{
			FullName:      "Robert Smith",
			Location:      "Seattle, WA",
			Relatives:     []models.Relative{{Name: "Alice Walker"}},
			VisiblePhones: []string{"2065550111"},
		})
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

	out := e.Resolve(context.Background(), models.SearchTarget{
		PersonName: "Jane Smith", AssociatedName: "John Smith", City: "Seattle", State: "WA",
	})

	assert.False(t, out.Found)
	assert.Contains(t, out.Rationale, "no contact info")
}

func TestResolve_RelayChecksRelativeProfile(t *testing.T) {
	tests := []struct {
		name     string
		deceased models.Deceased
		found    bool
	}{
		{name: "living relative is relayed", deceased: models.DeceasedNo, found: true},
		{name: "deceased relative is skipped", deceased: models.DeceasedYes, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := sourcetest.New("CountyRecords").
				AddLocal("Jane Smith", models.Candidate{
					FullName:  "Jane Smith",
					Location:  "Seattle, WA",
					Relatives: []models.Relative{{Name: "John Smith"}, {Name: "Robert Smith"}},
				}).
				AddNationwide("Robert Smith", models.Candidate{
					FullName:        "Robert Smith",
					Location:        "Miami, FL",
					DetailReference: "r2",
				}).
				AddProfile("r2", &models.DetailProfile{
					AllPhones:    []string{"3055550111"},
					AllRelatives: []models.Relative{{Name: "Jane Smith"}},
					Deceased:     tt.deceased,
				})
			e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records)))

			out := e.Resolve(context.Background(), models.SearchTarget{
				PersonName: "Jane Smith", AssociatedName: "John Smith", City: "Seattle", State: "WA",
			})

			assert.Equal(t, tt.found, out.Found)
			assert.Contains(t, records.DetailCalls(), "r2")
			if tt.found {
				assert.Equal(t, models.TierRelay, out.Tier)
				assert.Equal(t, "(305) 555-0111", out.PrimaryPhone)
			} else {
				assert.Empty(t, out.PrimaryPhone)
				assert.NotEqual(t, models.TierRelay, out.Tier)
			}
		})
	}
}

func TestRelayNames_BoundedAndFiltered(t *testing.T) {
	e, _ := setupEngine(t, rules(), source.NewRegistry())
	r := e.newRun(models.SearchTarget{PersonName: "Jane Smith", AssociatedName: "John Smith"})
	v := verdict{best: models.Candidate{Relatives: []models.Relative{
		{Name: "John Smith"}, {Name: "Jane Smith"}, {Name: "Unknown"},
		{Name: "Ann Smith"}, {Name: "ann smith"}, {Name: "Bob Smith"}, {Name: "Carl Smith"}, {Name: "Dora Smith"},
	}}}

	assert.Equal(t, []string{"Ann Smith", "Bob Smith", "Carl Smith"}, e.relayNames(r, v))
}

// ==========================
// Probate pivots
// ==========================

const obituaryQuery = `Obituary "Thomas Martin" WA`

func pivotTarget() models.SearchTarget {
	return models.SearchTarget{
		PersonName:      "Mary Unfindable",
		AssociatedName:  "Thomas Martin",
		City:            "Seattle",
		State:           "WA",
		PropertyAddress: "123 Main St, Seattle, WA 98101",
	}
}

func TestResolve_ObituaryPivot(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Diane Martin", models.Candidate{
		FullName:      "Diane Martin",
		Location:      "Seattle, WA",
		Relatives:     []models.Relative{{Name: "Thomas Martin"}},
		VisiblePhones: []string{"2065550199"},
	})
	text := newTextFake("WebSearch")
	text.hits[obituaryQuery] = []source.TextHit{{
		Title:   "Thomas Martin Obituary",
		Snippet: "Thomas Martin, 88, of Seattle passed away. He is survived by his daughter Diane Martin and son Paul Martin.",
	}}
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records), web(text)))

	out := e.Resolve(context.Background(), pivotTarget())

	require.True(t, out.Found)
	assert.Equal(t, models.TierPivotObituary, out.Tier)
	assert.Equal(t, "Mary Unfindable", out.PersonName)
	assert.Equal(t, "Diane Martin", out.ChosenName)
	assert.Equal(t, "(206) 555-0199", out.PrimaryPhone)
	assert.True(t, strings.HasPrefix(out.Rationale, "Recovered via Obituary: "))
}

func TestResolve_AddressPivot(t *testing.T) {
	text := newTextFake("WebSearch")
	text.hits[`"123 Main St, Seattle, WA 98101" residents "Full Name"`] = []source.TextHit{
		{Title: "No Phone Person - Seattle, WA", Snippet: "Lives at 123 Main St."},
		{Title: "Paul Resident - Seattle, WA | PeopleSite", Snippet: "Paul Resident lives at 123 Main St. Phone (206) 555-0177", Link: "https://example.com/paul"},
	}
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(sourcetest.New("CountyRecords")), web(text)))

	out := e.Resolve(context.Background(), pivotTarget())

	require.True(t, out.Found)
	assert.Equal(t, models.TierPivotAddress, out.Tier)
	assert.Equal(t, "Paul Resident", out.ChosenName)
	assert.Equal(t, "(206) 555-0177", out.PrimaryPhone)
	assert.Equal(t, string(models.SourceAddressPivot), out.Source)
	assert.True(t, strings.HasPrefix(out.Rationale, "Found at target address: "))
	assert.Contains(t, text.Queries(), obituaryQuery)
}

func TestResolve_PivotOnlyForProbateTargets(t *testing.T) {
	text := newTextFake("WebSearch")
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(sourcetest.New("CountyRecords")), web(text)))

	out := e.Resolve(context.Background(), seattle)

	assert.False(t, out.Found)
	assert.Empty(t, text.Queries())
}

// ==========================
// Verification override
// ==========================

func TestResolve_VerifierOverridesDifferentPhone(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith", models.Candidate{
		FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"2065550100"},
	})
	verifier := sourcetest.New("Verifier").AddLocal("Jane Smith", models.Candidate{
		FullName: "Jane Smith", VisiblePhones: []string{"2065550999"},
	})
	registry := source.NewRegistry(scoped(records), unscoped(verifier)).WithVerifier("Verifier")
	e, _ := setupEngine(t, rules(), registry)

	out := e.Resolve(context.Background(), seattle)

	require.True(t, out.Found)
	assert.Equal(t, "Verifier (Verified)", out.Source)
	assert.Equal(t, 90, out.Confidence)
	assert.Equal(t, "(206) 555-0999", out.PrimaryPhone)
	assert.Equal(t, models.TierVerified, out.Tier)
}

func TestResolve_VerifierAgreementKeepsOutcome(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Jane Smith", models.Candidate{
		FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"2065550100"},
	})
	verifier := sourcetest.New("Verifier").AddLocal("Jane Smith", models.Candidate{
		FullName: "Jane Smith", Location: "Seattle, WA", VisiblePhones: []string{"(206) 555-0100"},
	})
	registry := source.NewRegistry(scoped(records), unscoped(verifier)).WithVerifier("Verifier")
	e, _ := setupEngine(t, rules(), registry)

	out := e.Resolve(context.Background(), seattle)

	require.True(t, out.Found)
	assert.Equal(t, "CountyRecords", out.Source)
	assert.Equal(t, 80, out.Confidence)
	assert.Equal(t, models.TierBroadened, out.Tier)
}

// ==========================
// Records and batches
// ==========================

func martinRecord(reps ...string) models.OwnerRecord {
	return models.OwnerRecord{
		Raw:             "THOMAS MARTIN (Dead) " + strings.Join(reps, " & ") + " (PR)",
		DecedentName:    "Thomas Martin",
		Representatives: reps,
		IsProbate:       true,
		City:            "Seattle",
		State:           "WA",
	}
}

func TestResolveRecord_RepresentativesInOrder(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Diane Martin", models.Candidate{
		FullName:      "Diane Martin",
		Location:      "Seattle, WA",
		Relatives:     []models.Relative{{Name: "Thomas Martin"}},
		VisiblePhones: []string{"2065550199"},
	})
	text := newTextFake("WebSearch")
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records), web(text)))

	out := e.ResolveRecord(context.Background(), martinRecord("Paul Martin", "Diane Martin", "Third Person"))

	require.Len(t, out.Outcomes, 2, "capped at max representatives")
	assert.NotEmpty(t, out.ID)
	assert.False(t, out.ResolvedAt.IsZero())
	assert.Equal(t, "Paul Martin", out.Outcomes[0].PersonName)
	assert.False(t, out.Outcomes[0].Found)
	assert.Equal(t, "Diane Martin", out.Outcomes[1].PersonName)
	assert.True(t, out.Outcomes[1].Found)
	assert.True(t, out.AnyFound())
	assert.Empty(t, text.Queries(), "no pivot when a representative was found")
}

func TestResolveRecord_PivotRunsOncePerRecord(t *testing.T) {
	records := sourcetest.New("CountyRecords").AddLocal("Diane Martin", models.Candidate{
		FullName:      "Diane Martin",
		Location:      "Seattle, WA",
		Relatives:     []models.Relative{{Name: "Thomas Martin"}},
		VisiblePhones: []string{"2065550199"},
	})
	text := newTextFake("WebSearch")
	text.hits[obituaryQuery] = []source.TextHit{{
		Snippet: "Thomas Martin passed away. He is survived by his daughter Diane Martin.",
	}}
	e, _ := setupEngine(t, rules(), source.NewRegistry(scoped(records), web(text)))

	out := e.ResolveRecord(context.Background(), martinRecord("Mary Unfindable", "Joe Unfindable"))

	require.Len(t, out.Outcomes, 2)
	assert.Equal(t, models.TierPivotObituary, out.Outcomes[0].Tier)
	assert.Equal(t, "Diane Martin", out.Outcomes[0].ChosenName)
	assert.False(t, out.Outcomes[1].Found)

	obituaries := 0
	for _, q := range text.Queries() {
		if q == obituaryQuery {
			obituaries++
		}
	}
	assert.Equal(t, 1, obituaries)
}

func TestResolveRecord_NoRepresentatives(t *testing.T) {
	e, _ := setupEngine(t, rules(), source.NewRegistry())
	out := e.ResolveRecord(context.Background(), models.OwnerRecord{Raw: "UNKNOWN"})

	require.Len(t, out.Outcomes, 1)
	assert.False(t, out.Outcomes[0].Found)
}

func TestResolveAll_PreservesOrder(t *testing.T) {
	records := sourcetest.New("CountyRecords")
	batch := make([]models.OwnerRecord, 0, 25)
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("Person%c Smith", 'A'+rune(i))
		records.AddLocal(name, models.Candidate{
			FullName:      name,
			Location:      "Seattle, WA",
			VisiblePhones: []string{fmt.Sprintf("20655502%02d", i)},
		})
		batch = append(batch, models.OwnerRecord{Raw: name, Representatives: []string{name}, City: "Seattle", State: "WA"})
	}
	cfg := config.DefaultResolverConfig()
	cfg.BatchConcurrency = 4
	e, _ := setupEngineWithConfig(t, cfg, rules(), source.NewRegistry(scoped(records)))

	out := e.ResolveAll(context.Background(), batch)

	require.Len(t, out, len(batch))
	for i, rec := range out {
		require.Len(t, rec.Outcomes, 1)
		assert.Equal(t, batch[i].Representatives[0], rec.Outcomes[0].PersonName)
		assert.True(t, rec.Outcomes[0].Found)
		assert.Equal(t, fmt.Sprintf("(206) 555-02%02d", i), rec.Outcomes[0].PrimaryPhone)
	}
}
