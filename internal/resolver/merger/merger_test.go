package merger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/phone"
	"probate-resolver/internal/resolver/profilecache"
	"probate-resolver/internal/resolver/source"
	"probate-resolver/internal/resolver/source/sourcetest"
)

func setupMerger(t *testing.T, cfg Config, fakes ...*sourcetest.Fake) (*Merger, *profilecache.Cache) {
	t.Helper()
	guards := make([]*source.Guard, 0, len(fakes))
	for _, f := range fakes {
		guards = append(guards, source.NewGuard(f, nil, source.GuardOptions{Scoped: true}, nil))
	}
	cache := profilecache.New(nil, nil)
	return New(cfg, source.NewRegistry(guards...), cache, logger.NewTestLogger(t)), cache
}

func records(name, ref, location string, phones ...string) models.Candidate {
	return models.Candidate{
		FullName:        name,
		Location:        location,
		DetailReference: ref,
		Source:          "CountyRecords",
		VisiblePhones:   phones,
		Scope:           models.ScopeLocal,
	}
}

var seattleTarget = models.SearchTarget{PersonName: "Jane Smith", City: "Seattle", State: "WA"}

// ==========================
// Merge
// ==========================

func TestMerge_UnionsRanksAndFilters(t *testing.T) {
	fake := sourcetest.New("CountyRecords").
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"503-555-0101", "855-723-2747"}}).
		AddProfile("r2", &models.DetailProfile{AllPhones: []string{"206.555.0102"}})
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8, Blacklist: phone.NewBlacklist("8557232747")}, fake)

	pool := []models.Candidate{
		records("Jane Smith", "r1", "Seattle, WA", "(415) 555-0100"),
		records("Jane A Smith", "r2", "Seattle, WA"),
		records("Robert Jones", "r3", "Seattle, WA", "2065550199"),
	}

	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0})

	assert.Equal(t, []string{"(206) 555-0102", "(415) 555-0100", "(503) 555-0101"}, res.Phones)
	assert.Equal(t, "(206) 555-0102", res.Primary())
	assert.NotContains(t, res.Canonical, "8557232747")
	assert.NotContains(t, res.Canonical, "2065550199")
	assert.Equal(t, 2, res.Fetched)
	require.NotNil(t, res.BestProfile)
	assert.ElementsMatch(t, []string{"r1", "r2"}, fake.DetailCalls())
}

func TestMerge_KeepsVisiblePhonesWhenDetailFails(t *testing.T) {
	fake := sourcetest.New("CountyRecords")
	fake.DetailErr = errors.New("503 from upstream")
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	pool := []models.Candidate{records("Jane Smith", "r1", "Seattle, WA", "2065550100")}
	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0})

	assert.Equal(t, []string{"(206) 555-0100"}, res.Phones)
	assert.Nil(t, res.BestProfile)
}

func TestMerge_FailedDetailIsRetriedByLaterRun(t *testing.T) {
	fake := sourcetest.New("CountyRecords").
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"2065550111"}})
	fake.DetailErr = errors.New("provider timeout")
	m, cache := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	pool := []models.Candidate{records("Jane Smith", "r1", "Seattle, WA")}

	first := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0, Budget: NewBudget(8)})
	assert.Empty(t, first.Phones)
	assert.Nil(t, first.BestProfile)
	_, cached := cache.Get(pool[0].Key())
	assert.False(t, cached, "failed fetch must not be memoized")

	fake.DetailErr = nil
	second := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0, Budget: NewBudget(8)})
	assert.Equal(t, []string{"(206) 555-0111"}, second.Phones)
	require.NotNil(t, second.BestProfile)
	assert.Equal(t, []string{"r1", "r1"}, fake.DetailCalls())
}

func TestMerge_EmptyProfileIsMemoized(t *testing.T) {
	fake := sourcetest.New("CountyRecords")
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	pool := []models.Candidate{records("Jane Smith", "r9", "Seattle, WA", "2065550100")}
	for i := 0; i < 2; i++ {
		res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0, Budget: NewBudget(8)})
		assert.Equal(t, []string{"(206) 555-0100"}, res.Phones)
	}
	assert.Equal(t, []string{"r9"}, fake.DetailCalls())
}

func TestMerge_SkipsDeceasedRelatedProfile(t *testing.T) {
	fake := sourcetest.New("CountyRecords").
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"2065550101"}}).
		AddProfile("r2", &models.DetailProfile{AllPhones: []string{"2065550102"}, Deceased: models.DeceasedYes})
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	pool := []models.Candidate{
		records("Jane Smith", "r1", "Seattle, WA"),
		records("Jane Smith", "r2", "Seattle, WA", "2065550103"),
	}
	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0})

	assert.Equal(t, []string{"(206) 555-0101"}, res.Phones)
	assert.ElementsMatch(t, []string{"r1", "r2"}, fake.DetailCalls())
}

func TestMerge_NoPhonesIsEmptyResult(t *testing.T) {
	fake := sourcetest.New("CountyRecords")
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	pool := []models.Candidate{records("Jane Smith", "", "Seattle, WA")}
	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0})

	assert.Empty(t, res.Phones)
	assert.Equal(t, "", res.Primary())
	assert.Empty(t, fake.DetailCalls())
}

func TestMerge_OutOfRangeIndex(t *testing.T) {
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8})
	res := m.Merge(context.Background(), Request{Target: seattleTarget, BestIndex: models.NoMatch})
	assert.Empty(t, res.Phones)
}

func TestMerge_WebCandidatesAreNotDeepFetched(t *testing.T) {
	fake := sourcetest.New("WebSearch")
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	best := models.Candidate{
		FullName:        "Jane Smith",
		Source:          "WebSearch",
		DetailReference: "https://example.com/jane",
		VisiblePhones:   []string{"2065550100"},
		Scope:           models.ScopeWeb,
	}
	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: []models.Candidate{best}, BestIndex: 0})

	assert.Equal(t, []string{"(206) 555-0100"}, res.Phones)
	assert.Empty(t, fake.DetailCalls())
}

// ==========================
// Deep-fetch bound
// ==========================

func TestMerge_NeverExceedsMaxDeepFetches(t *testing.T) {
	fake := sourcetest.New("CountyRecords")
	pool := make([]models.Candidate, 0, 12)
	for i := 0; i < 12; i++ {
		ref := fmt.Sprintf("r%d", i)
		fake.AddProfile(ref, &models.DetailProfile{AllPhones: []string{fmt.Sprintf("206555%04d", i)}})
		pool = append(pool, records("Jane Smith", ref, "Seattle, WA"))
	}
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)

	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0})

	assert.Len(t, fake.DetailCalls(), 8)
	assert.Len(t, res.Phones, 8)
}

func TestMerge_BudgetIsSharedAcrossMerges(t *testing.T) {
	fake := sourcetest.New("CountyRecords")
	for i := 0; i < 6; i++ {
		fake.AddProfile(fmt.Sprintf("r%d", i), &models.DetailProfile{})
	}
	m, _ := setupMerger(t, Config{MaxDeepFetches: 8}, fake)
	budget := NewBudget(4)

	first := []models.Candidate{records("Jane Smith", "r0", ""), records("Jane Smith", "r1", ""), records("Jane Smith", "r2", "")}
	second := []models.Candidate{records("Jane Smith", "r3", ""), records("Jane Smith", "r4", ""), records("Jane Smith", "r5", "")}

	m.Merge(context.Background(), Request{Target: seattleTarget, Pool: first, BestIndex: 0, Budget: budget})
	m.Merge(context.Background(), Request{Target: seattleTarget, Pool: second, BestIndex: 0, Budget: budget})

	assert.Len(t, fake.DetailCalls(), 4)
	assert.Equal(t, 4, budget.Used())
}

func TestMerge_CacheHitsDoNotSpendBudget(t *testing.T) {
	fake := sourcetest.New("CountyRecords").
		AddProfile("r1", &models.DetailProfile{AllPhones: []string{"2065550100"}})
	m, cache := setupMerger(t, Config{MaxDeepFetches: 8}, fake)
	pool := []models.Candidate{records("Jane Smith", "r1", "Seattle, WA")}

	m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0})

	budget := NewBudget(1)
	res := m.Merge(context.Background(), Request{Target: seattleTarget, Pool: pool, BestIndex: 0, Budget: budget})

	assert.Equal(t, []string{"(206) 555-0100"}, res.Phones)
	assert.Equal(t, 0, budget.Used())
	assert.Len(t, fake.DetailCalls(), 1)
	assert.Equal(t, int64(1), cache.Stats().Hits)
}

func TestBudget_Take(t *testing.T) {
	b := NewBudget(2)
	assert.True(t, b.Take())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
	assert.Equal(t, 2, b.Used())

	assert.False(t, NewBudget(-1).Take())
}

// ==========================
// Related group
// ==========================

func TestRelatedGroup(t *testing.T) {
	pool := []models.Candidate{
		{FullName: "Jane Smith", Age: "71", Location: "Seattle, WA", DetailReference: "best", Source: "A"},
		{FullName: "Jane Marie Smith", Location: "Seattle, WA", DetailReference: "same-city", Source: "A"},
		{FullName: "Jane Smith", Location: "Spokane, WA", DetailReference: "other-city", Source: "A"},
		{FullName: "Jane Smith", Age: "71", Location: "Tacoma, WA", DetailReference: "same-age", Source: "B"},
		{FullName: "Jane Smith", DetailReference: "no-location", Source: "B"},
		{FullName: "Robert Smith", Location: "Seattle, WA", DetailReference: "other-name", Source: "B"},
		{FullName: "Jane Smith", Location: "Seattle, WA", DetailReference: "best", Source: "A"},
	}

	group := RelatedGroup(seattleTarget, pool, 0)

	refs := make([]string, 0, len(group))
	for _, c := range group {
		refs = append(refs, c.DetailReference)
	}
	assert.Equal(t, []string{"same-city", "same-age", "no-location"}, refs)
}

func TestRelatedGroup_BestWithoutLocationAcceptsAll(t *testing.T) {
	pool := []models.Candidate{
		{FullName: "Jane Smith", Source: "A"},
		{FullName: "Jane Smith", Location: "Miami, FL", DetailReference: "r", Source: "A"},
	}
	assert.Len(t, RelatedGroup(seattleTarget, pool, 0), 1)
	assert.Nil(t, RelatedGroup(seattleTarget, pool, 5))
}
