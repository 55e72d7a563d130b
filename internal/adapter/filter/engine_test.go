package filter

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/core/domain"
)

var fixedNow = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *catalog.MemoryProvider) {
	t.Helper()
	provider := catalog.NewMemoryProvider()
	t.Cleanup(provider.Close)

	provider.SetGrouping(domain.Grouping{ID: "rpg", Name: "RPG", Entries: []string{"e1", "e3"}})
	provider.SetContacts(domain.Contact{ID: "alice"}, domain.Contact{ID: "bob"})
	provider.SetOwned("alice", "e1", "e2")
	provider.SetOwned("bob", "e1")

	engine := NewEngine(provider,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	)
	return engine, provider
}

func TestEngine_InstalledScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	entry := &domain.CatalogEntry{ID: "e1", Installed: false}

	f := domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false)
	assert.False(t, engine.Evaluate(f, entry))

	f.Inverted = true
	assert.True(t, engine.Evaluate(f, entry))
}

func TestEngine_ReleaseDateScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	f := domain.MustFilter(domain.FilterReleaseDate, domain.DateParams{
		Date:      &domain.DateSpec{Year: 2020},
		Condition: domain.ConditionAbove,
	}, false)

	in2020 := &domain.CatalogEntry{ID: "a", ReleaseTime: time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)}
	in2019 := &domain.CatalogEntry{ID: "b", ReleaseTime: time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC)}

	assert.True(t, engine.Evaluate(f, in2020))
	assert.False(t, engine.Evaluate(f, in2019))
}

func TestEngine_DateGranularity(t *testing.T) {
	engine, _ := newTestEngine(t)
	daysAgo := func(n int) *int { return &n }

	tests := []struct {
		name   string
		params domain.DateParams
		ts     time.Time
		want   bool
	}{
		{
			name:   "below year includes last instant of the year",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2020}, Condition: domain.ConditionBelow},
			ts:     time.Date(2020, time.December, 31, 23, 59, 59, 0, time.UTC),
			want:   true,
		},
		{
			name:   "below year excludes next year",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2020}, Condition: domain.ConditionBelow},
			ts:     time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
			want:   false,
		},
		{
			name:   "above month starts on the first",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2021, Month: 2}, Condition: domain.ConditionAbove},
			ts:     time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "below month covers leap day",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2024, Month: 2}, Condition: domain.ConditionBelow},
			ts:     time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "below day is the whole day",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2022, Month: 5, Day: 10}, Condition: domain.ConditionBelow},
			ts:     time.Date(2022, time.May, 10, 23, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "above day excludes the day before",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2022, Month: 5, Day: 10}, Condition: domain.ConditionAbove},
			ts:     time.Date(2022, time.May, 9, 23, 59, 0, 0, time.UTC),
			want:   false,
		},
		{
			name:   "days ago above includes start of that day",
			params: domain.DateParams{DaysAgo: daysAgo(7), Condition: domain.ConditionAbove},
			ts:     time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "days ago above excludes earlier",
			params: domain.DateParams{DaysAgo: daysAgo(7), Condition: domain.ConditionAbove},
			ts:     time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC),
			want:   false,
		},
		{
			name:   "days ago below includes the whole day",
			params: domain.DateParams{DaysAgo: daysAgo(7), Condition: domain.ConditionBelow},
			ts:     time.Date(2024, time.March, 8, 22, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "zero timestamp never matches",
			params: domain.DateParams{Date: &domain.DateSpec{Year: 2020}, Condition: domain.ConditionBelow},
			ts:     time.Time{},
			want:   false,
		},
		{
			name:   "incomplete date never matches",
			params: domain.DateParams{Condition: domain.ConditionBelow},
			ts:     time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := domain.MustFilter(domain.FilterLastPlayed, tt.params, false)
			entry := &domain.CatalogEntry{ID: "x", LastPlayed: tt.ts}
			assert.Equal(t, tt.want, engine.Evaluate(f, entry))
		})
	}
}

func TestEngine_Variants(t *testing.T) {
	engine, provider := newTestEngine(t)
	provider.SetRemovableMedia(true, "card-a", "card-a", "card-b")

	entry := &domain.CatalogEntry{
		ID:                   "e1",
		Name:                 "Hollow Knight",
		Platform:             domain.PlatformSteam,
		Card:                 "card-a",
		Tags:                 []int{1, 2, 3},
		SizeOnDisk:           30_000_000_000,
		DeckCompatibility:    3,
		MinutesPlayed:        150,
		MetacriticScore:      87,
		ReviewPercent:        97,
		AchievementsUnlocked: 30,
		AchievementsTotal:    60,
		Installed:            true,
		Streamable:           true,
	}

	tests := []struct {
		name   string
		filter domain.Filter
		want   bool
	}{
		{"collection member", domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "rpg"}, false), true},
		{"collection missing grouping", domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "gone"}, false), false},
		{"regex case insensitive", domain.MustFilter(domain.FilterRegex, domain.RegexParams{Regex: "^hollow"}, false), true},
		{"regex invalid", domain.MustFilter(domain.FilterRegex, domain.RegexParams{Regex: "("}, false), false},
		{"friends and", domain.MustFilter(domain.FilterFriends, domain.FriendsParams{Mode: domain.ModeAnd, Friends: []string{"alice", "bob"}}, false), true},
		{"friends or", domain.MustFilter(domain.FilterFriends, domain.FriendsParams{Mode: domain.ModeOr, Friends: []string{"carol", "bob"}}, false), true},
		{"friends empty or", domain.MustFilter(domain.FilterFriends, domain.FriendsParams{Mode: domain.ModeOr}, false), false},
		{"tags and", domain.MustFilter(domain.FilterTags, domain.TagsParams{Mode: domain.ModeAnd, Tags: []int{1, 4}}, false), false},
		{"tags or", domain.MustFilter(domain.FilterTags, domain.TagsParams{Mode: domain.ModeOr, Tags: []int{1, 4}}, false), true},
		{"tags empty and", domain.MustFilter(domain.FilterTags, domain.TagsParams{Mode: domain.ModeAnd}, false), true},
		{"whitelist", domain.MustFilter(domain.FilterWhitelist, domain.ListParams{Games: []string{"e1"}}, false), true},
		{"blacklist", domain.MustFilter(domain.FilterBlacklist, domain.ListParams{Games: []string{"e1"}}, false), false},
		{"platform", domain.MustFilter(domain.FilterPlatform, domain.PlatformParams{Platform: domain.PlatformNonSteam}, false), false},
		{"deck compatibility", domain.MustFilter(domain.FilterDeckCompatibility, domain.DeckCompatibilityParams{Category: 3}, false), true},
		{"metacritic above inclusive", domain.MustFilter(domain.FilterReviewScore, domain.ReviewScoreParams{ScoreType: domain.ScoreMetacritic, Threshold: 87, Condition: domain.ConditionAbove}, false), true},
		{"store percent below", domain.MustFilter(domain.FilterReviewScore, domain.ReviewScoreParams{ScoreType: domain.ScoreStorePercent, Threshold: 90, Condition: domain.ConditionBelow}, false), false},
		{"time played hours", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitHours, TimeThreshold: 2, Condition: domain.ConditionAbove}, false), true},
		{"time played below inclusive", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitMinutes, TimeThreshold: 150, Condition: domain.ConditionBelow}, false), true},
		{"size above", domain.MustFilter(domain.FilterSizeOnDisk, domain.SizeOnDiskParams{Size: "25GB", Condition: domain.ConditionAbove}, false), true},
		{"size unparseable", domain.MustFilter(domain.FilterSizeOnDisk, domain.SizeOnDiskParams{Size: "lots", Condition: domain.ConditionAbove}, false), false},
		{"achievements percent", domain.MustFilter(domain.FilterAchievements, domain.AchievementsParams{ThresholdType: domain.ThresholdPercent, Threshold: 50, Condition: domain.ConditionAbove}, false), true},
		{"time played days beyond duration range", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitDays, TimeThreshold: 200000, Condition: domain.ConditionBelow}, false), true},
		{"time played threshold overflows minutes", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitDays, TimeThreshold: math.MaxInt64 / 100, Condition: domain.ConditionBelow}, false), false},
		{"achievements count below", domain.MustFilter(domain.FilterAchievements, domain.AchievementsParams{ThresholdType: domain.ThresholdCount, Threshold: 10, Condition: domain.ConditionBelow}, false), false},
		{"demo", domain.MustFilter(domain.FilterDemo, domain.DemoParams{IsDemo: false}, false), true},
		{"streamable", domain.MustFilter(domain.FilterStreamable, domain.StreamableParams{IsStreamable: true}, false), true},
		{"removable media current card", domain.MustFilter(domain.FilterRemovableMedia, domain.RemovableMediaParams{}, false), true},
		{"removable media other card", domain.MustFilter(domain.FilterRemovableMedia, domain.RemovableMediaParams{Card: "card-b"}, false), false},
		{"expression", domain.MustFilter(domain.FilterExpression, domain.ExpressionParams{Expression: `app.installed && app.minutesPlayed > 100`}, false), true},
		{"expression with tags", domain.MustFilter(domain.FilterExpression, domain.ExpressionParams{Expression: `2 in app.tags && app.name.startsWith("Hollow")`}, false), true},
		{"expression compile error", domain.MustFilter(domain.FilterExpression, domain.ExpressionParams{Expression: `app.installed &&`}, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Evaluate(tt.filter, entry))
		})
	}
}

func TestEngine_AchievementPercentIsNotTruncated(t *testing.T) {
	engine, _ := newTestEngine(t)
	entry := &domain.CatalogEntry{ID: "e1", AchievementsUnlocked: 2, AchievementsTotal: 3}

	tests := []struct {
		name      string
		condition domain.Condition
		threshold int
		want      bool
	}{
		{"below 66 excludes 66.7%", domain.ConditionBelow, 66, false},
		{"below 67 includes 66.7%", domain.ConditionBelow, 67, true},
		{"above 66 includes 66.7%", domain.ConditionAbove, 66, true},
		{"above 67 excludes 66.7%", domain.ConditionAbove, 67, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := domain.MustFilter(domain.FilterAchievements, domain.AchievementsParams{
				ThresholdType: domain.ThresholdPercent, Threshold: tt.threshold, Condition: tt.condition,
			}, false)
			assert.Equal(t, tt.want, engine.Evaluate(f, entry))
		})
	}

	exact := &domain.CatalogEntry{ID: "e2", AchievementsUnlocked: 1, AchievementsTotal: 2}
	f := domain.MustFilter(domain.FilterAchievements, domain.AchievementsParams{
		ThresholdType: domain.ThresholdPercent, Threshold: 50, Condition: domain.ConditionBelow,
	}, false)
	assert.True(t, engine.Evaluate(f, exact), "thresholds are inclusive")
}

func TestEngine_NonInvertibleIgnoresFlag(t *testing.T) {
	engine, _ := newTestEngine(t)
	entry := &domain.CatalogEntry{ID: "e1"}

	f := domain.Filter{Type: domain.FilterWhitelist, Params: domain.ListParams{Games: []string{"e1"}}, Inverted: true}
	assert.True(t, engine.Evaluate(f, entry))

	f = domain.Filter{Type: domain.FilterDemo, Params: domain.DemoParams{IsDemo: false}, Inverted: true}
	assert.True(t, engine.Evaluate(f, entry))
}

func TestEngine_OptionalDependency(t *testing.T) {
	engine, provider := newTestEngine(t)
	entry := &domain.CatalogEntry{ID: "e1", Card: "card-a"}
	f := domain.MustFilter(domain.FilterRemovableMedia, domain.RemovableMediaParams{Card: "card-b"}, true)
	nested := []domain.Filter{domain.NewMerge(domain.ModeOr, false, f)}

	provider.SetRemovableMedia(false, "")
	assert.False(t, engine.Evaluate(f, entry), "inversion must not apply without the plugin")
	assert.False(t, engine.DependencyAvailable(nested))

	provider.SetRemovableMedia(true, "card-a", "card-a", "card-b")
	assert.True(t, engine.Evaluate(f, entry))
	assert.True(t, engine.DependencyAvailable(nested))

	plain := []domain.Filter{domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false)}
	provider.SetRemovableMedia(false, "")
	assert.True(t, engine.DependencyAvailable(plain))
}

func TestEngine_EvaluateAllEmpty(t *testing.T) {
	engine, _ := newTestEngine(t)
	entry := &domain.CatalogEntry{ID: "e1"}

	assert.True(t, engine.EvaluateAll(nil, domain.ModeAnd, entry))
	assert.False(t, engine.EvaluateAll(nil, domain.ModeOr, entry))
	assert.False(t, engine.Evaluate(domain.Filter{Type: domain.FilterInstalled}, entry), "nil params")
	assert.False(t, engine.Evaluate(domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{}, false), nil))
}

// randomLeaf returns a leaf filter drawn from a few variants with random params
func randomLeaf(r *rand.Rand) domain.Filter {
	inverted := r.Intn(2) == 0
	switch r.Intn(5) {
	case 0:
		return domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: r.Intn(2) == 0}, inverted)
	case 1:
		return domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: []string{"rpg", "gone"}[r.Intn(2)]}, inverted)
	case 2:
		return domain.MustFilter(domain.FilterTags, domain.TagsParams{Mode: domain.ModeOr, Tags: []int{r.Intn(4)}}, inverted)
	case 3:
		return domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitMinutes, TimeThreshold: r.Intn(300), Condition: domain.ConditionAbove}, inverted)
	default:
		return domain.MustFilter(domain.FilterRegex, domain.RegexParams{Regex: []string{"a", "^z", "k"}[r.Intn(3)]}, inverted)
	}
}

func randomEntries(r *rand.Rand, n int) []*domain.CatalogEntry {
	names := []string{"Hollow Knight", "Celeste", "Zelda", "Hades"}
	out := make([]*domain.CatalogEntry, n)
	for i := range out {
		out[i] = &domain.CatalogEntry{
			ID:            []string{"e1", "e2", "e3", "e4"}[i%4],
			Name:          names[r.Intn(len(names))],
			Installed:     r.Intn(2) == 0,
			Tags:          []int{r.Intn(4)},
			MinutesPlayed: r.Intn(300),
		}
	}
	return out
}

func TestEngine_Laws(t *testing.T) {
	engine, _ := newTestEngine(t)
	r := rand.New(rand.NewSource(42))
	entries := randomEntries(r, 40)

	for i := 0; i < 200; i++ {
		a, b := randomLeaf(r), randomLeaf(r)

		for _, e := range entries {
			// purity
			first := engine.Evaluate(a, e)
			require.Equal(t, first, engine.Evaluate(a, e))

			// invert law
			flipped := a
			flipped.Inverted = !a.Inverted
			require.Equal(t, !first, engine.Evaluate(flipped, e), "filter %+v entry %s", a, e.ID)

			// merge law
			andNode := domain.NewMerge(domain.ModeAnd, false, a, b)
			orNode := domain.NewMerge(domain.ModeOr, false, a, b)
			require.Equal(t, engine.Evaluate(a, e) && engine.Evaluate(b, e), engine.Evaluate(andNode, e))
			require.Equal(t, engine.Evaluate(a, e) || engine.Evaluate(b, e), engine.Evaluate(orNode, e))

			invertedAnd := domain.NewMerge(domain.ModeAnd, true, a, b)
			require.Equal(t, !engine.Evaluate(andNode, e), engine.Evaluate(invertedAnd, e))
		}
	}
}

func TestEngine_ExpressionUsesInjectedClock(t *testing.T) {
	engine, _ := newTestEngine(t)
	entry := &domain.CatalogEntry{ID: "e1", LastPlayed: fixedNow.Add(-48 * time.Hour)}
	f := domain.MustFilter(domain.FilterExpression, domain.ExpressionParams{
		Expression: `now - app.lastPlayed < duration("72h")`,
	}, false)

	assert.True(t, engine.Evaluate(f, entry))
	assert.True(t, engine.Evaluate(f, entry))
}
