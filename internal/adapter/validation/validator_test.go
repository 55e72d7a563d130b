package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/core/domain"
)

func newProvider(t *testing.T) *catalog.MemoryProvider {
	t.Helper()
	p := catalog.NewMemoryProvider()
	t.Cleanup(p.Close)
	p.SetEntries(
		&domain.CatalogEntry{ID: "hk", Name: "Hollow Knight", Installed: true},
		&domain.CatalogEntry{ID: "cel", Name: "Celeste"},
	)
	p.SetGrouping(domain.Grouping{ID: "g2", Entries: []string{"hk"}})
	p.SetContacts(domain.Contact{ID: "alice", Name: "Alice"})
	p.SetTags(domain.Tag{ID: 1, Name: "RPG"})
	p.SetRemovableMedia(true, "sd1", "sd1")
	return p
}

func days(n int) *int { return &n }

func TestValidator_Filters(t *testing.T) {
	v := NewValidator(newProvider(t), nil)

	tests := []struct {
		name   string
		filter domain.Filter
		errors int
	}{
		{"existing collection", domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g2"}, false), 0},
		{"dangling collection", domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g1"}, false), 1},
		{"empty collection", domain.MustFilter(domain.FilterCollection, domain.CollectionParams{}, false), 1},
		{"valid regex", domain.MustFilter(domain.FilterRegex, domain.RegexParams{Regex: "^hol+ow"}, false), 0},
		{"broken regex", domain.MustFilter(domain.FilterRegex, domain.RegexParams{Regex: "(unclosed"}, false), 1},
		{"friends", domain.MustFilter(domain.FilterFriends, domain.FriendsParams{Mode: domain.ModeOr, Friends: []string{"alice"}}, false), 0},
		{"gone friend and bad mode", domain.MustFilter(domain.FilterFriends, domain.FriendsParams{Mode: "xor", Friends: []string{"alice", "bob"}}, false), 2},
		{"gone tag", domain.MustFilter(domain.FilterTags, domain.TagsParams{Mode: domain.ModeAnd, Tags: []int{1, 9}}, false), 1},
		{"whitelist", domain.MustFilter(domain.FilterWhitelist, domain.ListParams{Games: []string{"hk", "gone"}}, false), 1},
		{"platform", domain.MustFilter(domain.FilterPlatform, domain.PlatformParams{Platform: "amiga"}, false), 1},
		{"deck", domain.MustFilter(domain.FilterDeckCompatibility, domain.DeckCompatibilityParams{Category: 4}, false), 1},
		{"review", domain.MustFilter(domain.FilterReviewScore, domain.ReviewScoreParams{ScoreType: domain.ScoreMetacritic, Condition: domain.ConditionAbove, Threshold: 80}, false), 0},
		{"review out of range", domain.MustFilter(domain.FilterReviewScore, domain.ReviewScoreParams{ScoreType: "imdb", Condition: "equal", Threshold: 120}, false), 3},
		{"time played", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitHours, Condition: domain.ConditionBelow, TimeThreshold: 2}, false), 0},
		{"time played units", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: "weeks", Condition: domain.ConditionBelow}, false), 1},
		{"time played too large", domain.MustFilter(domain.FilterTimePlayed, domain.TimePlayedParams{Units: domain.UnitDays, Condition: domain.ConditionBelow, TimeThreshold: math.MaxInt64 / 100}, false), 1},
		{"size", domain.MustFilter(domain.FilterSizeOnDisk, domain.SizeOnDiskParams{Size: "25GB", Condition: domain.ConditionAbove}, false), 0},
		{"bad size", domain.MustFilter(domain.FilterSizeOnDisk, domain.SizeOnDiskParams{Size: "huge", Condition: domain.ConditionAbove}, false), 1},
		{"date", domain.MustFilter(domain.FilterReleaseDate, domain.DateParams{Date: &domain.DateSpec{Year: 2020}, Condition: domain.ConditionAbove}, false), 0},
		{"incomplete date", domain.MustFilter(domain.FilterReleaseDate, domain.DateParams{Condition: domain.ConditionAbove}, false), 1},
		{"days ago", domain.MustFilter(domain.FilterLastPlayed, domain.DateParams{DaysAgo: days(3), Condition: domain.ConditionAbove}, false), 0},
		{"achievements percent", domain.MustFilter(domain.FilterAchievements, domain.AchievementsParams{ThresholdType: domain.ThresholdPercent, Condition: domain.ConditionAbove, Threshold: 101}, false), 1},
		{"card", domain.MustFilter(domain.FilterRemovableMedia, domain.RemovableMediaParams{Card: "sd1"}, false), 0},
		{"gone card", domain.MustFilter(domain.FilterRemovableMedia, domain.RemovableMediaParams{Card: "sd9"}, false), 1},
		{"expression", domain.MustFilter(domain.FilterExpression, domain.ExpressionParams{Expression: `app.installed && app.minutesPlayed > 60`}, false), 0},
		{"broken expression", domain.MustFilter(domain.FilterExpression, domain.ExpressionParams{Expression: `app.installed &&`}, false), 1},
		{"installed", domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, true), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateFilters([]domain.Filter{tt.filter})
			if tt.errors == 0 {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Len(t, errs[0].Errors, tt.errors, "%v", errs[0].Errors)
			assert.Equal(t, 0, errs[0].FilterIndex)
		})
	}
}

func TestValidator_UnavailableMediaIsNotAnError(t *testing.T) {
	p := newProvider(t)
	p.SetRemovableMedia(false, "")
	v := NewValidator(p, nil)

	errs := v.ValidateFilters([]domain.Filter{
		domain.MustFilter(domain.FilterRemovableMedia, domain.RemovableMediaParams{Card: "sd9"}, false),
	})
	assert.Empty(t, errs)
}

func TestValidator_RecursesIntoMerge(t *testing.T) {
	v := NewValidator(newProvider(t), nil)

	filters := []domain.Filter{
		domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false),
		domain.NewMerge(domain.ModeOr, false,
			domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g2"}, false),
			domain.NewMerge(domain.ModeAnd, false,
				domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g1"}, false),
			),
		),
		domain.NewMerge(domain.ModeAnd, false),
	}

	errs := v.ValidateFilters(filters)
	require.Len(t, errs, 2)

	outer := errs[0]
	assert.Equal(t, 1, outer.FilterIndex)
	assert.Empty(t, outer.Errors)
	require.Len(t, outer.Nested, 1)
	assert.Equal(t, 1, outer.Nested[0].FilterIndex)
	require.Len(t, outer.Nested[0].Nested, 1)
	assert.Equal(t, 0, outer.Nested[0].Nested[0].FilterIndex)
	assert.Contains(t, outer.Nested[0].Nested[0].Errors[0], `"g1"`)

	assert.Equal(t, 2, errs[1].FilterIndex)
	assert.Equal(t, []string{"merge group has no filters"}, errs[1].Errors)
}

func TestValidator_ValidateSkipsBuiltins(t *testing.T) {
	v := NewValidator(newProvider(t), nil)
	report := v.Validate(domain.TabSettingsDictionary{
		domain.TabFavorites: {ID: domain.TabFavorites, Title: "Favorites"},
		"empty":             {ID: "empty", Title: "Empty", Filters: []domain.Filter{}},
		"bad": {ID: "bad", Title: "Bad", Filters: []domain.Filter{
			domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g1"}, false),
		}},
	})
	assert.Equal(t, []string{"bad"}, report.TabIDs())
	assert.Equal(t, 1, report.CountErrors())
}
