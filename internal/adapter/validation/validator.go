package validation

import (
	"fmt"
	"regexp"

	"github.com/thushan/tabkeeper/internal/adapter/filter"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
)

// Validator finds filters whose references have gone stale or whose
// parameters cannot be evaluated. It only reports problems a user can fix
// per filter; structural damage is rejected when tabs are decoded.
type Validator struct {
	provider ports.CatalogProvider
	exprs    *filter.ExpressionCompiler
}

func NewValidator(provider ports.CatalogProvider, exprs *filter.ExpressionCompiler) *Validator {
	if exprs == nil {
		exprs = filter.NewExpressionCompiler()
	}
	return &Validator{provider: provider, exprs: exprs}
}

// Validate reports the erroring filters of every custom tab. Built-in tabs
// have nothing to validate.
func (v *Validator) Validate(tabs domain.TabSettingsDictionary) domain.ValidationReport {
	report := make(domain.ValidationReport)
	for id, spec := range tabs {
		if !spec.IsCustom() {
			continue
		}
		if errs := v.ValidateFilters(spec.Filters); len(errs) > 0 {
			report[id] = errs
		}
	}
	return report
}

// ValidateFilters returns one FilterError per erroring filter, in list order
func (v *Validator) ValidateFilters(filters []domain.Filter) []domain.FilterError {
	var out []domain.FilterError
	for i, f := range filters {
		fe := v.check(f)
		if len(fe.Errors) == 0 && len(fe.Nested) == 0 {
			continue
		}
		fe.FilterIndex = i
		out = append(out, fe)
	}
	return out
}

func (v *Validator) check(f domain.Filter) domain.FilterError {
	var fe domain.FilterError
	add := func(format string, args ...any) {
		fe.Errors = append(fe.Errors, fmt.Sprintf(format, args...))
	}

	switch p := f.Params.(type) {
	case domain.CollectionParams:
		switch {
		case p.Collection == "":
			add("no collection selected")
		default:
			if _, ok := v.provider.Grouping(p.Collection); !ok {
				add("collection %q no longer exists", p.Collection)
			}
		}

	case domain.RegexParams:
		if p.Regex == "" {
			add("regex is empty")
		} else if _, err := regexp.Compile("(?i)" + p.Regex); err != nil {
			add("invalid regex: %v", err)
		}

	case domain.FriendsParams:
		checkMode(p.Mode, add)
		if len(p.Friends) == 0 {
			add("no friends selected")
		}
		for _, c := range p.Friends {
			if !v.provider.ContactExists(c) {
				add("friend %q no longer exists", c)
			}
		}

	case domain.TagsParams:
		checkMode(p.Mode, add)
		if len(p.Tags) == 0 {
			add("no tags selected")
		}
		for _, t := range p.Tags {
			if !v.provider.TagExists(t) {
				add("tag %d no longer exists", t)
			}
		}

	case domain.ListParams:
		for _, id := range p.Games {
			if _, ok := v.provider.Entry(id); !ok {
				add("entry %q no longer exists", id)
			}
		}

	case domain.MergeParams:
		checkMode(p.Mode, add)
		if len(p.Filters) == 0 {
			add("merge group has no filters")
		}
		fe.Nested = v.ValidateFilters(p.Filters)

	case domain.PlatformParams:
		if p.Platform != domain.PlatformSteam && p.Platform != domain.PlatformNonSteam {
			add("unknown platform %q", p.Platform)
		}

	case domain.DeckCompatibilityParams:
		if p.Category < 0 || p.Category > 3 {
			add("deck compatibility category %d out of range", p.Category)
		}

	case domain.ReviewScoreParams:
		checkCondition(p.Condition, add)
		if p.ScoreType != domain.ScoreMetacritic && p.ScoreType != domain.ScoreStorePercent {
			add("unknown score type %q", p.ScoreType)
		}
		if p.Threshold < 0 || p.Threshold > 100 {
			add("score threshold %d out of range", p.Threshold)
		}

	case domain.TimePlayedParams:
		checkCondition(p.Condition, add)
		switch p.Units {
		case domain.UnitMinutes, domain.UnitHours, domain.UnitDays:
		default:
			add("unknown time unit %q", p.Units)
		}
		if p.TimeThreshold < 0 {
			add("time threshold %d is negative", p.TimeThreshold)
		} else if _, ok := p.Units.Minutes(p.TimeThreshold); !ok {
			add("time threshold %d %s is too large", p.TimeThreshold, p.Units)
		}

	case domain.SizeOnDiskParams:
		checkCondition(p.Condition, add)
		if _, err := filter.ParseSize(p.Size); err != nil {
			add("invalid size %q", p.Size)
		}

	case domain.DateParams:
		checkCondition(p.Condition, add)
		if err := filter.CheckDate(p); err != nil {
			add("invalid date: %v", err)
		}

	case domain.AchievementsParams:
		checkCondition(p.Condition, add)
		switch p.ThresholdType {
		case domain.ThresholdCount:
			if p.Threshold < 0 {
				add("achievement threshold %d is negative", p.Threshold)
			}
		case domain.ThresholdPercent:
			if p.Threshold < 0 || p.Threshold > 100 {
				add("achievement percentage %d out of range", p.Threshold)
			}
		default:
			add("unknown threshold type %q", p.ThresholdType)
		}

	case domain.RemovableMediaParams:
		// an unavailable plugin only hides the tab
		if p.Card != "" && v.provider.RemovableMediaAvailable() && !v.provider.CardExists(p.Card) {
			add("card %q no longer exists", p.Card)
		}

	case domain.ExpressionParams:
		if _, err := v.exprs.Compile(p.Expression); err != nil {
			add("invalid expression: %v", err)
		}

	case domain.InstalledParams, domain.DemoParams, domain.StreamableParams:

	default:
		add("unsupported filter %q", f.Type)
	}
	return fe
}

func checkMode(m domain.CombinationMode, add func(string, ...any)) {
	if !m.Valid() {
		add("unknown combination mode %q", m)
	}
}

func checkCondition(c domain.Condition, add func(string, ...any)) {
	if !c.Valid() {
		add("unknown condition %q", c)
	}
}
