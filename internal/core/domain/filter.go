package domain

import (
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Filter is one node of a filter tree. Params always matches Type; use
// NewFilter or the typed helpers rather than building the struct by hand
// when the params come from outside.
type Filter struct {
	Params   FilterParams
	Type     FilterType
	Inverted bool
}

// filterKind is the static, per-variant metadata
type filterKind struct {
	newParams  func() FilterParams
	invertible bool
}

var filterKinds = map[FilterType]filterKind{
	FilterCollection:        {func() FilterParams { return &CollectionParams{} }, true},
	FilterInstalled:         {func() FilterParams { return &InstalledParams{} }, true},
	FilterRegex:             {func() FilterParams { return &RegexParams{} }, true},
	FilterFriends:           {func() FilterParams { return &FriendsParams{} }, true},
	FilterTags:              {func() FilterParams { return &TagsParams{} }, true},
	FilterWhitelist:         {func() FilterParams { return &ListParams{} }, false},
	FilterBlacklist:         {func() FilterParams { return &ListParams{} }, false},
	FilterMerge:             {func() FilterParams { return &MergeParams{} }, true},
	FilterPlatform:          {func() FilterParams { return &PlatformParams{} }, true},
	FilterDeckCompatibility: {func() FilterParams { return &DeckCompatibilityParams{} }, true},
	FilterReviewScore:       {func() FilterParams { return &ReviewScoreParams{} }, true},
	FilterTimePlayed:        {func() FilterParams { return &TimePlayedParams{} }, true},
	FilterSizeOnDisk:        {func() FilterParams { return &SizeOnDiskParams{} }, true},
	FilterReleaseDate:       {func() FilterParams { return &DateParams{} }, true},
	FilterLastPlayed:        {func() FilterParams { return &DateParams{} }, true},
	FilterPurchaseDate:      {func() FilterParams { return &DateParams{} }, true},
	FilterAchievements:      {func() FilterParams { return &AchievementsParams{} }, true},
	FilterDemo:              {func() FilterParams { return &DemoParams{} }, false},
	FilterStreamable:        {func() FilterParams { return &StreamableParams{} }, false},
	FilterRemovableMedia:    {func() FilterParams { return &RemovableMediaParams{} }, true},
	FilterExpression:        {func() FilterParams { return &ExpressionParams{} }, true},
}

// IsKnownFilterType reports whether t is a registered variant
func IsKnownFilterType(t FilterType) bool {
	_, ok := filterKinds[t]
	return ok
}

// IsInvertible reports whether the variant honours the inverted flag
func IsInvertible(t FilterType) bool {
	return filterKinds[t].invertible
}

// NewFilter builds a filter after checking the params belong to the variant.
// Params are deep-copied so the result shares nothing with the caller.
func NewFilter(t FilterType, params FilterParams, inverted bool) (Filter, error) {
	kind, ok := filterKinds[t]
	if !ok {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilterType, t)
	}
	if params == nil {
		return Filter{}, &FilterParamError{Type: t, Field: "params", Err: ErrMissingField}
	}
	want := reflect.TypeOf(kind.newParams()).Elem()
	if reflect.TypeOf(params) != want {
		return Filter{}, &FilterParamError{Type: t, Field: "params", Err: fmt.Errorf("expected %s, got %T", want.Name(), params)}
	}
	if !kind.invertible {
		inverted = false
	}
	return Filter{Type: t, Params: params.cloneParams(), Inverted: inverted}, nil
}

// MustFilter is NewFilter for static definitions such as presets and tests
func MustFilter(t FilterType, params FilterParams, inverted bool) Filter {
	f, err := NewFilter(t, params, inverted)
	if err != nil {
		panic(err)
	}
	return f
}

// NewMerge builds a merge node. Children are deep-copied, so a child passed
// here can never end up linked into two places of a tree.
func NewMerge(mode CombinationMode, inverted bool, children ...Filter) Filter {
	return Filter{
		Type:     FilterMerge,
		Params:   MergeParams{Mode: mode, Filters: CloneFilters(children)},
		Inverted: inverted,
	}
}

// Clone returns a deep copy of the filter and all its descendants
func (f Filter) Clone() Filter {
	if f.Params != nil {
		f.Params = f.Params.cloneParams()
	}
	return f
}

// CloneFilters deep-copies a filter list, preserving nil-ness
func CloneFilters(filters []Filter) []Filter {
	if filters == nil {
		return nil
	}
	out := make([]Filter, len(filters))
	for i := range filters {
		out[i] = filters[i].Clone()
	}
	return out
}

// Children returns the child filters of a merge node, nil otherwise
func (f Filter) Children() []Filter {
	if mp, ok := f.Params.(MergeParams); ok {
		return mp.Filters
	}
	return nil
}

// Walk visits every node of the filter trees depth first. path holds the
// indices from the root list down to the node.
func Walk(filters []Filter, fn func(path []int, f Filter)) {
	walk(nil, filters, fn)
}

func walk(prefix []int, filters []Filter, fn func(path []int, f Filter)) {
	for i, f := range filters {
		path := append(append([]int(nil), prefix...), i)
		fn(path, f)
		if children := f.Children(); len(children) > 0 {
			walk(path, children, fn)
		}
	}
}

// ReferencedGroupings collects the grouping ids referenced by collection filters
func ReferencedGroupings(filters []Filter) []string {
	seen := make(map[string]struct{})
	var out []string
	Walk(filters, func(_ []int, f Filter) {
		if cp, ok := f.Params.(CollectionParams); ok && cp.Collection != "" {
			if _, dup := seen[cp.Collection]; !dup {
				seen[cp.Collection] = struct{}{}
				out = append(out, cp.Collection)
			}
		}
	})
	return out
}

// HasFilterType reports whether any node of the trees has the given type
func HasFilterType(filters []Filter, t FilterType) bool {
	found := false
	Walk(filters, func(_ []int, f Filter) {
		if f.Type == t {
			found = true
		}
	})
	return found
}

type filterJSON struct {
	Type     FilterType          `json:"type"`
	Params   jsoniter.RawMessage `json:"params"`
	Inverted *bool               `json:"inverted,omitempty"`
}

func (f Filter) MarshalJSON() ([]byte, error) {
	params, err := json.Marshal(f.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", f.Type, err)
	}
	out := filterJSON{Type: f.Type, Params: params}
	if IsInvertible(f.Type) {
		inv := f.Inverted
		out.Inverted = &inv
	}
	return json.Marshal(out)
}

// UnmarshalJSON dispatches on type. Unknown types and missing params are
// structural errors, not something validation can repair.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw filterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		return &FilterParamError{Field: "type", Err: ErrMissingField}
	}
	kind, ok := filterKinds[raw.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilterType, raw.Type)
	}
	if len(raw.Params) == 0 || string(raw.Params) == "null" {
		return &FilterParamError{Type: raw.Type, Field: "params", Err: ErrMissingField}
	}

	ptr := kind.newParams()
	if err := json.Unmarshal(raw.Params, ptr); err != nil {
		return &FilterParamError{Type: raw.Type, Field: "params", Err: err}
	}

	f.Type = raw.Type
	f.Params = reflect.ValueOf(ptr).Elem().Interface().(FilterParams)
	f.Inverted = kind.invertible && raw.Inverted != nil && *raw.Inverted
	return nil
}
