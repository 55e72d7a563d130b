package tabs

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/thushan/tabkeeper/internal/adapter/persistence"
	"github.com/thushan/tabkeeper/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PresetArgs are the named arguments a preset is expanded with
type PresetArgs map[string]string

// Preset expands into the settings of a new custom tab
type Preset struct {
	build       func(args PresetArgs) (domain.TabSettings, error)
	Name        string
	Description string
	Args        []string
}

// Expand builds the tab settings for the given arguments
func (p Preset) Expand(args PresetArgs) (domain.TabSettings, error) {
	for _, name := range p.Args {
		if strings.TrimSpace(args[name]) == "" {
			return domain.TabSettings{}, fmt.Errorf("preset %q: %w: %s", p.Name, domain.ErrMissingField, name)
		}
	}
	return p.build(args)
}

// Presets is the registry of built-in and user defined presets
type Presets struct {
	byName map[string]Preset
	mu     sync.RWMutex
}

func NewPresets() *Presets {
	p := &Presets{byName: make(map[string]Preset)}
	for _, preset := range builtinPresets() {
		p.byName[preset.Name] = preset
	}
	return p
}

func (p *Presets) Get(name string) (Preset, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	preset, ok := p.byName[name]
	return preset, ok
}

// List returns every preset sorted by name
func (p *Presets) List() []Preset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Preset, 0, len(p.byName))
	for _, preset := range p.byName {
		out = append(out, preset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Expand looks up a preset by name and expands it
func (p *Presets) Expand(name string, args PresetArgs) (domain.TabSettings, error) {
	preset, ok := p.Get(name)
	if !ok {
		return domain.TabSettings{}, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, name)
	}
	return preset.Expand(args)
}

// CreateFromPreset expands the preset and appends the resulting tab
func (s *Store) CreateFromPreset(presets *Presets, name string, args PresetArgs) (string, error) {
	settings, err := presets.Expand(name, args)
	if err != nil {
		return "", err
	}
	return s.Append(settings)
}

type presetFile struct {
	Presets []presetDefinition `yaml:"presets"`
}

type presetDefinition struct {
	Name            string           `yaml:"name"`
	Description     string           `yaml:"description"`
	Title           string           `yaml:"title"`
	CombinationMode string           `yaml:"combinationMode"`
	Args            []string         `yaml:"args"`
	Filters         []map[string]any `yaml:"filters"`
	CategoryMask    uint32           `yaml:"categoryMask"`
	AutoHide        bool             `yaml:"autoHide"`
}

// LoadFile adds the presets defined in a YAML file. String values may
// reference arguments as ${name}. A user preset replaces a built-in one of
// the same name.
func (p *Presets) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read presets %s: %w", path, err)
	}
	return p.Load(data)
}

func (p *Presets) Load(data []byte) (int, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse presets: %w", err)
	}

	loaded := make([]Preset, 0, len(file.Presets))
	for _, def := range file.Presets {
		preset, err := def.compile()
		if err != nil {
			return 0, err
		}
		loaded = append(loaded, preset)
	}

	p.mu.Lock()
	for _, preset := range loaded {
		p.byName[preset.Name] = preset
	}
	p.mu.Unlock()
	return len(loaded), nil
}

func (def presetDefinition) compile() (Preset, error) {
	if def.Name == "" {
		return Preset{}, fmt.Errorf("preset: %w: name", domain.ErrMissingField)
	}
	if len(def.Filters) == 0 {
		return Preset{}, fmt.Errorf("preset %q: %w: filters", def.Name, domain.ErrMissingField)
	}

	template, err := json.Marshal(def.Filters)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %q: %w", def.Name, err)
	}

	// argument values are only known at expansion, so only the shape is checked here
	if err := persistence.ScanFilters(template); err != nil {
		return Preset{}, fmt.Errorf("preset %q: %w", def.Name, err)
	}

	mode := domain.CombinationMode(def.CombinationMode)
	return Preset{
		Name:        def.Name,
		Description: def.Description,
		Args:        def.Args,
		build: func(args PresetArgs) (domain.TabSettings, error) {
			filters, err := decodeTemplate(template, args)
			if err != nil {
				return domain.TabSettings{}, fmt.Errorf("preset %q: %w", def.Name, err)
			}
			title := os.Expand(def.Title, func(k string) string { return args[k] })
			if title == "" {
				title = def.Name
			}
			return domain.TabSettings{
				Title:           title,
				CombinationMode: mode,
				Filters:         filters,
				CategoryMask:    domain.CategoryMask(def.CategoryMask),
				AutoHide:        def.AutoHide,
			}, nil
		},
	}, nil
}

// decodeTemplate substitutes ${arg} references and decodes the filters.
// A reference that is a whole JSON string is replaced by the raw value when
// it is numeric, so "${days}" can feed an integer field.
func decodeTemplate(template []byte, args PresetArgs) ([]domain.Filter, error) {
	text := string(template)
	for name, value := range args {
		quoted := `"${` + name + `}"`
		if _, err := strconv.Atoi(value); err == nil {
			text = strings.ReplaceAll(text, quoted, value)
		}
	}
	text = os.Expand(text, func(k string) string {
		v, ok := args[k]
		if !ok {
			return "${" + k + "}"
		}
		escaped, _ := json.MarshalToString(v)
		return strings.Trim(escaped, `"`)
	})

	var filters []domain.Filter
	if err := json.UnmarshalFromString(text, &filters); err != nil {
		return nil, err
	}
	return filters, nil
}

func builtinPresets() []Preset {
	return []Preset{
		{
			Name:        "collection",
			Description: "entries in a collection",
			Args:        []string{"collection"},
			build: func(args PresetArgs) (domain.TabSettings, error) {
				return domain.TabSettings{
					Title:   titleOr(args, args["collection"]),
					Filters: []domain.Filter{collectionFilter(args["collection"])},
				}, nil
			},
		},
		{
			Name:        "installed in collection",
			Description: "installed entries of a collection",
			Args:        []string{"collection"},
			build: func(args PresetArgs) (domain.TabSettings, error) {
				return domain.TabSettings{
					Title:           titleOr(args, "Installed "+args["collection"]),
					CombinationMode: domain.ModeAnd,
					Filters: []domain.Filter{
						collectionFilter(args["collection"]),
						domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false),
					},
				}, nil
			},
		},
		{
			Name:        "friends' games",
			Description: "entries owned by friends, comma separated; mode and|or",
			Args:        []string{"friends"},
			build: func(args PresetArgs) (domain.TabSettings, error) {
				mode := domain.CombinationMode(args["mode"])
				if !mode.Valid() {
					mode = domain.ModeOr
				}
				var friends []string
				for _, f := range strings.Split(args["friends"], ",") {
					if f = strings.TrimSpace(f); f != "" {
						friends = append(friends, f)
					}
				}
				return domain.TabSettings{
					Title: titleOr(args, "Friends' Games"),
					Filters: []domain.Filter{
						domain.MustFilter(domain.FilterFriends, domain.FriendsParams{Mode: mode, Friends: friends}, false),
					},
				}, nil
			},
		},
		{
			Name:        "recently played",
			Description: "entries played in the last N days (days, default 14)",
			build: func(args PresetArgs) (domain.TabSettings, error) {
				days := 14
				if v := args["days"]; v != "" {
					n, err := strconv.Atoi(v)
					if err != nil || n < 0 {
						return domain.TabSettings{}, fmt.Errorf("preset %q: invalid days %q", "recently played", v)
					}
					days = n
				}
				return domain.TabSettings{
					Title: titleOr(args, "Recently Played"),
					Filters: []domain.Filter{
						domain.MustFilter(domain.FilterLastPlayed, domain.DateParams{DaysAgo: &days, Condition: domain.ConditionAbove}, false),
					},
				}, nil
			},
		},
		{
			Name:        "great on deck",
			Description: "verified on deck with a store review score of at least 80%",
			build: func(args PresetArgs) (domain.TabSettings, error) {
				return domain.TabSettings{
					Title:           titleOr(args, "Great on Deck"),
					CombinationMode: domain.ModeAnd,
					Filters: []domain.Filter{
						domain.MustFilter(domain.FilterDeckCompatibility, domain.DeckCompatibilityParams{Category: 3}, false),
						domain.MustFilter(domain.FilterReviewScore, domain.ReviewScoreParams{
							ScoreType: domain.ScoreStorePercent,
							Condition: domain.ConditionAbove,
							Threshold: 80,
						}, false),
					},
				}, nil
			},
		},
	}
}

func collectionFilter(id string) domain.Filter {
	return domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: id}, false)
}

func titleOr(args PresetArgs, fallback string) string {
	if t := strings.TrimSpace(args["title"]); t != "" {
		return t
	}
	return fallback
}
