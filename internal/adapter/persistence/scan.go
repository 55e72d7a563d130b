package persistence

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

var errInvalidJSON = errors.New("invalid json")

// ScanTabs checks the structure of a persisted tab dictionary before it is
// decoded: every tab needs an id and title, and every filter node a known
// type and a params object. Anything else is left to typed decoding and
// validation.
func ScanTabs(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return domain.NewCorruptConfigError("", errInvalidJSON)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return domain.NewCorruptConfigError("", fmt.Errorf("expected an object of tabs, got %s", root.Type))
	}

	var scanErr error
	root.ForEach(func(key, tab gjson.Result) bool {
		scanErr = scanTab(key.String(), tab)
		return scanErr == nil
	})
	return scanErr
}

func scanTab(key string, tab gjson.Result) error {
	if !tab.IsObject() {
		return domain.NewCorruptConfigError(key, fmt.Errorf("expected an object, got %s", tab.Type))
	}
	for _, field := range []string{"id", "title"} {
		if v := tab.Get(field); v.Type != gjson.String || v.String() == "" {
			return domain.NewCorruptConfigError(key, fmt.Errorf("%w: %s", domain.ErrMissingField, field))
		}
	}
	if id := tab.Get("id").String(); id != key {
		return domain.NewCorruptConfigError(key, fmt.Errorf("id %q does not match key", id))
	}
	if p := tab.Get("position"); p.Exists() && p.Type != gjson.Number {
		return domain.NewCorruptConfigError(key, fmt.Errorf("position is %s", p.Type))
	}

	filters := tab.Get("filters")
	if !filters.Exists() || filters.Type == gjson.Null {
		return nil
	}
	if err := scanFilterList(filters); err != nil {
		return domain.NewCorruptConfigError(key, err)
	}
	return nil
}

// ScanFilters checks a JSON filter list the same way ScanTabs checks the
// filters of a tab
func ScanFilters(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return errInvalidJSON
	}
	return scanFilterList(gjson.ParseBytes(raw))
}

func scanFilterList(list gjson.Result) error {
	if !list.IsArray() {
		return fmt.Errorf("filters: expected an array, got %s", list.Type)
	}
	for i, f := range list.Array() {
		if err := scanFilter(f); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return nil
}

func scanFilter(f gjson.Result) error {
	if !f.IsObject() {
		return fmt.Errorf("expected an object, got %s", f.Type)
	}
	t := f.Get("type")
	if !t.Exists() || t.String() == "" {
		return &domain.FilterParamError{Field: "type", Err: domain.ErrMissingField}
	}
	ft := domain.FilterType(t.String())
	if !domain.IsKnownFilterType(ft) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownFilterType, ft)
	}
	params := f.Get("params")
	if !params.IsObject() {
		return &domain.FilterParamError{Type: ft, Field: "params", Err: domain.ErrMissingField}
	}
	if ft != domain.FilterMerge {
		return nil
	}

	children := params.Get("filters")
	if !children.Exists() {
		return &domain.FilterParamError{Type: ft, Field: "filters", Err: domain.ErrMissingField}
	}
	return scanFilterList(children)
}
