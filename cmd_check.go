package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/adapter/persistence"
	"github.com/thushan/tabkeeper/internal/adapter/validation"
	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/pkg/format"
)

var errCheckFailed = errors.New("tab check failed")

var (
	checkFile string
	checkJSON bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check saved tabs for structural and filter errors",
		Long: `Check decodes the saved tab dictionary and reports structural problems.
With --catalog every custom tab's filters are also validated against the
catalog snapshot.`,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "check an exported tabs file instead of the database")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as json")
}

type checkResult struct {
	Report    domain.ValidationReport `json:"errors,omitempty"`
	Titles    map[string]string       `json:"-"`
	Structure string                  `json:"structure,omitempty"`
	Tabs      int                     `json:"tabs"`
	Custom    int                     `json:"custom"`
	Hidden    int                     `json:"hidden"`
	Validated bool                    `json:"validated"`
}

func (r checkResult) failed() bool {
	return r.Structure != "" || !r.Report.IsEmpty()
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	provider, err := loadProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	var raw []byte
	if checkFile != "" {
		if raw, err = os.ReadFile(checkFile); err != nil {
			return err
		}
	} else {
		store, err := openStore(cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()
		if raw, err = rawTabs(ctx, store); err != nil {
			return err
		}
		if err := seedAuxiliary(ctx, store, provider); err != nil {
			return err
		}
	}

	result := inspectTabs(raw, provider, catalogFile != "")
	if err := renderCheck(cmd.OutOrStdout(), result, checkJSON); err != nil {
		return err
	}
	if result.failed() {
		return errCheckFailed
	}
	return nil
}

// inspectTabs decodes raw and, when validate is set, checks every custom
// tab against the provider
func inspectTabs(raw []byte, provider *catalog.MemoryProvider, validate bool) checkResult {
	var result checkResult
	dict, err := persistence.DecodeTabs(raw)
	if err != nil {
		result.Structure = err.Error()
		return result
	}

	result.Tabs = len(dict)
	result.Titles = make(map[string]string, len(dict))
	for id, spec := range dict {
		result.Titles[id] = spec.Title
		if spec.IsCustom() {
			result.Custom++
		}
		if spec.IsHidden() {
			result.Hidden++
		}
	}

	if validate {
		result.Validated = true
		result.Report = validation.NewValidator(provider, nil).Validate(dict)
	}
	return result
}

func renderCheck(out io.Writer, result checkResult, asJSON bool) error {
	if asJSON {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(raw))
		return err
	}

	if result.Structure != "" {
		_, err := fmt.Fprintln(out, pterm.Red("✗ ")+result.Structure)
		return err
	}

	fmt.Fprintf(out, "%d tabs, %d custom, %d hidden\n", result.Tabs, result.Custom, result.Hidden)
	if !result.Validated {
		_, err := fmt.Fprintln(out, pterm.Green("✓ ")+"structure ok, pass --catalog to validate filters")
		return err
	}
	if result.Report.IsEmpty() {
		_, err := fmt.Fprintln(out, pterm.Green("✓ ")+"all filters valid")
		return err
	}

	data := pterm.TableData{{"Tab", "Id", "Filter", "Errors"}}
	ids := result.Report.TabIDs()
	slices.Sort(ids)
	for _, id := range ids {
		for _, fe := range result.Report[id] {
			data = append(data, []string{result.Titles[id], id, fmt.Sprint(fe.FilterIndex), strings.Join(flattenErrors(fe), "; ")})
		}
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", table)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%d errors, %s of custom tabs need repair\n",
		result.Report.CountErrors(), format.Ratio(len(ids), result.Custom))
	return err
}

func flattenErrors(fe domain.FilterError) []string {
	out := slices.Clone(fe.Errors)
	for _, nested := range fe.Nested {
		for _, msg := range flattenErrors(nested) {
			out = append(out, fmt.Sprintf("[%d] %s", nested.FilterIndex, msg))
		}
	}
	return out
}

func openStore(c config.StorageConfig) (*persistence.Store, error) {
	backend, err := persistence.OpenBadger(persistence.BadgerConfig{
		Path:           c.Path,
		InMemory:       c.InMemory,
		SyncWrites:     c.SyncWrites,
		GCDiscardRatio: c.GCDiscardRatio,
	})
	if err != nil {
		return nil, err
	}
	return persistence.NewStore(backend), nil
}

// rawTabs reads the stored dictionary without decoding it, a missing entry
// reads as the defaults
func rawTabs(ctx context.Context, store *persistence.Store) ([]byte, error) {
	raw, err := store.GetTabsRaw(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return persistence.EncodeTabs(domain.DefaultTabs(), false)
	}
	return raw, err
}

func seedAuxiliary(ctx context.Context, store *persistence.Store, provider *catalog.MemoryProvider) error {
	tags, err := store.GetTags(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	contacts, err := store.GetContacts(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	owned, err := store.GetOwnedEntries(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	provider.SetTags(tags...)
	provider.SetContacts(contacts...)
	for contact, entries := range owned {
		provider.SetOwned(contact, entries...)
	}
	return nil
}
