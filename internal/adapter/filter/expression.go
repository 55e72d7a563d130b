package filter

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

// ExpressionCompiler compiles CEL predicates over an entry bound as `app`,
// with the evaluation clock bound as `now`. Compiled programs, and compile
// failures, are cached by source.
type ExpressionCompiler struct {
	env      *cel.Env
	envErr   error
	programs *xsync.Map[string, compiledExpression]
}

type compiledExpression struct {
	prg cel.Program
	err error
}

func NewExpressionCompiler() *ExpressionCompiler {
	env, err := cel.NewEnv(
		cel.Variable("app", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("now", cel.TimestampType),
	)
	return &ExpressionCompiler{
		env:      env,
		envErr:   err,
		programs: xsync.NewMap[string, compiledExpression](),
	}
}

// Compile returns the program for expr or the reason it cannot be built.
// Expressions must be boolean.
func (c *ExpressionCompiler) Compile(expr string) (cel.Program, error) {
	if c.envErr != nil {
		return nil, fmt.Errorf("CEL environment error: %w", c.envErr)
	}
	compiled, _ := c.programs.LoadOrCompute(expr, func() (compiledExpression, bool) {
		prg, err := c.compile(expr)
		return compiledExpression{prg: prg, err: err}, false
	})
	return compiled.prg, compiled.err
}

func (c *ExpressionCompiler) compile(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression is empty")
	}
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	if kind := ast.OutputType().Kind(); kind != types.BoolKind && kind != types.DynKind {
		return nil, fmt.Errorf("CEL expression must be boolean, got %s", ast.OutputType())
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}
	return prg, nil
}

// Eval runs prg against the entry; evaluation errors and non-boolean
// results count as no match
func (c *ExpressionCompiler) Eval(prg cel.Program, entry *domain.CatalogEntry, now time.Time) bool {
	out, _, err := prg.Eval(map[string]any{
		"app": EntryFields(entry),
		"now": now,
	})
	if err != nil {
		return false
	}
	result, ok := out.Value().(bool)
	return ok && result
}

// EntryFields is the map an expression sees as `app`
func EntryFields(e *domain.CatalogEntry) map[string]any {
	tags := make([]int64, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = int64(t)
	}
	return map[string]any{
		"id":                   e.ID,
		"name":                 e.Name,
		"platform":             string(e.Platform),
		"card":                 e.Card,
		"tags":                 tags,
		"installed":            e.Installed,
		"isDemo":               e.IsDemo,
		"streamable":           e.Streamable,
		"sizeOnDisk":           e.SizeOnDisk,
		"deckCompatibility":    int64(e.DeckCompatibility),
		"minutesPlayed":        int64(e.MinutesPlayed),
		"metacriticScore":      int64(e.MetacriticScore),
		"reviewPercent":        int64(e.ReviewPercent),
		"achievementsUnlocked": int64(e.AchievementsUnlocked),
		"achievementsTotal":    int64(e.AchievementsTotal),
		"releaseTime":          e.ReleaseTime,
		"lastPlayed":           e.LastPlayed,
		"purchaseTime":         e.PurchaseTime,
	}
}
