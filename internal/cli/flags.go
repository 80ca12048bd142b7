package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	syncengine "github.com/eshaffer321/itemize-reconcile/internal/application/sync"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// PullFlags are the flags of the pull command
type PullFlags struct {
	Full   bool
	Source string
	Year   int
	Match  bool
}

// ParsePullFlags parses pull flags
func ParsePullFlags(args []string, output io.Writer) (*PullFlags, error) {
	flags := &PullFlags{}
	fs := newFlagSet("pull", output)
	fs.BoolVar(&flags.Full, "full", false, "Request the entire history instead of changes since the last pull")
	fs.StringVar(&flags.Source, "source", syncengine.SourceAll, "Source to pull: all, ledger or orders")
	fs.IntVar(&flags.Year, "year", 0, "Pull orders of a single year only")
	fs.BoolVar(&flags.Match, "match", true, "Run the matcher after a successful pull")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("pull takes no arguments, got %q", fs.Args())
	}
	return flags, nil
}

// Options converts the flags to engine pull options
func (f PullFlags) Options() syncengine.PullOptions {
	mode := syncengine.ModeIncremental
	if f.Full {
		mode = syncengine.ModeFull
	}
	return syncengine.PullOptions{
		Mode:  mode,
		Scope: syncengine.Scope{Source: f.Source, Year: f.Year},
	}
}

// PushFlags are the flags of the push command
type PushFlags struct {
	DryRun bool
}

// ParsePushFlags parses push flags
func ParsePushFlags(args []string, output io.Writer) (*PushFlags, error) {
	flags := &PushFlags{}
	fs := newFlagSet("push", output)
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Show what would be pushed without writing")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// MatchFlags are the flags of the match command
type MatchFlags struct {
	DryRun bool
}

// ParseMatchFlags parses match flags
func ParseMatchFlags(args []string, output io.Writer) (*MatchFlags, error) {
	flags := &MatchFlags{}
	fs := newFlagSet("match", output)
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Compute matches without storing them")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// DecideFlags are the flags of the decide command
type DecideFlags struct {
	ChargeID  string
	Category  string
	Splits    []model.Split
	ByItems   bool
	Overrides map[int]string
	Stage     bool
}

// ParseDecideFlags parses decide flags. The charge ID is the single argument.
func ParseDecideFlags(args []string, output io.Writer) (*DecideFlags, error) {
	flags := &DecideFlags{}
	splits := &splitList{}
	overrides := &overrideMap{}
	fs := newFlagSet("decide", output)
	fs.StringVar(&flags.Category, "category", "", "Category ID for the whole charge")
	fs.Var(splits, "split", "Split as AMOUNT:CATEGORY[:MEMO] (repeatable)")
	fs.BoolVar(&flags.ByItems, "by-items", false, "Split by the items of the matched order")
	fs.Var(overrides, "item", "Item category as INDEX=CATEGORY for -by-items (repeatable)")
	fs.BoolVar(&flags.Stage, "stage", false, "Queue the charge for the next push")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("decide needs exactly one charge ID")
	}

	flags.ChargeID = fs.Arg(0)
	flags.Splits = splits.splits
	flags.Overrides = overrides.m

	chosen := 0
	for _, set := range []bool{flags.Category != "", len(flags.Splits) > 0, flags.ByItems} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return nil, fmt.Errorf("choose exactly one of -category, -split or -by-items")
	}
	if len(flags.Overrides) > 0 && !flags.ByItems {
		return nil, fmt.Errorf("-item only applies with -by-items")
	}
	return flags, nil
}

func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}

// splitList collects -split values
type splitList struct {
	splits []model.Split
}

func (l *splitList) String() string {
	parts := make([]string, len(l.splits))
	for i, s := range l.splits {
		parts[i] = fmt.Sprintf("%s:%s", s.Amount, s.CategoryID)
	}
	return strings.Join(parts, ",")
}

func (l *splitList) Set(value string) error {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) < 2 || parts[1] == "" {
		return fmt.Errorf("split %q must be AMOUNT:CATEGORY[:MEMO]", value)
	}
	amount, err := money.Parse(parts[0])
	if err != nil {
		return err
	}
	split := model.Split{Amount: amount, CategoryID: parts[1]}
	if len(parts) == 3 {
		split.Memo = parts[2]
	}
	l.splits = append(l.splits, split)
	return nil
}

// overrideMap collects -item values
type overrideMap struct {
	m map[int]string
}

func (o *overrideMap) String() string {
	parts := make([]string, 0, len(o.m))
	for i, c := range o.m {
		parts = append(parts, fmt.Sprintf("%d=%s", i, c))
	}
	return strings.Join(parts, ",")
}

func (o *overrideMap) Set(value string) error {
	idx, category, ok := strings.Cut(value, "=")
	if !ok || category == "" {
		return fmt.Errorf("item %q must be INDEX=CATEGORY", value)
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return fmt.Errorf("item index %q is not a non-negative number", idx)
	}
	if o.m == nil {
		o.m = make(map[int]string)
	}
	o.m[i] = category
	return nil
}

func pushOptions(f *PushFlags) syncengine.PushOptions {
	return syncengine.PushOptions{DryRun: f.DryRun}
}
