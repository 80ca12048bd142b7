package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/eshaffer321/itemize-reconcile/internal/application/review"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// RunPull pulls both upstreams and, unless disabled, rematches
func RunPull(ctx context.Context, app *App, args []string, out io.Writer) error {
	flags, err := ParsePullFlags(args, out)
	if err != nil {
		return err
	}
	PrintHeader(out, "pull", false)

	if !flags.Match {
		result, err := app.Engine.Pull(ctx, flags.Options())
		if err != nil {
			return err
		}
		PrintPullSummary(out, result)
		return nil
	}

	result, err := app.Engine.Reconcile(ctx, flags.Options())
	if err != nil {
		return err
	}
	PrintPullSummary(out, result.Pull)
	if result.Match != nil {
		PrintMatchSummary(out, result.Match)
	}
	return nil
}

// RunPush writes pending-push charges to the ledger
func RunPush(ctx context.Context, app *App, args []string, out io.Writer) error {
	flags, err := ParsePushFlags(args, out)
	if err != nil {
		return err
	}
	PrintHeader(out, "push", flags.DryRun)

	result, err := app.Engine.Push(ctx, pushOptions(flags))
	if result != nil {
		PrintPushSummary(out, result)
	}
	if err != nil {
		return err
	}
	if result.Failed() > 0 {
		return fmt.Errorf("%d of %d charges failed to push", result.Failed(), result.Pending)
	}
	return nil
}

// RunMatch rematches the store without pulling
func RunMatch(ctx context.Context, app *App, args []string, out io.Writer) error {
	flags, err := ParseMatchFlags(args, out)
	if err != nil {
		return err
	}
	PrintHeader(out, "match", flags.DryRun)

	run := app.Matcher.Run
	if flags.DryRun {
		run = app.Matcher.Compute
	}
	result, err := run(ctx)
	if err != nil {
		return err
	}
	PrintMatchSummary(out, result)
	return nil
}

// RunStatus prints a store snapshot
func RunStatus(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlagSet("status", out)
	limit := fs.Int("runs", 5, "Number of recent runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats, err := app.Store.Stats(ctx)
	if err != nil {
		return err
	}
	runs, err := app.Store.ListSyncRuns(ctx, *limit)
	if err != nil {
		return err
	}
	PrintStatus(out, stats, runs)
	return nil
}

// RunSuggest prints suggestions for each charge given, or for every
// uncategorized charge when none is.
func RunSuggest(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlagSet("suggest", out)
	limit := fs.Int("limit", 20, "Maximum uncategorized charges to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids := fs.Args()
	if len(ids) == 0 {
		charges, err := app.Store.ListCharges(ctx, model.ChargeFilter{Uncategorized: true, Limit: *limit})
		if err != nil {
			return err
		}
		for _, c := range charges {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "Nothing to review.")
		return nil
	}

	for i, id := range ids {
		if i > 0 {
			fmt.Fprintln(out)
		}
		s, err := app.Review.Suggestions(ctx, id)
		if err != nil {
			return err
		}
		PrintSuggestions(out, s)
	}
	return nil
}

// RunDecide records a categorization decision for one charge
func RunDecide(ctx context.Context, app *App, args []string, out io.Writer) error {
	flags, err := ParseDecideFlags(args, out)
	if err != nil {
		return err
	}

	var charge *model.Charge
	if flags.ByItems {
		charge, err = app.Review.SplitByItems(ctx, review.SplitRequest{
			ChargeID:  flags.ChargeID,
			Overrides: flags.Overrides,
			Stage:     flags.Stage,
		})
	} else {
		charge, err = app.Review.Decide(ctx, storage.Decision{
			ChargeID:   flags.ChargeID,
			CategoryID: flags.Category,
			Splits:     flags.Splits,
			Stage:      flags.Stage,
		})
	}
	if err != nil {
		return err
	}
	PrintCharge(out, charge)
	return nil
}

// RunStage queues locally-modified charges for the next push
func RunStage(ctx context.Context, app *App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("stage needs at least one charge ID")
	}
	n, err := app.Review.Stage(ctx, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Staged %d of %d charges.\n", n, len(args))
	return nil
}

// RunDiscard drops local decisions and restores the ledger's category
func RunDiscard(ctx context.Context, app *App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("discard needs at least one charge ID")
	}
	n, err := app.Review.Discard(ctx, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Discarded %d of %d charges.\n", n, len(args))
	return nil
}

// RunRequeue stages conflicted charges, or every conflicted charge when none
// is given, so the next push writes their local category again
func RunRequeue(ctx context.Context, app *App, args []string, out io.Writer) error {
	ids := args
	if len(ids) == 0 {
		charges, err := app.Store.ListCharges(ctx, model.ChargeFilter{Conflict: true})
		if err != nil {
			return err
		}
		for _, c := range charges {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No conflicts.")
		return nil
	}

	n, err := app.Review.Requeue(ctx, ids...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Requeued %d of %d charges.\n", n, len(ids))
	return nil
}
