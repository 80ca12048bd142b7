package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/application/review"
	syncengine "github.com/eshaffer321/itemize-reconcile/internal/application/sync"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/learner"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

const rule = "------------------------------------------------------------"

// PrintHeader prints the command header
func PrintHeader(w io.Writer, command string, dryRun bool) {
	mode := "LIVE"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "itemize %s (%s)\n", command, mode)
}

// PrintPullSummary prints what a pull fetched and wrote
func PrintPullSummary(w io.Writer, result *syncengine.PullResult) {
	fmt.Fprintln(w, rule)
	if s := result.Ledger; s != nil {
		fmt.Fprintf(w, "Ledger:  fetched=%d inserted=%d updated=%d%s\n",
			s.Fetched, s.Inserted, s.Updated, since(s.Since))
		fmt.Fprintf(w, "         categories=%d history=%d\n", result.Categories, result.History)
	}
	if s := result.Orders; s != nil {
		fmt.Fprintf(w, "Orders:  fetched=%d inserted=%d updated=%d years=%s%s\n",
			s.Fetched, s.Inserted, s.Updated, years(s.Years), since(s.Since))
	}
	if len(result.Inconsistent) > 0 {
		fmt.Fprintf(w, "\nSplits not summing to their charge (%d):\n", len(result.Inconsistent))
		for _, id := range result.Inconsistent {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	}
	if len(result.Conflicts) > 0 {
		fmt.Fprintf(w, "\nCategories dropped by the ledger, kept locally (%d):\n", len(result.Conflicts))
		for _, id := range result.Conflicts {
			fmt.Fprintf(w, "  - %s\n", id)
		}
		fmt.Fprintln(w, "Run 'itemize requeue' to push them again or 'itemize discard' to accept the ledger.")
	}
}

// PrintMatchSummary prints the outcome of a matching run
func PrintMatchSummary(w io.Writer, result *matcher.Result) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Matches: considered=%d strict=%d extended=%d unmatched=%d\n",
		result.Considered,
		result.Count(model.TierStrict),
		result.Count(model.TierExtended),
		len(result.Unmatched))

	if n := result.Duplicates(); n > 0 {
		fmt.Fprintf(w, "\nPossible duplicates (%d):\n", n)
		for _, l := range result.Links {
			if l.DuplicateCandidate {
				fmt.Fprintf(w, "  - %s -> %s\n", l.ChargeID, l.OrderID)
			}
		}
	}
	if len(result.Ambiguous) > 0 {
		fmt.Fprintf(w, "\nAmbiguous (%d):\n", len(result.Ambiguous))
		for _, a := range result.Ambiguous {
			fmt.Fprintf(w, "  - %s: %s\n", a.ChargeID, strings.Join(a.OrderIDs, ", "))
		}
	}
	if len(result.Combos) > 0 {
		fmt.Fprintf(w, "\nCharges paying one order together (%d):\n", len(result.Combos))
		for _, c := range result.Combos {
			fmt.Fprintf(w, "  - %s: %s (sum %s)\n", c.OrderID, strings.Join(c.ChargeIDs, " + "), c.Sum)
		}
	}
}

// PrintPushSummary prints the outcome of a push or its dry-run diff
func PrintPushSummary(w io.Writer, result *syncengine.PushResult) {
	fmt.Fprintln(w, rule)
	if result.DryRun {
		fmt.Fprintf(w, "Pending: %d\n", result.Pending)
		for _, d := range result.Diffs {
			fmt.Fprintf(w, "  %s  %-12s %10s  %s: %s -> %s\n",
				d.Date.Format(model.DateLayout), d.ChargeID, d.Amount, d.Payee, d.From, d.To)
		}
		return
	}

	fmt.Fprintf(w, "Summary: Pending=%d Pushed=%d Skipped=%d Failed=%d\n",
		result.Pending, result.Pushed, result.Skipped, result.Failed())
	if len(result.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range result.Failures {
			fmt.Fprintf(w, "  - %s: %s\n", f.ChargeID, f.Reason)
		}
	}
}

// PrintStatus prints a store snapshot and the latest runs
func PrintStatus(w io.Writer, stats *storage.Stats, runs []storage.SyncRun) {
	fmt.Fprintf(w, "Charges: %d (uncategorized %d)\n", stats.Charges, stats.Uncategorized)
	for _, s := range []model.SyncStatus{model.StatusSynced, model.StatusLocallyModified, model.StatusPendingPush} {
		fmt.Fprintf(w, "  %-17s %d\n", s, stats.ByStatus[s])
	}
	fmt.Fprintf(w, "  %-17s %d\n", "conflict", stats.Conflicts)
	fmt.Fprintf(w, "Orders: %d\n", stats.Orders)
	fmt.Fprintf(w, "Links: %d (strict %d, extended %d, duplicates %d)\n",
		stats.Links, stats.StrictLinks, stats.ExtendedLinks, stats.DuplicateLinks)
	fmt.Fprintf(w, "History: %d records, %d categories\n", stats.Categorizations, stats.Categories)
	fmt.Fprintf(w, "Last pull: ledger %s, orders %s\n", lastSync(stats.LedgerLastSync), lastSync(stats.OrdersLastSync))

	if len(runs) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent runs:")
	for _, r := range runs {
		fmt.Fprintf(w, "  #%-4d %-9s %-22s %s  fetched=%d written=%d failed=%d\n",
			r.ID, r.Operation, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.RecordsFetched, r.RecordsWritten, r.RecordsFailed)
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "        error: %s\n", r.ErrorMessage)
		}
	}
}

// PrintSuggestions prints what the learner suggests for one charge
func PrintSuggestions(w io.Writer, s *review.ChargeSuggestions) {
	c := s.Charge
	fmt.Fprintf(w, "%s  %s  %s  %s\n", c.ID, c.Date.Format(model.DateLayout), c.Amount, c.Payee)
	fmt.Fprintf(w, "Status: %s\n", c.Status)
	printSuggestionList(w, "Payee", s.Payee)

	if s.Order == nil {
		fmt.Fprintln(w, "Order: (no match)")
		return
	}
	tier := ""
	if s.Match != nil {
		tier = string(s.Match.Tier)
		if s.Match.DuplicateCandidate {
			tier += ", possible duplicate"
		}
	}
	fmt.Fprintf(w, "Order: %s  %s  total %s (%s)\n",
		s.Order.ID, s.Order.Date.Format(model.DateLayout), s.Order.Total, tier)
	for _, item := range s.Items {
		fmt.Fprintf(w, "  [%d] %s x%d  %s\n", item.Index, item.Item.Description, item.Item.Quantity, item.Item.LineTotal())
		printSuggestionList(w, "      ", item.Suggestions)
	}
}

func printSuggestionList(w io.Writer, label string, suggestions []learner.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintf(w, "%s: no history\n", label)
		return
	}
	parts := make([]string, len(suggestions))
	for i, s := range suggestions {
		name := s.CategoryName
		if name == "" {
			name = s.CategoryID
		}
		parts[i] = fmt.Sprintf("%s (%d)", name, s.Count)
		if s.Fuzzy {
			parts[i] += "~"
		}
	}
	fmt.Fprintf(w, "%s: %s\n", label, strings.Join(parts, ", "))
}

// PrintCharge prints a charge after a decision
func PrintCharge(w io.Writer, c *model.Charge) {
	fmt.Fprintf(w, "%s  %s  %s  [%s]\n", c.ID, c.Amount, c.Payee, c.Status)
	if c.CategoryID != "" {
		fmt.Fprintf(w, "  category: %s\n", c.CategoryID)
	}
	if c.Conflict {
		fmt.Fprintf(w, "  conflict: ledger has %s\n", remoteCategory(c.RemoteCategoryID))
	}
	for _, s := range c.Splits {
		fmt.Fprintf(w, "  split: %10s  %s", s.Amount, s.CategoryID)
		if s.Memo != "" {
			fmt.Fprintf(w, "  (%s)", s.Memo)
		}
		fmt.Fprintln(w)
	}
}

func remoteCategory(id string) string {
	if id == "" {
		return "no category"
	}
	return id
}

func since(t *time.Time) string {
	if t == nil {
		return ""
	}
	return " since=" + t.Format(model.DateLayout)
}

func years(ys []int) string {
	parts := make([]string, len(ys))
	for i, y := range ys {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, ",")
}

func lastSync(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
