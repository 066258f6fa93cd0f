package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"biblepace/pkg/catalog"
	"biblepace/pkg/domain"
	"biblepace/pkg/progress"
)

// now is swapped in tests.
var now = time.Now

func newBooksCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "books",
		Short: "List books grouped by testament",
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := catalog.Default().Grouped()
			if asJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), groups)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\n", g.Label)
				for _, b := range g.Books {
					fmt.Fprintf(tw, "  %d\t%s\t%d chapitres\n", b.ID, b.Name, b.ChapterCount)
				}
			}
			return tw.Flush()
		},
	}
	return c
}

func newCalcCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "calc",
		Short: "Compute remaining chapters and the daily pace",
		Example: `  pace calc --book 1 --chapter 25 --until 2026-12-31 --include-new
  pace calc --book Apocalypse --chapter 22 --lang en`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bookRef, _ := cmd.Flags().GetString("book")
			chapter, _ := cmd.Flags().GetInt("chapter")
			until, _ := cmd.Flags().GetString("until")
			includeOld, _ := cmd.Flags().GetBool("include-old")
			includeNew, _ := cmd.Flags().GetBool("include-new")
			symmetric, _ := cmd.Flags().GetBool("symmetric")
			lang, _ := cmd.Flags().GetString("lang")

			cat := catalog.Default()
			book, err := resolveBook(cat, bookRef)
			if err != nil {
				return err
			}
			if strings.TrimSpace(until) == "" {
				until = progress.EndOfYear(now())
			}
			in := domain.CalculationInput{
				BookID:     book.ID,
				TargetDate: until,
				IncludeOld: includeOld,
				IncludeNew: includeNew,
			}
			if cmd.Flags().Changed("chapter") {
				in.Chapter = progress.Chapter(chapter)
			}
			calc := progress.Calculator{Now: now, Language: progress.ParseLanguage(lang)}
			if symmetric {
				calc.Policy = progress.PolicySymmetric
			}
			res, err := calc.Calculate(in, cat)
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printResult(cmd.OutOrStdout(), book, *in.Chapter, res)
		},
	}
	c.Flags().String("book", "", "book id or name (e.g. 1 or Genèse)")
	c.Flags().Int("chapter", 0, "chapter to read next")
	c.Flags().String("until", "", "deadline as YYYY-MM-DD (default: December 31 of this year)")
	c.Flags().Bool("include-old", false, "count the Old Testament when reading a New Testament book")
	c.Flags().Bool("include-new", false, "count the New Testament when reading an Old Testament book")
	c.Flags().Bool("symmetric", false, "read --include-old literally for New Testament books")
	c.Flags().String("lang", "fr", "display language for the deadline (fr or en)")
	return c
}

// resolveBook accepts a numeric id or a case-insensitive book name. An empty
// reference yields the zero book so the calculator reports the missing
// selection.
func resolveBook(cat *catalog.Catalog, ref string) (domain.Book, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Book{}, nil
	}
	var id int
	if _, err := fmt.Sscanf(ref, "%d", &id); err == nil && fmt.Sprint(id) == ref {
		if b, ok := cat.Find(id); ok {
			return b.Book, nil
		}
		return domain.Book{ID: id}, nil
	}
	for _, b := range cat.Cumulative() {
		if strings.EqualFold(b.Name, ref) {
			return b.Book, nil
		}
	}
	return domain.Book{}, fmt.Errorf("unknown book %q", ref)
}

func printResult(w io.Writer, book domain.Book, chapter int, res domain.CalculationResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Position\t%s %d\n", book.Name, chapter)
	fmt.Fprintf(tw, "Échéance\t%s (%d jours)\n", res.EndDate, res.DaysLeft)
	fmt.Fprintf(tw, "Restant\t%d chapitres (AT %d, NT %d)\n", res.RemainingInBible, res.RemainingInOld, res.RemainingInNew)
	fmt.Fprintf(tw, "Objectif quotidien\t%s\n", progress.DailyGoalLabel(res, ""))
	fmt.Fprintf(tw, "  Ancien Testament\t%s\n", progress.DailyGoalLabel(res, domain.CollectionOld))
	fmt.Fprintf(tw, "  Nouveau Testament\t%s\n", progress.DailyGoalLabel(res, domain.CollectionNew))
	return tw.Flush()
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
