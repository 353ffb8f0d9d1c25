package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/dedup"
	"fileflow/internal/lifecycle"
	"fileflow/internal/store"
)

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	if p := os.Getenv("FILEFLOW_DB"); p != "" {
		return store.Open(p)
	}
	cfg, err := loadConfigQuiet()
	if err != nil {
		return nil, err
	}
	dbPath, err := dbPathFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	db.Root = cfg.Storage.Root
	return db, nil
}

// --- refresh command ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute lifecycle stages for all files",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		n, err := lifecycle.New(db).RefreshAll()
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		fmt.Printf("refreshed: %d stage changes\n", n)
		return nil
	},
}

// --- suggest command ---

var suggestArchiveAfter int

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "List cleanup suggestions for inactive files",
	RunE:  runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	life := lifecycle.New(db)
	if _, err := life.RefreshAll(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	suggestions, err := life.CleanupSuggestions(suggestArchiveAfter)
	if err != nil {
		return fmt.Errorf("suggestions: %w", err)
	}

	if len(suggestions) == 0 {
		fmt.Println("Nothing to clean up.")
		return nil
	}

	for _, s := range suggestions {
		fmt.Printf("%-8s %-8s %4dd  %s\n", s.Action, s.Stage, s.DaysUnused, s.File.CurrentPath)
	}
	return nil
}

// --- tags command ---

var tagsThreshold float64

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Inspect and clean up tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags with usage counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		tags, err := db.AllTags()
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		for _, t := range tags {
			star := " "
			if t.IsFavorite {
				star = "*"
			}
			fmt.Printf("%s %-24s %d\n", star, t.Name, t.UsageCount)
		}
		return nil
	},
}

var tagsDedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find near-duplicate tag pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		pairs, err := dedup.New(db).FindSimilarPairs(tagsThreshold)
		if err != nil {
			return fmt.Errorf("find pairs: %w", err)
		}
		if len(pairs) == 0 {
			fmt.Println("No similar tags found.")
			return nil
		}
		for _, p := range pairs {
			fmt.Printf("%.2f  %s (%d uses)  ~  %s (%d uses)\n",
				p.Similarity, p.A.Name, p.A.UsageCount, p.B.Name, p.B.UsageCount)
		}
		fmt.Println("\nMerge with: fileflow tags merge <keep> <remove>")
		return nil
	},
}

var tagsMergeCmd = &cobra.Command{
	Use:   "merge [keep] [remove]",
	Short: "Merge one tag into another by name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		keep, err := db.GetTagByName(args[0])
		if err != nil {
			return fmt.Errorf("look up %q: %w", args[0], err)
		}
		if keep == nil {
			return fmt.Errorf("no tag named %q", args[0])
		}
		remove, err := db.GetTagByName(args[1])
		if err != nil {
			return fmt.Errorf("look up %q: %w", args[1], err)
		}
		if remove == nil {
			return fmt.Errorf("no tag named %q", args[1])
		}

		if err := dedup.New(db).MergeTags(keep.ID, remove.ID); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		fmt.Printf("merged %q into %q\n", remove.Name, keep.Name)
		return nil
	},
}

// --- history command ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [file-id]",
	Short: "Show recent category moves, optionally for one file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		var transitions []store.Transition
		if len(args) == 1 {
			transitions, err = db.TransitionsForFile(args[0])
		} else {
			transitions, err = db.RecentTransitions(historyLimit)
		}
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		if len(transitions) == 0 {
			fmt.Println("No moves recorded yet.")
			return nil
		}
		for _, tr := range transitions {
			auto := ""
			if tr.IsAutomatic {
				auto = " (auto)"
			}
			fmt.Printf("%s  %s: %s -> %s  [%s]%s\n",
				tr.TriggeredAt.Format(time.DateTime),
				tr.FileName, tr.FromCategory, tr.ToCategory, tr.Reason, auto)
		}
		return nil
	},
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show file counts per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		counts, err := db.CountsByCategory()
		if err != nil {
			return fmt.Errorf("counts: %w", err)
		}
		total := 0
		for _, cat := range []store.Category{
			store.CategoryProjects, store.CategoryAreas,
			store.CategoryResources, store.CategoryArchives,
		} {
			fmt.Printf("%-10s %d\n", cat, counts[cat])
			total += counts[cat]
		}
		fmt.Printf("%-10s %d\n", "total", total)
		return nil
	},
}

func init() {
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsDedupeCmd)
	tagsCmd.AddCommand(tagsMergeCmd)

	suggestCmd.Flags().IntVar(&suggestArchiveAfter, "archive-after", 0, "Days of staleness before suggesting archive (0 = default)")
	tagsDedupeCmd.Flags().Float64VarP(&tagsThreshold, "threshold", "t", dedup.DefaultThreshold, "Similarity threshold (0..1)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of moves to show")
}
