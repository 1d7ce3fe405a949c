package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"librarian/internal/canonical"
	"librarian/internal/config"
	"librarian/internal/domain"
	"librarian/internal/embedding"
	"librarian/internal/embedding/hash"
	"librarian/internal/embedding/openai"
	"librarian/internal/generation"
	"librarian/internal/library"
	"librarian/internal/rag"
	"librarian/internal/reconcile"
	"librarian/internal/service"
	"librarian/internal/suggest"
	"librarian/internal/tui"
	qdrantindex "librarian/internal/vectorindex/qdrant"
	sqliteindex "librarian/internal/vectorindex/sqlite"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Personal library with natural-language search",
	Long:  "Librarian catalogs your books and answers free-form questions about them using semantic search.",
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a book to the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		book := &domain.Book{
			Title:         addFlags.title,
			Author:        addFlags.author,
			ISBN:          addFlags.isbn,
			Description:   addFlags.description,
			Format:        addFlags.format,
			ReadingStatus: addFlags.status,
			Rating:        addFlags.rating,
			Notes:         addFlags.notes,
			PageCount:     addFlags.pages,
			Categories:    addFlags.categories,
			Moods:         addFlags.moods,
		}
		if book.Title == "" || book.Author == "" {
			return fmt.Errorf("--title and --author are required")
		}
		created, err := app.CreateBook(cmd.Context(), book)
		if err != nil {
			return err
		}
		fmt.Printf("Added #%d: %s by %s\n", created.ID, created.Title, created.Author)
		return nil
	},
}

var addFlags struct {
	title, author, isbn, description, format, status, notes string
	rating, pages                                           int
	categories, moods                                       []string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all books",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		books, err := app.ListBooks(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range books {
			tags := ""
			if len(b.Categories) > 0 {
				tags = "  [" + strings.Join(b.Categories, ", ") + "]"
			}
			fmt.Printf("#%d  %s by %s  (%s, %s)%s\n", b.ID, b.Title, b.Author, b.Format, b.ReadingStatus, tags)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid book id %q", args[0])
		}
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := app.DeleteBook(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Removed #%d\n", id)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the library with a natural-language query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		query := strings.Join(args, " ")
		answer, err := app.Search(cmd.Context(), query, searchFlags.k, domain.SearchFilters{
			Category:      searchFlags.category,
			Mood:          searchFlags.mood,
			Format:        searchFlags.format,
			ReadingStatus: searchFlags.status,
		})
		if err != nil {
			return err
		}
		fmt.Println(answer.Response)
		if len(answer.Books) > 0 {
			fmt.Println()
			for i, b := range answer.Books {
				fmt.Printf("%d. %s by %s  (similarity %.3f)\n", i+1, b.Title, b.Author, b.Similarity)
			}
		}
		return nil
	},
}

var searchFlags struct {
	k                              int
	category, mood, format, status string
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest categories and moods for a book",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if suggestFlags.title == "" || suggestFlags.author == "" {
			return fmt.Errorf("--title and --author are required")
		}
		s := app.SuggestTags(cmd.Context(), suggestFlags.title, suggestFlags.author, suggestFlags.description)
		if len(s.Categories) == 0 && len(s.Moods) == 0 {
			fmt.Println("No suggestions available.")
			return nil
		}
		fmt.Printf("Categories: %s\nMoods: %s\n", strings.Join(s.Categories, ", "), strings.Join(s.Moods, ", "))
		return nil
	},
}

var suggestFlags struct {
	title, author, description string
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Regenerate missing embeddings",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		repaired, err := app.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Repaired %d embeddings\n", repaired)
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		// best-effort startup reconcile; drift repair must not block the UI
		if repaired, err := app.Reconcile(cmd.Context()); err != nil {
			slog.Warn("startup reconcile failed", "error", err)
		} else if repaired > 0 {
			slog.Info("startup reconcile repaired embeddings", "count", repaired)
		}

		m := tui.New(appSearch{app}, loadedConfig.Search.DefaultK)
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

// appSearch adapts *service.Library to the TUI port.
type appSearch struct {
	lib *service.Library
}

func (a appSearch) Search(ctx context.Context, query string, k int, filters domain.SearchFilters) (domain.Answer, error) {
	return a.lib.Search(ctx, query, k, filters)
}

var loadedConfig *config.AppConfig

func buildApp() (*service.Library, func(), error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	loadedConfig = cfg

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	store, err := library.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	var canonOpts []canonical.Option
	if cfg.Vocabulary.CategorySynonyms != nil || cfg.Vocabulary.MoodSynonyms != nil {
		canonOpts = append(canonOpts, canonical.WithVocabulary(cfg.Vocabulary.CategorySynonyms, cfg.Vocabulary.MoodSynonyms))
	}
	canon := canonical.New(canonOpts...)

	dim := cfg.Embedder.Dimension
	provider := embedding.NewProvider(dim, cfg.Embedder.Disabled, func() (domain.Embedder, error) {
		switch cfg.Embedder.Type {
		case "hash", "":
			return hash.NewEmbedder(dim)
		case "openai":
			oc := cfg.Embedder.OpenAI
			if oc == nil {
				return nil, fmt.Errorf("openai embedder config missing")
			}
			return openai.NewClient(openai.Config{
				BaseURL:   oc.BaseURL,
				APIKeyEnv: oc.APIKeyEnv,
				Model:     oc.Model,
				Dimension: dim,
				Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
			})
		default:
			return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
		}
	})

	var index domain.VectorIndex
	switch cfg.VectorIndex.Type {
	case "embedded", "":
		index = sqliteindex.NewIndex(store.DB(), dim)
	case "qdrant":
		qc := cfg.VectorIndex.Qdrant
		if qc == nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		qx := qdrantindex.NewIndex(qdrantindex.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Dimension:  dim,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		})
		if err := qx.EnsureCollection(context.Background()); err != nil {
			log.Warn("qdrant collection setup failed", "error", err)
		}
		index = qx
	default:
		_ = store.Close()
		return nil, nil, fmt.Errorf("unknown vector index: %s", cfg.VectorIndex.Type)
	}

	var generator domain.Generator
	if cfg.Generation.Enabled {
		gc, err := generation.NewClient(generation.Config{
			BaseURL:     cfg.Generation.BaseURL,
			APIKeyEnv:   cfg.Generation.APIKeyEnv,
			Model:       cfg.Generation.Model,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Timeout:     time.Duration(cfg.Generation.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Warn("generation disabled", "error", err)
		} else {
			generator = gc
		}
	}

	orchestrator := rag.NewOrchestrator(provider, index, generator, log)
	suggester := suggest.New(generator, canonical.Categories, canonical.Moods, log)
	reconciler := reconcile.New(store, canon, provider, index, log,
		reconcile.WithBatchSize(cfg.Reconcile.BatchSize),
		reconcile.WithEnabled(!cfg.Reconcile.Disabled))

	lib := service.NewLibrary(store, canon, provider, index, orchestrator, suggester, reconciler, log)
	cleanup := func() { _ = store.Close() }
	return lib, cleanup, nil
}

func main() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")

	addCmd.Flags().StringVar(&addFlags.title, "title", "", "Book title")
	addCmd.Flags().StringVar(&addFlags.author, "author", "", "Book author")
	addCmd.Flags().StringVar(&addFlags.isbn, "isbn", "", "ISBN")
	addCmd.Flags().StringVar(&addFlags.description, "description", "", "Description")
	addCmd.Flags().StringVar(&addFlags.format, "format", "physical", "Format (kindle, physical, audiobook, pdf, epub)")
	addCmd.Flags().StringVar(&addFlags.status, "status", "unread", "Reading status (unread, reading, completed, dnf)")
	addCmd.Flags().StringVar(&addFlags.notes, "notes", "", "Notes")
	addCmd.Flags().IntVar(&addFlags.rating, "rating", 0, "Rating 1-5")
	addCmd.Flags().IntVar(&addFlags.pages, "pages", 0, "Page count")
	addCmd.Flags().StringSliceVar(&addFlags.categories, "categories", nil, "Category tags")
	addCmd.Flags().StringSliceVar(&addFlags.moods, "moods", nil, "Mood tags")

	searchCmd.Flags().IntVarP(&searchFlags.k, "results", "k", 10, "Maximum results")
	searchCmd.Flags().StringVar(&searchFlags.category, "category", "", "Filter by category")
	searchCmd.Flags().StringVar(&searchFlags.mood, "mood", "", "Filter by mood")
	searchCmd.Flags().StringVar(&searchFlags.format, "format", "", "Filter by format")
	searchCmd.Flags().StringVar(&searchFlags.status, "status", "", "Filter by reading status")

	suggestCmd.Flags().StringVar(&suggestFlags.title, "title", "", "Book title")
	suggestCmd.Flags().StringVar(&suggestFlags.author, "author", "", "Book author")
	suggestCmd.Flags().StringVar(&suggestFlags.description, "description", "", "Description")

	rootCmd.AddCommand(addCmd, listCmd, rmCmd, searchCmd, suggestCmd, reconcileCmd, tuiCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
