// Command wfassist-demo runs the workflow generation pipeline once and prints each stage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/config"
	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/index"
	logpkg "github.com/kailas-cloud/wfassist/internal/logger"
	"github.com/kailas-cloud/wfassist/internal/repository/corpus"
	openaiLLM "github.com/kailas-cloud/wfassist/internal/transport/openai"
	"github.com/kailas-cloud/wfassist/internal/usecase/check"
	"github.com/kailas-cloud/wfassist/internal/usecase/generate"
	"github.com/kailas-cloud/wfassist/internal/usecase/retrieve"
	"github.com/kailas-cloud/wfassist/internal/version"
)

const defaultQuery = "send notification email when a task takes longer than 2 hours"

const rule = "================================================================================"

func main() {
	_ = godotenv.Load()

	var (
		configEnv    = flag.String("config-env", config.GetEnv(), "Config environment (reads config/<env>.yaml)")
		query        = flag.String("query", defaultQuery, "Natural-language workflow request")
		k            = flag.Int("k", 0, "Number of examples to retrieve (default: retrieval.default_k)")
		examplesPath = flag.String("examples", "", "Override corpus.examples_path")
		schemaPath   = flag.String("schema", "", "Override corpus.schema_path")
		showVersion  = flag.Bool("version", false, "Print build information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("wfassist-demo", version.String())
		return
	}

	if err := run(*configEnv, *query, *k, *examplesPath, *schemaPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(env, query string, k int, examplesPath, schemaPath string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if examplesPath != "" {
		cfg.Corpus.ExamplesPath = examplesPath
	}
	if schemaPath != "" {
		cfg.Corpus.SchemaPath = schemaPath
	}
	if k == 0 {
		k = cfg.Retrieval.DefaultK
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	section("STEP 1: Load schema and examples")
	repo := corpus.New(cfg.Corpus.ExamplesPath, cfg.Corpus.SchemaPath, true, logger)
	checkSvc := check.New(repo, logger)
	if err := checkSvc.Reload(ctx); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	sch, err := checkSvc.Schema()
	if err != nil {
		return err
	}
	fmt.Printf("Schema:\n%s\n", sch.Raw().Pretty())

	section("STEP 2: Build retrieval index")
	limits := request.Limits{MaxK: cfg.Retrieval.MaxK, MaxQueryLength: cfg.Retrieval.MaxQueryLength}
	retrieveSvc := retrieve.New(index.NewHolder(), repo, limits, logger)
	stats, err := retrieveSvc.Reload(ctx)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	fmt.Printf("Indexed examples: %d\nVocabulary size: %d\n", stats.Documents, stats.VocabularySize)

	section("STEP 3-6: Retrieve, prompt, complete, validate")
	req, err := request.New(query, k, 0, limits)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	genSvc := generate.New(retrieveSvc, checkSvc, buildCompleter(cfg, logger), logger)
	g, err := genSvc.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	fmt.Printf("Query: %q\n\nRetrieved examples:\n", g.Query)
	for i, m := range g.Matches {
		fmt.Printf("  %d. ID: %s | Score: %.4f | Title: %s\n", i+1, m.Example.ID(), m.Score, m.Example.Title())
	}

	fmt.Printf("\nPrompt (%d characters), first 500:\n%s\n", len(g.Prompt), preview(g.Prompt, 500))

	if g.Completion.Offline {
		fmt.Printf("\nOFFLINE mode: %s\n", g.Completion.Note)
	}
	fmt.Printf("\nModel response (%s/%s):\n%s\n", g.Completion.Provider, g.Completion.Model, g.Completion.Text)

	section("Validation report")
	if g.ParseError != nil {
		fmt.Printf("Parse error: %v\n", g.ParseError)
	} else {
		fmt.Printf("Parsed output:\n%s\n\n", g.Output.Pretty())
	}
	if g.Report.Valid {
		fmt.Println("Status: VALID")
	} else {
		fmt.Println("Status: INVALID")
		for _, msg := range g.Report.Messages() {
			fmt.Printf("  - %s\n", msg)
		}
	}
	fmt.Printf("Coverage: %.1f%% of required fields present\n", g.Report.Coverage*100)
	fmt.Printf("Pipeline took %s\n", g.Duration.Round(time.Millisecond))
	return nil
}

func buildCompleter(cfg config.Config, logger *zap.Logger) domain.Completer {
	if cfg.LLM.Provider == "offline" {
		return domain.NewOfflineCompleter("")
	}
	return openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Provider:    cfg.LLM.Provider,
		Logger:      logger,
	})
}

func section(title string) {
	fmt.Printf("\n%s\n  %s\n%s\n", rule, title, rule)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " \n") + "..."
}
