// Command filingrag is the CLI front end: `scrape` downloads (or fabricates)
// 10-K filings, `rag` chunks, embeds, and indexes them and answers questions
// against the index.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"filingrag/internal/answer"
	"filingrag/internal/chunker"
	"filingrag/internal/config"
	"filingrag/internal/edgar"
	"filingrag/internal/index"
	"filingrag/internal/pipeline"
	"filingrag/internal/registry"
	"filingrag/internal/tokenizer"
)

func main() {
	godotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scrape":
		err = runScrape(cfg, log, os.Args[2:])
	case "rag":
		err = runRAG(cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: filingrag <command> [flags]

commands:
  scrape   download SEC 10-K filings (or generate demo filings)
  rag      process filings into the index and answer questions

examples:
  filingrag scrape -demo
  filingrag scrape -companies GOOGL,MSFT -years 2022,2023
  filingrag rag -process -input-dir sec_filings
  filingrag rag -query "What are the main revenue sources?"
  filingrag rag`)
}

func runScrape(cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	companies := fs.String("companies", "GOOGL,MSFT,NVDA", "comma-separated ticker symbols")
	years := fs.String("years", "2022,2023,2024", "comma-separated fiscal years")
	outDir := fs.String("out", cfg.FilingsDir, "output directory for filings")
	demo := fs.Bool("demo", false, "generate synthetic demo filings instead of downloading")
	fs.Parse(args)

	if *demo {
		created, err := edgar.CreateDemoFilings(*outDir)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d demo filings in %s\n", len(created), *outDir)
		return nil
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return err
	}

	client := edgar.NewClient(cfg.EdgarUserAgent, log)
	saved, err := client.Scrape(context.Background(), reg, splitList(*companies), splitList(*years), *outDir)
	if err != nil {
		return err
	}
	fmt.Printf("Downloaded %d filings to %s\n", len(saved), *outDir)
	return nil
}

func runRAG(cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("rag", flag.ExitOnError)
	inputDir := fs.String("input-dir", cfg.FilingsDir, "directory containing HTML filings")
	process := fs.Bool("process", false, "chunk, embed, and index the input directory")
	query := fs.String("query", "", "single question to answer")
	topK := fs.Int("top-k", 5, "number of chunks to retrieve")
	company := fs.String("company", "", "restrict retrieval to one ticker symbol")
	year := fs.String("year", "", "restrict retrieval to one fiscal year")
	strategy := fs.String("strategy", cfg.ChunkStrategy, "chunking strategy: structure or flat")
	fs.Parse(args)

	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required for rag mode")
	}

	ctx := context.Background()

	store, err := index.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	answers, err := answer.NewClient(ctx, cfg.GeminiAPIKey, cfg.GenerativeName, cfg.EmbeddingName, log)
	if err != nil {
		return err
	}
	defer answers.Close()

	if *process {
		splitter := chunker.New(newTokenizer(log), chunker.Config{
			ChunkSize:    cfg.DefaultChunkSize,
			ChunkOverlap: cfg.DefaultChunkOverlap,
			Strategy:     *strategy,
		})
		worker := pipeline.NewWorker(splitter, answers, store, log)

		job := pipeline.NewJob(*inputDir)
		worker.Process(ctx, job)
		snap := job.Snapshot()
		fmt.Printf("Processed %d/%d filings (%d chunks indexed)\n",
			snap.Progress.FilesProcessed, snap.Progress.TotalFiles, snap.Progress.ChunksIndexed)
		for _, e := range snap.Progress.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		if snap.Status == pipeline.StatusFailed {
			return fmt.Errorf("processing failed")
		}
	}

	if *query != "" {
		return ask(ctx, store, answers, *query, *topK, *company, *year)
	}
	if *process {
		return nil
	}

	// Interactive mode.
	fmt.Println("Enter questions (blank line to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			break
		}
		if err := ask(ctx, store, answers, q, *topK, *company, *year); err != nil {
			fmt.Printf("error: %s\n", err)
		}
	}
	return scanner.Err()
}

func ask(ctx context.Context, store *index.Store, answers *answer.Client, question string, topK int, company, year string) error {
	vector, err := answers.EmbedQuery(ctx, question)
	if err != nil {
		return err
	}
	matches, err := store.Search(ctx, vector, topK, strings.ToUpper(company), year)
	if err != nil {
		return err
	}
	result, err := answers.Answer(ctx, question, matches)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			srcCompany := src.Company
			if srcCompany == "" {
				srcCompany = "unknown"
			}
			srcYear := src.Year
			if srcYear == "" {
				srcYear = "unknown"
			}
			fmt.Printf("  - %s %s, %s (score %.3f)\n", srcCompany, srcYear, src.SectionTitle, src.Score)
		}
	}
	return nil
}

func newTokenizer(log *slog.Logger) tokenizer.Tokenizer {
	tok, err := tokenizer.NewTiktoken()
	if err != nil {
		log.Warn("tiktoken unavailable, using word-count estimator", "error", err)
		return tokenizer.Estimator{}
	}
	return tok
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
