package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"ragpipe/internal/types"
	"ragpipe/pkg/blob"
	cfgPkg "ragpipe/pkg/config"
	"ragpipe/pkg/extractor"
	"ragpipe/pkg/llm"
	"ragpipe/pkg/pipeline"
	"ragpipe/pkg/processor"
	"ragpipe/pkg/retry"
	"ragpipe/pkg/store"
	"ragpipe/server"
)

type flags struct {
	configPath string
	query      string
	topK       int
	ingest     bool
	serve      bool
}

func main() {
	_ = godotenv.Load()

	f := parseFlags()

	config, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		log.Fatal(err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		log.Fatal("configuration missing or invalid")
	}

	if err := run(f, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.query, "query", "", "Answer a single query and exit")
	flag.IntVar(&f.topK, "top-k", 0, "Number of chunks to retrieve")
	flag.BoolVar(&f.ingest, "ingest", false, "Run the ingestion pipeline before serving or chatting")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP server")
	flag.Parse()
	return f
}

func getProgressBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags, config *cfgPkg.Config) error {
	ctx := context.Background()

	policy := retry.Policy{
		MaxAttempts: config.Retry.MaxAttempts,
		BaseDelay:   time.Duration(config.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(config.Retry.MaxDelayMS) * time.Millisecond,
	}

	fetcher, err := blob.NewWithConfig(blob.ClientConfig{
		Endpoint:  config.Blob.Endpoint,
		Container: config.Blob.Container,
		SASToken:  config.Blob.SASToken,
		RateLimit: config.Blob.RateLimit,
		Retry:     policy,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize blob client: %v", err)
	}

	var docintel *extractor.DocIntelClient
	if config.DocIntel.Endpoint != "" {
		docintel, err = extractor.NewDocIntelClient(extractor.DocIntelConfig{
			Endpoint:     config.DocIntel.Endpoint,
			APIKey:       config.DocIntel.APIKey,
			PollInterval: time.Duration(config.DocIntel.PollInterval) * time.Millisecond,
			Retry:        policy,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize document intelligence client: %v", err)
		}
	}
	extract := extractor.NewWithConfig(extractor.ExtractorConfig{
		DocIntel: docintel,
	})

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    config.Processor.ChunkSize,
		ChunkOverlap: config.Processor.ChunkOverlap,
	})

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.LLM.EmbedModel,
		BaseURL: config.LLM.BaseURL,
		Retry:   policy,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:         config.LLM.Model,
		MaxTokens:     config.LLM.MaxTokens,
		Temperature:   config.LLM.Temperature,
		ContextBudget: config.LLM.ContextBudget,
		BaseURL:       config.LLM.BaseURL,
		Retry:         policy,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	var vectorStore types.VectorStore
	switch config.Store.Type {
	case "pgvector":
		vectorStore, err = store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString: config.Store.URL,
			TableName:  config.Store.TableName,
			VectorDim:  config.Store.VectorDim,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize vector store: %v", err)
		}
	default:
		vectorStore = store.NewMemoryStore()
	}
	defer vectorStore.Close()

	var ingestBar *progressbar.ProgressBar
	pipe := pipeline.New(pipeline.Config{
		BatchSize: config.Store.BatchSize,
		TopK:      config.Server.TopK,
		OnProgress: func(stage string) {
			if stage == "index" && ingestBar != nil {
				ingestBar.Add(1)
			}
		},
	}, fetcher, extract, chunker, embedder, vectorStore, chatEngine)

	if f.ingest {
		color.Blue("\nStarting ingestion from %s/%s\n", config.Blob.Endpoint, config.Blob.Container)
		ingestBar = getProgressBar(" Ingesting documents...")
		report, err := pipe.Ingest(ctx)
		ingestBar.Finish()
		if err != nil {
			return fmt.Errorf("ingestion failed: %v", err)
		}
		color.Green("\n✓ Fetched %d, extracted %d, indexed %d chunks\n",
			report.Fetched, report.Extracted, report.Chunks)
		for _, failure := range report.Failures {
			color.Red("  skipped %s: %s", failure.Source, failure.Reason)
		}
	}

	if f.serve {
		srv := server.New(server.Config{
			Addr: ":" + config.Server.Port,
			TopK: config.Server.TopK,
		}, pipe)
		return srv.ListenAndServe()
	}

	if f.query != "" {
		return answerOnce(ctx, pipe, f.query, f.topK)
	}

	return chatLoop(ctx, pipe, f.topK, config.Server.Streaming)
}

func answerOnce(ctx context.Context, pipe *pipeline.Pipeline, query string, topK int) error {
	answer, results, err := pipe.Answer(ctx, query, topK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		color.Yellow("No relevant chunks found for the query.")
		return nil
	}
	fmt.Println(answer)
	return nil
}

func chatLoop(ctx context.Context, pipe *pipeline.Pipeline, topK int, streaming bool) error {
	color.Cyan("\nChat with your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		if streaming {
			stream, results, err := pipe.AnswerStream(ctx, query, topK)
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			if len(results) == 0 {
				color.Yellow("No relevant chunks found for the query.")
				continue
			}

			assistantPrompt("\nAssistant: ")
			for chunk := range stream {
				fmt.Print(chunk)
			}
			fmt.Print("\n")
		} else {
			answer, results, err := pipe.Answer(ctx, query, topK)
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			if len(results) == 0 {
				color.Yellow("No relevant chunks found for the query.")
				continue
			}
			assistantPrompt("\nAssistant: %s\n", answer)
		}
	}

	return nil
}
