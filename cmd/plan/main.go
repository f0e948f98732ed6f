// Command plan asks a running worker for a retrieval plan and prints it as
// JSON. With -profiled it announces newly profiled documents instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/config"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/resilience"
	"github.com/kirillkom/hybrid-retrieval-router/internal/observability/logging"
)

type planRequester interface {
	RequestPlan(ctx context.Context, query domain.Query, k int) (*domain.QueryPlan, error)
}

func main() {
	lang := flag.String("lang", "auto", "query language: auto, en, ko, ja")
	k := flag.Int("k", 0, "number of chunks (0 uses the worker default)")
	forceVision := flag.Bool("vision", false, "force the vision model")
	forceText := flag.Bool("text", false, "force the text model")
	profiled := flag.Bool("profiled", false, "treat arguments as document ids and publish document-profiled events")
	flag.Parse()

	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: plan [-lang en] [-k 5] <query> | plan -profiled <doc-id>...")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.New(os.Stderr, "plan", cfg.LogLevel, "text")

	queue, err := nats.New(cfg.NATSURL, nats.Subjects{
		DocumentProfiled: cfg.NATSProfiledSubject,
		PlanRequests:     cfg.NATSPlanSubject,
	}, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(cfg.Resilience(), logger),
		Logger:             logger,
	})
	if err != nil {
		logger.Error("connect_failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.NATSRequestTimeout)
	defer cancel()

	if *profiled {
		n, err := publishProfiled(ctx, queue, flag.Args())
		if err != nil {
			logger.Error("publish_failed", "published", n, "error", err)
			os.Exit(1)
		}
		logger.Info("documents_announced", "count", n, "subject", cfg.NATSProfiledSubject)
		return
	}

	topK := *k
	if topK <= 0 {
		topK = cfg.RetrievalTopK
	}
	query := domain.Query{
		Text:        text,
		Language:    domain.ParseLanguage(*lang),
		ForceVision: *forceVision,
		ForceText:   *forceText,
	}
	if err := requestPlan(ctx, queue, query, topK, os.Stdout); err != nil {
		logger.Error("plan_failed", "error", err)
		os.Exit(1)
	}
}

// publishProfiled announces each non-blank id and stops at the first failure.
func publishProfiled(ctx context.Context, events ports.ProfileEvents, ids []string) (int, error) {
	published := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := events.PublishDocumentProfiled(ctx, id); err != nil {
			return published, fmt.Errorf("publish %s: %w", id, err)
		}
		published++
	}
	if published == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "publish profiled", fmt.Errorf("no document ids given"))
	}
	return published, nil
}

func requestPlan(ctx context.Context, client planRequester, query domain.Query, k int, w io.Writer) error {
	plan, err := client.RequestPlan(ctx, query, k)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return nil
}
