package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/resilience"
)

const workerQueueGroup = "retrieval-workers"

var _ ports.ProfileEvents = (*Queue)(nil)

type Queue struct {
	conn     *nats.Conn
	subjects Subjects
	executor *resilience.Executor
	logger   *slog.Logger
}

type Subjects struct {
	// DocumentProfiled carries a bare document id per message.
	DocumentProfiled string
	// PlanRequests is a request/reply subject answering with a JSON plan.
	PlanRequests string
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, subjects Subjects, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("hybrid-retrieval-router"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subjects: subjects,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentProfiled(ctx context.Context, documentID string) error {
	err := q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subjects.DocumentProfiled, []byte(documentID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded("nats publish", err)
}

// SubscribeDocumentProfiled blocks until ctx is done, then drains.
func (q *Queue) SubscribeDocumentProfiled(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subjects.DocumentProfiled, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		documentID := strings.TrimSpace(string(msg.Data))
		if err := handler(ctx, documentID); err != nil {
			q.logger.Error("document_profiled_handler_failed", "doc_id", documentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	return q.serveUntilDone(ctx, sub)
}

// ServePlans answers plan requests until ctx is done.
func (q *Queue) ServePlans(ctx context.Context, planner ports.QueryPlanner) error {
	sub, err := q.conn.QueueSubscribe(q.subjects.PlanRequests, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		reply := handlePlanRequest(ctx, planner, msg.Data)
		if err := msg.Respond(reply); err != nil {
			q.logger.Warn("plan_reply_failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe plans: %w", err)
	}
	return q.serveUntilDone(ctx, sub)
}

// RequestPlan is the client side of ServePlans.
func (q *Queue) RequestPlan(ctx context.Context, query domain.Query, k int) (*domain.QueryPlan, error) {
	body, err := json.Marshal(PlanRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("marshal plan request: %w", err)
	}

	msg, err := resilience.Call(ctx, q.executor, "nats.request_plan", func(ctx context.Context) (*nats.Msg, error) {
		return q.conn.RequestWithContext(ctx, q.subjects.PlanRequests, body)
	}, classifyNATSError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("nats request plan", err)
	}
	return decodePlanReply(msg.Data)
}

func (q *Queue) serveUntilDone(ctx context.Context, sub *nats.Subscription) error {
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

type PlanRequest struct {
	Query domain.Query `json:"query"`
	K     int          `json:"k,omitempty"`
}

type PlanReply struct {
	Plan  *domain.QueryPlan `json:"plan,omitempty"`
	Error string            `json:"error,omitempty"`
}

func handlePlanRequest(ctx context.Context, planner ports.QueryPlanner, data []byte) []byte {
	var req PlanRequest
	var reply PlanReply
	if err := json.Unmarshal(data, &req); err != nil {
		reply.Error = fmt.Sprintf("%v: decode plan request: %v", domain.ErrInvalidInput, err)
	} else if plan, err := planner.Prepare(ctx, req.Query, req.K); err != nil {
		reply.Error = err.Error()
	} else {
		reply.Plan = plan
	}

	out, err := json.Marshal(reply)
	if err != nil {
		out, _ = json.Marshal(PlanReply{Error: fmt.Sprintf("marshal plan reply: %v", err)})
	}
	return out
}

func decodePlanReply(data []byte) (*domain.QueryPlan, error) {
	var reply PlanReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode plan reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("plan request failed: %s", reply.Error)
	}
	if reply.Plan == nil {
		return nil, fmt.Errorf("plan reply is empty")
	}
	return reply.Plan, nil
}
