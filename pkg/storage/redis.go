package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	workflowKeyPrefix = "workflow:"
	workflowListKey   = "workflows"

	// ChangesChannel carries "<origin> <workflow id>" for every write
	ChangesChannel = "workflows:changed"
)

// RedisWorkflowRepository implements workflow.Repository using Redis.
// Several editors can share one instance; each write is announced on
// ChangesChannel so the others can reload. Last write wins.
type RedisWorkflowRepository struct {
	client *redis.Client
	origin string
	logger *zap.Logger
}

// NewRedisWorkflowRepository connects to addr and verifies the connection
func NewRedisWorkflowRepository(addr string, logger *zap.Logger) (*RedisWorkflowRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisWorkflowRepositoryWithClient(client, logger), nil
}

// NewRedisWorkflowRepositoryWithClient uses an existing client
func NewRedisWorkflowRepositoryWithClient(client *redis.Client, logger *zap.Logger) *RedisWorkflowRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisWorkflowRepository{
		client: client,
		origin: uuid.New().String(),
		logger: logger,
	}
}

// Close closes the client
func (r *RedisWorkflowRepository) Close() error {
	return r.client.Close()
}

func (r *RedisWorkflowRepository) workflowKey(id workflow.WorkflowID) string {
	return workflowKeyPrefix + id.String()
}

// Save stores the workflow, indexes it and announces the change
func (r *RedisWorkflowRepository) Save(ctx context.Context, wf *workflow.Workflow) error {
	if wf == nil {
		return fmt.Errorf("cannot save nil workflow")
	}
	if wf.ID == "" {
		return fmt.Errorf("workflow must have an ID")
	}

	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.workflowKey(wf.ID), data, 0)
	pipe.ZAddNX(ctx, workflowListKey, redis.Z{Score: float64(wf.CreatedAt.UnixNano()), Member: wf.ID.String()})
	pipe.Publish(ctx, ChangesChannel, r.origin+" "+wf.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// Get retrieves a workflow by id
func (r *RedisWorkflowRepository) Get(ctx context.Context, id workflow.WorkflowID) (*workflow.Workflow, error) {
	data, err := r.client.Get(ctx, r.workflowKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	var wf workflow.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("unmarshal workflow: %w", err)
	}
	return &wf, nil
}

// Delete removes a workflow and announces the change
func (r *RedisWorkflowRepository) Delete(ctx context.Context, id workflow.WorkflowID) error {
	exists, err := r.client.Exists(ctx, r.workflowKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.workflowKey(id))
	pipe.ZRem(ctx, workflowListKey, id.String())
	pipe.Publish(ctx, ChangesChannel, r.origin+" "+id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	return nil
}

// List returns all workflows ordered by creation time
func (r *RedisWorkflowRepository) List(ctx context.Context) ([]*workflow.Workflow, error) {
	ids, err := r.client.ZRange(ctx, workflowListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list workflow ids: %w", err)
	}

	workflows := make([]*workflow.Workflow, 0, len(ids))
	for _, id := range ids {
		wf, err := r.Get(ctx, workflow.WorkflowID(id))
		if errors.Is(err, workflow.ErrWorkflowNotFound) {
			// Stale reference, clean up
			r.client.ZRem(ctx, workflowListKey, id)
			continue
		}
		if err != nil {
			r.logger.Warn("skipping unreadable workflow", zap.String("workflow", id), zap.Error(err))
			continue
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// Changes streams ids of workflows written by other repositories until ctx
// is done. Writes made through this repository are filtered out.
func (r *RedisWorkflowRepository) Changes(ctx context.Context) (<-chan workflow.WorkflowID, error) {
	sub := r.client.Subscribe(ctx, ChangesChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}

	out := make(chan workflow.WorkflowID, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				origin, id, found := strings.Cut(msg.Payload, " ")
				if !found || origin == r.origin {
					continue
				}
				select {
				case out <- workflow.WorkflowID(id):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
