package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// BudgetGate is the pre-flight spend check. Allow must return true before
// any provider is invoked; Record accumulates consumed tokens afterward.
type BudgetGate interface {
	Allow(ctx context.Context, workspaceID string, monthlyTokenLimit int64) (bool, error)
	Record(ctx context.Context, workspaceID string, tokens int64) error
}

// RedisBudget tracks monthly token consumption per workspace in a
// month-keyed redis counter.
type RedisBudget struct {
	client redis.UniversalClient
}

func NewRedisBudget(client redis.UniversalClient) *RedisBudget {
	return &RedisBudget{client: client}
}

var _ BudgetGate = (*RedisBudget)(nil)

func budgetKey(workspaceID string, now time.Time) string {
	return fmt.Sprintf("cadenza:ai:tokens:%s:%s", workspaceID, now.UTC().Format("2006-01"))
}

func (b *RedisBudget) Allow(ctx context.Context, workspaceID string, monthlyTokenLimit int64) (bool, error) {
	if monthlyTokenLimit <= 0 {
		return true, nil
	}

	used, err := b.client.Get(ctx, budgetKey(workspaceID, time.Now())).Int64()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("budget lookup failed: %w", err)
	}

	return used < monthlyTokenLimit, nil
}

func (b *RedisBudget) Record(ctx context.Context, workspaceID string, tokens int64) error {
	key := budgetKey(workspaceID, time.Now())

	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, tokens)
	// Keep the counter around past month end for reporting, then let it lapse.
	pipe.Expire(ctx, key, 62*24*time.Hour)

	_, err := pipe.Exec(ctx)

	return err
}

// MemoryBudget is the in-process gate used in tests and single-node dev.
type MemoryBudget struct {
	mu   sync.Mutex
	used map[string]int64
}

func NewMemoryBudget() *MemoryBudget {
	return &MemoryBudget{used: make(map[string]int64)}
}

var _ BudgetGate = (*MemoryBudget)(nil)

func (b *MemoryBudget) Allow(ctx context.Context, workspaceID string, monthlyTokenLimit int64) (bool, error) {
	if monthlyTokenLimit <= 0 {
		return true, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.used[budgetKey(workspaceID, time.Now())] < monthlyTokenLimit, nil
}

func (b *MemoryBudget) Record(ctx context.Context, workspaceID string, tokens int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.used[budgetKey(workspaceID, time.Now())] += tokens

	return nil
}
