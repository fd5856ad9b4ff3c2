package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"journey-insights/internal/model"
)

// FactsCache handles Redis operations for session and cohort facts
type FactsCache interface {
	GetSessionFacts(ctx context.Context, programID, sessionID string) (*model.SessionFacts, error)
	SetSessionFacts(ctx context.Context, facts *model.SessionFacts) error

	GetCohortFacts(ctx context.Context, programID string) (*model.CohortFacts, error)
	SetCohortFacts(ctx context.Context, facts *model.CohortFacts) error
	InvalidateCohortFacts(ctx context.Context, programID string) error
}

type factsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFactsCache creates a new facts cache
func NewFactsCache(client *redis.Client) FactsCache {
	return &factsCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

// Key helpers
func (c *factsCache) sessionFactsKey(programID, sessionID string) string {
	return fmt.Sprintf("program:%s:session:%s:facts", programID, sessionID)
}

func (c *factsCache) cohortFactsKey(programID string) string {
	return fmt.Sprintf("program:%s:cohort:facts", programID)
}

func (c *factsCache) GetSessionFacts(ctx context.Context, programID, sessionID string) (*model.SessionFacts, error) {
	data, err := c.client.Get(ctx, c.sessionFactsKey(programID, sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var facts model.SessionFacts
	if err := json.Unmarshal([]byte(data), &facts); err != nil {
		return nil, err
	}
	return &facts, nil
}

func (c *factsCache) SetSessionFacts(ctx context.Context, facts *model.SessionFacts) error {
	data, err := json.Marshal(facts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.sessionFactsKey(facts.ProgramID, facts.SessionID), data, c.ttl).Err()
}

func (c *factsCache) GetCohortFacts(ctx context.Context, programID string) (*model.CohortFacts, error) {
	data, err := c.client.Get(ctx, c.cohortFactsKey(programID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var facts model.CohortFacts
	if err := json.Unmarshal([]byte(data), &facts); err != nil {
		return nil, err
	}
	return &facts, nil
}

func (c *factsCache) SetCohortFacts(ctx context.Context, facts *model.CohortFacts) error {
	data, err := json.Marshal(facts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.cohortFactsKey(facts.ProgramID), data, c.ttl).Err()
}

func (c *factsCache) InvalidateCohortFacts(ctx context.Context, programID string) error {
	return c.client.Del(ctx, c.cohortFactsKey(programID)).Err()
}
