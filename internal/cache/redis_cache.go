package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/domain"
)

type RedisTrustScoreCache struct {
	client *redis.Client
}

func NewRedisTrustScoreCache(addr string, password string, db int) *RedisTrustScoreCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisTrustScoreCache{client: client}
}

func (c *RedisTrustScoreCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisTrustScoreCache) Close() error {
	return c.client.Close()
}

func (c *RedisTrustScoreCache) Get(ctx context.Context, key string) (*domain.TrustAssessment, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var assessment domain.TrustAssessment
	if err := json.Unmarshal([]byte(val), &assessment); err != nil {
		return nil, false, err
	}
	return &assessment, true, nil
}

func (c *RedisTrustScoreCache) Set(ctx context.Context, key string, value *domain.TrustAssessment, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
