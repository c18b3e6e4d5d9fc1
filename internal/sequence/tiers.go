package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labelDesk/internal/config"
	"labelDesk/internal/database"
	"labelDesk/internal/storage"
)

// NewTieredService 按 Redis → Postgres → 对象存储快照的优先级组装计数器。
func NewTieredService(cfg config.SequenceConfig, rdb redisStore, db *gorm.DB, objects objectStore, logger *slog.Logger) *Service {
	return NewService(logger, cfg.DefaultValue,
		NewRedisTier(rdb, cfg.Name),
		NewGormTier(db, cfg.Name),
		NewObjectTier(objects, cfg.SnapshotKey),
	)
}

// redisStore 是 RedisTier 用到的 go-redis 方法子集，便于测试替换。
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisTier 是主存储层，以 JSON 保存在单个键中。
type RedisTier struct {
	client redisStore
	key    string
}

func NewRedisTier(client redisStore, name string) *RedisTier {
	return &RedisTier{client: client, key: "sequence:" + name}
}

func (t *RedisTier) Name() string { return "redis" }

func (t *RedisTier) Load(ctx context.Context) (State, error) {
	raw, err := t.client.Get(ctx, t.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("get %q: %w", t.key, err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode %q: %w", t.key, err)
	}
	return st, nil
}

func (t *RedisTier) Save(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode sequence state: %w", err)
	}
	if err := t.client.Set(ctx, t.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", t.key, err)
	}
	return nil
}

// GormTier 是二级存储层，每个计数器一行。
type GormTier struct {
	db   *gorm.DB
	name string
}

func NewGormTier(db *gorm.DB, name string) *GormTier {
	return &GormTier{db: db, name: name}
}

func (t *GormTier) Name() string { return "postgres" }

func (t *GormTier) Load(ctx context.Context) (State, error) {
	var rec database.SequenceRecord
	if err := t.db.WithContext(ctx).Where("name = ?", t.name).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("query sequence %q: %w", t.name, err)
	}
	return State{Value: rec.Value, UpdatedAt: rec.UpdatedAt, UpdatedBy: rec.UpdatedBy}, nil
}

func (t *GormTier) Save(ctx context.Context, st State) error {
	rec := database.SequenceRecord{
		Name:      t.name,
		Value:     st.Value,
		UpdatedBy: st.UpdatedBy,
		UpdatedAt: st.UpdatedAt,
	}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert sequence %q: %w", t.name, err)
	}
	return nil
}

// objectStore 由 storage.Client 实现。
type objectStore interface {
	PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	GetBytes(ctx context.Context, objectKey string) ([]byte, error)
}

// ObjectTier 是第三级持久化快照，保存在对象存储中。
type ObjectTier struct {
	store objectStore
	key   string
}

func NewObjectTier(store objectStore, key string) *ObjectTier {
	return &ObjectTier{store: store, key: key}
}

func (t *ObjectTier) Name() string { return "object" }

func (t *ObjectTier) Load(ctx context.Context) (State, error) {
	data, err := t.store.GetBytes(ctx, t.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("get snapshot %q: %w", t.key, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode snapshot %q: %w", t.key, err)
	}
	return st, nil
}

func (t *ObjectTier) Save(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode sequence state: %w", err)
	}
	if err := t.store.PutBytes(ctx, t.key, data, "application/json"); err != nil {
		return fmt.Errorf("put snapshot %q: %w", t.key, err)
	}
	return nil
}

// MemoryTier 保存在进程内，用于本地开发与测试。
type MemoryTier struct {
	name  string
	mu    sync.Mutex
	state *State
}

func NewMemoryTier(name string) *MemoryTier {
	return &MemoryTier{name: name}
}

func (t *MemoryTier) Name() string { return t.name }

func (t *MemoryTier) Load(context.Context) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return State{}, ErrNotFound
	}
	return *t.state, nil
}

func (t *MemoryTier) Save(_ context.Context, st State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = &st
	return nil
}

// Clear 丢弃保存的状态。
func (t *MemoryTier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = nil
}
