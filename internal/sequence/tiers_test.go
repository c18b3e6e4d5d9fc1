package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"labelDesk/internal/config"
	"labelDesk/internal/database"
	"labelDesk/internal/storage"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) PutBytes(_ context.Context, name string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return data, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestRedisTier(t *testing.T) {
	client := newFakeRedis()
	tier := NewRedisTier(client, "cipl")
	ctx := context.Background()

	_, err := tier.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tier.Save(ctx, State{Value: 12, UpdatedAt: at, UpdatedBy: "op"}))
	assert.Contains(t, client.data, "sequence:cipl")

	st, err := tier.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{Value: 12, UpdatedAt: at, UpdatedBy: "op"}, st)

	client.err = errors.New("dial tcp: connection refused")
	_, err = tier.Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGormTierUpsert(t *testing.T) {
	db := openTestDB(t)
	tier := NewGormTier(db, "cipl")
	ctx := context.Background()

	_, err := tier.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tier.Save(ctx, State{Value: 5, UpdatedAt: time.Now().UTC(), UpdatedBy: "a"}))
	require.NoError(t, tier.Save(ctx, State{Value: 6, UpdatedAt: time.Now().UTC(), UpdatedBy: "b"}))

	st, err := tier.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), st.Value)
	assert.Equal(t, "b", st.UpdatedBy)

	var count int64
	require.NoError(t, db.Model(&database.SequenceRecord{}).Where("name = ?", "cipl").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other := NewGormTier(db, "other")
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestObjectTier(t *testing.T) {
	store := newFakeObjects()
	tier := NewObjectTier(store, "sequence/cipl.json")
	ctx := context.Background()

	_, err := tier.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tier.Save(ctx, State{Value: 3}))
	st, err := tier.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Value)

	store.objects["sequence/cipl.json"] = []byte("not json")
	_, err = tier.Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestServiceRecoversPrimaryRedisFromPostgres(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	redisTier := NewRedisTier(client, "cipl")
	gormTier := NewGormTier(openTestDB(t), "cipl")
	objectTier := NewObjectTier(newFakeObjects(), "sequence/cipl.json")
	svc := NewService(discardLogger(), 0, redisTier, gormTier, objectTier)

	for i := 0; i < 3; i++ {
		_, err := svc.Next(ctx)
		require.NoError(t, err)
	}

	delete(client.data, "sequence:cipl")
	got, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	st, err := redisTier.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Value)
}

func TestNewTieredServiceWritesEveryTier(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	objects := newFakeObjects()
	db := openTestDB(t)
	cfg := config.SequenceConfig{Name: "cipl", DefaultValue: 500, SnapshotKey: "sequence/cipl.json"}

	svc := NewTieredService(cfg, client, db, objects, discardLogger())
	n, err := svc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(501), n)

	assert.Contains(t, client.data, "sequence:cipl")
	assert.Contains(t, objects.objects, "sequence/cipl.json")
	var rec database.SequenceRecord
	require.NoError(t, db.Where("name = ?", "cipl").First(&rec).Error)
	assert.Equal(t, int64(501), rec.Value)
}
