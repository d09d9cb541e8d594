package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/revenant-13/maintenance-app/internal/repositories"
	"github.com/revenant-13/maintenance-app/pkg/metrics"

	"go.uber.org/zap"
)

const (
	CacheKeyEquipmentList = "equipment:list"
	CacheKeyDashboard     = "dashboard:stats"
)

type BaseService struct {
	cache  repositories.CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger

	// поколение ключа растёт при каждом сбросе; заполнение кэша со старым
	// поколением не должно пережить инвалидацию
	genMu sync.Mutex
	gen   map[string]uint64
}

func NewBaseService(cache repositories.CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) *BaseService {
	if cache == nil {
		cache = repositories.NewNoopCacheRepository()
	}
	return &BaseService{cache: cache, ttl: ttl, logger: logger, gen: make(map[string]uint64)}
}

// CacheGet получает данные из кэша
func (s *BaseService) CacheGet(ctx context.Context, key string, dest interface{}) bool {
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("Ошибка чтения кэша", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheLookup(key, false)
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		s.logger.Warn("Кэш содержит некорректные данные", zap.String("key", key), zap.Error(err))
		metrics.CacheLookup(key, false)
		return false
	}
	s.logger.Debug("Данные получены из кэша", zap.String("key", key))
	metrics.CacheLookup(key, true)
	return true
}

// CacheSet сохраняет данные в кэш
func (s *BaseService) CacheSet(ctx context.Context, key string, data interface{}) {
	if s.ttl <= 0 {
		return
	}
	serialized, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("Не удалось сериализовать данные для кэша", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, serialized, s.ttl); err != nil {
		s.logger.Warn("Ошибка записи в кэш", zap.String("key", key), zap.Error(err))
	}
}

// CacheGeneration снимается до чтения из хранилища и передаётся в CacheSetIfCurrent.
func (s *BaseService) CacheGeneration(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen[key]
}

// CacheSetIfCurrent пишет значение, только если с момента снятия gen ключ не
// сбрасывали. Сброс, попавший между проверкой и записью, ловится повторной
// проверкой: тогда запись удаляется.
func (s *BaseService) CacheSetIfCurrent(ctx context.Context, key string, gen uint64, data interface{}) {
	if s.CacheGeneration(key) != gen {
		s.logger.Debug("Кэш сброшен во время чтения, запись пропущена", zap.String("key", key))
		return
	}
	s.CacheSet(ctx, key, data)
	if s.CacheGeneration(key) != gen {
		s.logger.Debug("Кэш сброшен во время записи, удаляем", zap.String("key", key))
		if err := s.cache.Del(ctx, key); err != nil {
			s.logger.Warn("Ошибка сброса кэша", zap.String("key", key), zap.Error(err))
		}
	}
}

// CacheInvalidate удаляет ключи; ошибки только логируются.
func (s *BaseService) CacheInvalidate(ctx context.Context, keys ...string) {
	s.genMu.Lock()
	for _, key := range keys {
		s.gen[key]++
	}
	s.genMu.Unlock()

	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("Ошибка сброса кэша", zap.Strings("keys", keys), zap.Error(err))
	}
}
