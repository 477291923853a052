package oracle

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
	"streetview-randomizer/internal/metrics"
)

const (
	maxCellPrecision = 12
	metersPerDegree  = 111_320.0
)

// Answer：一次可用性查询的结论
type Answer struct {
	Found bool           `json:"found"`
	At    geo.Coordinate `json:"at"`
}

// 文档注释：本地 LRU 缓存（键见 CacheKey）
// 背景：同一网格内的候选点在短周期内得到相同结论，缓存可减少对外部配额的消耗；TTL 可调。
// 约束：仅缓存成功的回答（含未找到），错误从不缓存。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type kv struct {
	k   string
	v   Answer
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU) Get(k string) (Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(kv)
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return Answer{}, false
}

func (c *LRU) Set(k string, v Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if e, ok := c.dict[k]; ok {
		e.Value = kv{k: k, v: v, exp: exp}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(kv{k: k, v: v, exp: exp})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(kv).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// CacheOptions configures Cache.
type CacheOptions struct {
	Capacity int
	TTL      time.Duration
	// Redis 为空时只使用进程内缓存
	Redis *redis.Client
}

// 文档注释：带缓存的可用性查询装饰器
// 背景：先查进程内 LRU，再查 Redis（可选），都未命中才调用下游；回填两层。
// 约束：Redis 故障只记日志并降级到下游查询，不影响采样结果。
type Cache struct {
	next  Oracle
	local *LRU
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCache(next Oracle, opt CacheOptions) *Cache {
	if opt.Capacity <= 0 {
		opt.Capacity = 4096
	}
	if opt.TTL <= 0 {
		opt.TTL = 24 * time.Hour
	}
	return &Cache{next: next, local: NewLRU(opt.Capacity, opt.TTL), rdb: opt.Redis, ttl: opt.TTL}
}

// 文档注释：缓存键（geohash 网格 + 半径）
// 背景：同一网格内的候选点共享一次查询结论；网格取对角线不超过搜索半径的最粗精度，
// 保证共享结论的两个候选点的搜索圆相互覆盖对方圆心。
// 约束：半径过小（小于最细网格）时返回 ok=false，调用方直接查询下游。
func CacheKey(at geo.Coordinate, radiusM int) (string, bool) {
	p, ok := CellPrecision(radiusM)
	if !ok {
		return "", false
	}
	return "sv:" + geo.Geohash(at, p) + ":" + strconv.Itoa(radiusM), true
}

// CellPrecision returns the coarsest geohash precision whose cell diagonal fits in the radius.
func CellPrecision(radiusM int) (int, bool) {
	for p := 1; p <= maxCellPrecision; p++ {
		if cellDiagonalM(p) <= float64(radiusM) {
			return p, true
		}
	}
	return 0, false
}

// 赤道处网格对角线（米）；经度位数 ceil(5p/2)，纬度位数 floor(5p/2)
func cellDiagonalM(p int) float64 {
	bits := 5 * p
	w := 360 / math.Exp2(float64((bits+1)/2)) * metersPerDegree
	h := 180 / math.Exp2(float64(bits/2)) * metersPerDegree
	return math.Hypot(w, h)
}

func (c *Cache) Check(ctx context.Context, at geo.Coordinate, radiusM int) (bool, geo.Coordinate, error) {
	key, ok := CacheKey(at, radiusM)
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return c.next.Check(ctx, at, radiusM)
	}
	if a, ok := c.local.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("local").Inc()
		logger.L().Debug("oracle_cache_hit", "layer", "local", "key", key, "found", a.Found)
		return a.Found, a.resolve(at), nil
	}
	if c.rdb != nil {
		if a, ok := c.redisGet(ctx, key); ok {
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			logger.L().Debug("oracle_cache_hit", "layer", "redis", "key", key, "found", a.Found)
			c.local.Set(key, a)
			return a.Found, a.resolve(at), nil
		}
	}
	metrics.CacheMissesTotal.Inc()
	found, snapped, err := c.next.Check(ctx, at, radiusM)
	if err != nil {
		return false, at, err
	}
	a := Answer{Found: found, At: snapped}
	c.local.Set(key, a)
	if c.rdb != nil {
		c.redisSet(ctx, key, a)
	}
	return found, a.resolve(at), nil
}

// 未找到时回答中的坐标无意义，返回调用方原坐标
func (a Answer) resolve(at geo.Coordinate) geo.Coordinate {
	if a.Found {
		return a.At
	}
	return at
}

func (c *Cache) redisGet(ctx context.Context, key string) (Answer, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Debug("oracle_cache_redis_error", "op", "get", "err", err)
		}
		return Answer{}, false
	}
	var a Answer
	if err := json.Unmarshal(b, &a); err != nil {
		logger.L().Debug("oracle_cache_decode_error", "key", key, "err", err)
		return Answer{}, false
	}
	return a, true
}

func (c *Cache) redisSet(ctx context.Context, key string, a Answer) {
	b, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logger.L().Debug("oracle_cache_redis_error", "op", "set", "err", err)
	}
}
