package kv

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is the in-process Store adapter. It mirrors redis semantics
// (typed keys, sorted sets ordered by score then member, lazy key expiry)
// so the two backends stay wire-compatible. It also serves as the test
// backend.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]*memEntry
}

type memEntry struct {
	val      string
	hash     map[string]string
	set      map[string]struct{}
	zset     map[string]float64
	expireAt time.Time
}

// NewMemStore creates an empty in-process store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]*memEntry)}
}

func (s *MemStore) live(key string) *memEntry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !time.Now().Before(e.expireAt) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *MemStore) ensure(key string) *memEntry {
	if e := s.live(key); e != nil {
		return e
	}
	e := &memEntry{}
	s.data[key] = e
	return e
}

func (s *MemStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || e.hash != nil || e.set != nil || e.zset != nil {
		return "", false, nil
	}
	return e.val, true, nil
}

func (s *MemStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &memEntry{val: value}
	return nil
}

func (s *MemStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key) != nil, nil
}

func (s *MemStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	return nil
}

func (s *MemStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	e := s.live(key)
	if e == nil {
		return out, nil
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) HDel(ctx context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil
	}
	for _, f := range fields {
		delete(e.hash, f)
	}
	return nil
}

func (s *MemStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	if e.set == nil {
		e.set = make(map[string]struct{}, len(members))
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (s *MemStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil
	}
	for _, m := range members {
		delete(e.set, m)
	}
	if len(e.set) == 0 && e.hash == nil && e.zset == nil {
		delete(s.data, key)
	}
	return nil
}

func (s *MemStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil, nil
	}
	out := make([]string, 0, len(e.set))
	for m := range e.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) SCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.set)), nil
}

func (s *MemStore) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	union := make(map[string]struct{})
	for _, k := range keys {
		if e := s.live(k); e != nil {
			for m := range e.set {
				union[m] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(union))
	for m := range union {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) ZAdd(ctx context.Context, key string, members ...Z) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	if e.zset == nil {
		e.zset = make(map[string]float64, len(members))
	}
	for _, m := range members {
		e.zset[m.Member] = m.Score
	}
	return nil
}

func (s *MemStore) ZRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil
	}
	for _, m := range members {
		delete(e.zset, m)
	}
	return nil
}

// sortedMembers returns zset members ordered ascending by score, ties by
// member, matching redis ordering.
func (s *MemStore) sortedMembers(key string) []Z {
	e := s.live(key)
	if e == nil {
		return nil
	}
	out := make([]Z, 0, len(e.zset))
	for m, score := range e.zset {
		out = append(out, Z{Score: score, Member: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

// clampRange resolves redis-style start/stop (negative = from end) against n.
func clampRange(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

func (s *MemStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.sortedMembers(key)
	start, stop, ok := clampRange(start, stop, int64(len(members)))
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, stop-start+1)
	for _, z := range members[start : stop+1] {
		out = append(out, z.Member)
	}
	return out, nil
}

func (s *MemStore) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.sortedMembers(key)
	n := int64(len(members))
	start, stop, ok := clampRange(start, stop, n)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, members[n-1-i].Member)
	}
	return out, nil
}

func (s *MemStore) ZRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []string
	for _, z := range s.sortedMembers(key) {
		if z.Score >= min && z.Score <= max {
			matched = append(matched, z.Member)
		}
	}
	return applyOffsetCount(matched, offset, count), nil
}

func (s *MemStore) ZRevRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.sortedMembers(key)
	var matched []string
	for i := len(members) - 1; i >= 0; i-- {
		if members[i].Score >= min && members[i].Score <= max {
			matched = append(matched, members[i].Member)
		}
	}
	return applyOffsetCount(matched, offset, count), nil
}

func applyOffsetCount(members []string, offset, count int64) []string {
	if offset >= int64(len(members)) {
		return nil
	}
	members = members[offset:]
	if count >= 0 && count < int64(len(members)) {
		members = members[:count]
	}
	return members
}

func (s *MemStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil
	}
	members := s.sortedMembers(key)
	start, stop, ok := clampRange(start, stop, int64(len(members)))
	if !ok {
		return nil
	}
	for _, z := range members[start : stop+1] {
		delete(e.zset, z.Member)
	}
	return nil
}

func (s *MemStore) ZCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.zset)), nil
}

func (s *MemStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, false, nil
	}
	score, ok := e.zset[member]
	return score, ok, nil
}

func (s *MemStore) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, z := range s.sortedMembers(key) {
		if z.Score >= min && z.Score <= max {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(key); e != nil {
		e.expireAt = time.Now().Add(ttl)
	}
	return nil
}

func (s *MemStore) Pipeline() Pipe {
	return &memPipe{store: s}
}

func (s *MemStore) Close() error {
	return nil
}

// memPipe queues closures and applies them sequentially on Exec. Like the
// redis pipeline it batches writes without cross-client atomicity.
type memPipe struct {
	store *MemStore
	cmds  []func(ctx context.Context) error
}

func (p *memPipe) Set(key, value string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.Set(ctx, key, value) })
}

func (p *memPipe) Del(keys ...string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.Del(ctx, keys...) })
}

func (p *memPipe) HSet(key string, fields map[string]string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.HSet(ctx, key, fields) })
}

func (p *memPipe) HDel(key string, fields ...string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.HDel(ctx, key, fields...) })
}

func (p *memPipe) SAdd(key string, members ...string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.SAdd(ctx, key, members...) })
}

func (p *memPipe) SRem(key string, members ...string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.SRem(ctx, key, members...) })
}

func (p *memPipe) ZAdd(key string, members ...Z) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.ZAdd(ctx, key, members...) })
}

func (p *memPipe) ZRem(key string, members ...string) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.ZRem(ctx, key, members...) })
}

func (p *memPipe) Expire(key string, ttl time.Duration) {
	p.cmds = append(p.cmds, func(ctx context.Context) error { return p.store.Expire(ctx, key, ttl) })
}

func (p *memPipe) Len() int {
	return len(p.cmds)
}

func (p *memPipe) Exec(ctx context.Context) error {
	for _, cmd := range p.cmds {
		if err := cmd(ctx); err != nil {
			return err
		}
	}
	p.cmds = nil
	return nil
}
