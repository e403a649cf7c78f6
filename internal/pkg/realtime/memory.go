package realtime

import (
	"context"
	"errors"
	"sync"
)

var ErrBrokerClosed = errors.New("realtime broker closed")

// MemoryBroker 进程内广播, 单实例部署使用
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[uint64]*memorySub
	next   uint64
	buffer int
	closed bool
}

type memorySub struct {
	topics []Topic
	ch     chan Change
	once   sync.Once
}

// NewMemoryBroker 创建进程内 broker
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryBroker{
		subs:   make(map[uint64]*memorySub),
		buffer: buffer,
	}
}

// Publish 推送给所有命中的订阅者, 不阻塞发布方
func (b *MemoryBroker) Publish(_ context.Context, c Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}
	for _, s := range b.subs {
		if matchAny(s.topics, c) {
			offer(s.ch, c)
		}
	}
	return nil
}

// Subscribe 订阅
func (b *MemoryBroker) Subscribe(ctx context.Context, topics ...Topic) (*Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	id := b.next
	b.next++
	s := &memorySub{topics: topics, ch: make(chan Change, b.buffer)}
	b.subs[id] = s
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.remove(id)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return &Subscription{C: s.ch, cancel: cancel}, nil
}

func (b *MemoryBroker) remove(id uint64) {
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		s.once.Do(func() { close(s.ch) })
	}
}

// Close 关闭 broker 并结束全部订阅
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, s := range b.subs {
		s.once.Do(func() { close(s.ch) })
		delete(b.subs, id)
	}
	return nil
}

// Len 当前订阅数
func (b *MemoryBroker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
