package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

const (
	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
	seq        int64
}

// outboxRepositoryInMemory — таблица outbox внутри общего Store.
type outboxRepositoryInMemory struct {
	s *Store
}

// NewOutboxRepository создаёт in-memory реализацию outbox поверх Store.
func NewOutboxRepository(s *Store) *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{s: s}
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его идентификатор.
func (r *outboxRepositoryInMemory) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.enqueueLocked(msg), nil
}

func (s *Store) enqueueLocked(msg domain.OutboxMessage) domain.OutboxMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := s.now()
	s.outbox[msg.ID] = &outboxRecord{
		msg:       msg,
		status:    outboxPending,
		createdAt: now,
		updatedAt: now,
		seq:       int64(len(s.outbox)) + 1,
	}
	return msg
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке записи.
func (r *outboxRepositoryInMemory) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	pending := r.s.pendingLocked()
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого pending-сообщения.
func (r *outboxRepositoryInMemory) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	pending := r.s.pendingLocked()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].createdAt
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *outboxRepositoryInMemory) MarkSent(_ context.Context, id string) error {
	return r.mark(id, outboxSent)
}

// MarkFailed фиксирует ошибку публикации.
func (r *outboxRepositoryInMemory) MarkFailed(_ context.Context, id string) error {
	return r.mark(id, outboxFailed)
}

func (r *outboxRepositoryInMemory) mark(id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.outbox[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	record.status = status
	record.attemptCnt++
	record.updatedAt = r.s.now()
	return nil
}

// AllPending возвращает копию всех сообщений со статусом `pending` (используется в тестах).
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	pending := r.s.pendingLocked()
	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result
}

func (s *Store) pendingLocked() []*outboxRecord {
	pending := make([]*outboxRecord, 0, len(s.outbox))
	for _, rec := range s.outbox {
		if rec.status == outboxPending {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	return pending
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
