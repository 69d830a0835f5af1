package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type IsolationLevel uint8

const (
	ReadCommitted IsolationLevel = iota
	ReadUncommitted
	RepeatableRead
	Serializable
	Snapshot
)

var isolationLevelNames = map[IsolationLevel]string{
	ReadCommitted:   "ReadCommitted",
	ReadUncommitted: "ReadUncommitted",
	RepeatableRead:  "RepeatableRead",
	Serializable:    "Serializable",
	Snapshot:        "Snapshot",
}

func (l IsolationLevel) String() string {
	if name, ok := isolationLevelNames[l]; ok {
		return name
	}
	return "Unknown"
}

type TransactionState uint8

const (
	TransactionActive TransactionState = iota
	TransactionCommitted
	TransactionRolledBack
)

func (s TransactionState) String() string {
	switch s {
	case TransactionActive:
		return "Active"
	case TransactionCommitted:
		return "Committed"
	case TransactionRolledBack:
		return "RolledBack"
	}
	return "Unknown"
}

// Transaction 只记录事务的标识、隔离级别和状态
// 内存存储不支持回滚，Rollback 之前已执行的命令仍然生效
type Transaction struct {
	id        uuid.UUID
	isolation IsolationLevel
	startedAt time.Time

	mu    sync.Mutex
	state TransactionState
}

func NewTransaction(isolation IsolationLevel) *Transaction {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Transaction{
		id:        id,
		isolation: isolation,
		startedAt: time.Now(),
		state:     TransactionActive,
	}
}

func (t *Transaction) ID() uuid.UUID                  { return t.id }
func (t *Transaction) IsolationLevel() IsolationLevel { return t.isolation }
func (t *Transaction) StartedAt() time.Time           { return t.startedAt }

func (t *Transaction) State() TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) IsActive() bool {
	return t.State() == TransactionActive
}

func (t *Transaction) Commit() error {
	return t.finish(TransactionCommitted)
}

func (t *Transaction) Rollback() error {
	return t.finish(TransactionRolledBack)
}

func (t *Transaction) finish(state TransactionState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransactionActive {
		return ErrTransactionNotActive
	}
	t.state = state
	return nil
}

func (t *Transaction) String() string {
	return t.id.String() + " " + t.isolation.String() + " " + t.State().String()
}
