package storage

import (
	"fmt"

	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

var (
	ErrInvalidOperation     = errors.New("invalid operation")
	ErrKeyNotFound          = newInvalidOperationError("key not found")
	ErrDuplicateKey         = newInvalidOperationError("duplicate key")
	ErrConstraintViolation  = newInvalidOperationError("constraint violation")
	ErrTransactionNotActive = errors.New("transaction is not active")
)

// invalidOperationError 属于 ErrInvalidOperation 一类的错误，errors.Is 对两者都成立
type invalidOperationError struct {
	msg string
}

func newInvalidOperationError(msg string) error {
	return &invalidOperationError{msg: msg}
}

func (e *invalidOperationError) Error() string {
	return e.msg
}

func (e *invalidOperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// CommandType 存储命令类型，目前只有 Update，Insert 和 Remove 由 KeyMustExist 和 Value 区分
type CommandType uint8

const (
	Update CommandType = iota + 1
)

func (t CommandType) String() string {
	if t == Update {
		return "Update"
	}
	return fmt.Sprintf("CommandType(%d)", uint8(t))
}

// Command 对一张表的一次写入
//   - KeyMustExist 为 false：插入 Value
//   - KeyMustExist 为 true 且 Value 不为 nil：用 Value 中已加载的字段更新 Key 对应的行
//   - KeyMustExist 为 true 且 Value 为 nil：删除 Key 对应的行
type Command struct {
	Type         CommandType
	TableName    string
	Key          tuple.Tuple
	Value        tuple.Tuple
	KeyMustExist bool
}

func NewInsertCommand(table string, value tuple.Tuple) Command {
	return Command{Type: Update, TableName: table, Value: value}
}

func NewUpdateCommand(table string, key tuple.Tuple, value tuple.Tuple) Command {
	return Command{Type: Update, TableName: table, Key: key, Value: value, KeyMustExist: true}
}

func NewRemoveCommand(table string, key tuple.Tuple) Command {
	return Command{Type: Update, TableName: table, Key: key, KeyMustExist: true}
}

// Operation 命令实际执行的操作，用于日志和指标
func (c Command) Operation() string {
	switch {
	case !c.KeyMustExist:
		return "insert"
	case c.Value != nil:
		return "update"
	}
	return "remove"
}

func (c Command) String() string {
	switch c.Operation() {
	case "insert":
		return fmt.Sprintf("insert %s %s", c.TableName, formatTuple(c.Value))
	case "update":
		return fmt.Sprintf("update %s %s set %s", c.TableName, formatTuple(c.Key), formatTuple(c.Value))
	}
	return fmt.Sprintf("remove %s %s", c.TableName, formatTuple(c.Key))
}

func formatTuple(t tuple.Tuple) string {
	if t == nil {
		return "<nil>"
	}
	return tuple.Format(t)
}

type CommandStatus uint8

const (
	CommandStatusOK CommandStatus = iota + 1
)

func (s CommandStatus) String() string {
	if s == CommandStatusOK {
		return "OK"
	}
	return "Unknown"
}

// CommandResult 单条命令的执行结果，Key 为受影响行的主键
type CommandResult struct {
	Status CommandStatus
	Key    tuple.Tuple
}

func (r CommandResult) OK() bool {
	return r.Status == CommandStatusOK
}
