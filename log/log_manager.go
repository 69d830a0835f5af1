package log

import (
	"maps"
	"slices"

	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

// Options 按名字配置的日志器，名为 default 的日志器作为缺省
type Options map[string]*ref.TypeOptions

// LogManager 按组件名查找日志器，没有配置的组件使用缺省日志器
type LogManager struct {
	loggers       map[string]logger.Logger
	defaultLogger logger.Logger
}

func NewLogManagerWithOptions(options Options) (*LogManager, error) {
	m := &LogManager{loggers: map[string]logger.Logger{}}
	for name, typeOptions := range options {
		if typeOptions == nil {
			continue
		}
		l, err := NewLoggerWithOptions(typeOptions)
		if err != nil {
			return nil, errors.WithMessagef(err, "create logger %s failed", name)
		}
		m.loggers[name] = l
	}

	m.defaultLogger = Default()
	if l, ok := m.loggers["default"]; ok {
		m.defaultLogger = l
	}
	return m, nil
}

// GetLogger 返回名为 name 的日志器，不存在时返回缺省日志器并带上 component 字段
func (m *LogManager) GetLogger(name string) logger.Logger {
	if l, ok := m.loggers[name]; ok {
		return l
	}
	return m.defaultLogger.With("component", name)
}

func (m *LogManager) GetDefault() logger.Logger {
	return m.defaultLogger
}

func (m *LogManager) ListLoggers() []string {
	return slices.Sorted(maps.Keys(m.loggers))
}
