package log

import (
	"sync/atomic"

	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

var defaultLogger atomic.Value

func init() {
	ref.MustRegisterT[*logger.SLog](logger.NewSLogWithOptions)

	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	SetDefault(l)
}

// Default 全局默认日志器，文本格式输出到标准输出
func Default() logger.Logger {
	return defaultLogger.Load().(*holder).logger
}

type holder struct {
	logger logger.Logger
}

func SetDefault(l logger.Logger) {
	if l != nil {
		defaultLogger.Store(&holder{logger: l})
	}
}

// NewLoggerWithOptions 通过 ref 创建日志器，options 为 nil 时返回默认日志器
// namespace 为空时默认为 log/logger 包
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options == nil || options.Type == "" {
		return Default(), nil
	}
	l, err := ref.NewWithTypeOptions[logger.Logger](options, "github.com/hatlonely/rse/log/logger")
	if err != nil {
		return nil, errors.WithMessage(err, "create logger failed")
	}
	return l, nil
}
