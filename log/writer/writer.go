package writer

import (
	"io"
)

// Writer 日志输出器
type Writer interface {
	io.Writer
	io.Closer
}
