package writer

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var ErrWriterClosed = errors.New("writer is closed")

type FileWriterOptions struct {
	// Path 日志文件路径，目录不存在时自动创建
	Path string `cfg:"path" validate:"required"`
}

// FileWriter 追加写入的文件输出器，并发安全
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("file path is required")
	}

	dir := filepath.Dir(options.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory %s failed", dir)
	}
	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open file %s failed", options.Path)
	}
	return &FileWriter{file: file}, nil
}

func (f *FileWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return 0, ErrWriterClosed
	}
	return f.file.Write(p)
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
