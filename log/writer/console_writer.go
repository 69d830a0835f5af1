package writer

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

type ConsoleWriterOptions struct {
	// Target 输出目标：stdout, stderr
	Target string `cfg:"target" def:"stdout" validate:"omitempty,oneof=stdout stderr"`
}

// ConsoleWriter 控制台输出器，Close 不关闭标准输出
type ConsoleWriter struct {
	writer io.Writer
	target string
}

func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	target := "stdout"
	if options != nil && options.Target != "" {
		target = options.Target
	}

	switch target {
	case "stdout":
		return &ConsoleWriter{writer: os.Stdout, target: target}, nil
	case "stderr":
		return &ConsoleWriter{writer: os.Stderr, target: target}, nil
	}
	return nil, errors.Errorf("unsupported console target: %s", target)
}

func (c *ConsoleWriter) Target() string {
	return c.target
}

func (c *ConsoleWriter) Write(p []byte) (int, error) {
	return c.writer.Write(p)
}

func (c *ConsoleWriter) Close() error {
	return nil
}
