package provider

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type FileProviderOptions struct {
	FilePath string `cfg:"filePath" validate:"required"`
}

type FileProvider struct {
	filePath string
}

func NewFileProviderWithOptions(options *FileProviderOptions) (*FileProvider, error) {
	if options == nil || options.FilePath == "" {
		return nil, errors.New("file path is required")
	}
	absPath, err := filepath.Abs(options.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid file path")
	}
	return &FileProvider{filePath: absPath}, nil
}

func (p *FileProvider) FilePath() string {
	return p.filePath
}

func (p *FileProvider) Load() ([]byte, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return data, nil
}
