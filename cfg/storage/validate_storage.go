package storage

import (
	"github.com/hatlonely/rse/cfg/validator"
	"github.com/pkg/errors"
)

// ValidateStorage 转换后按 validate 标签校验结构体
type ValidateStorage struct {
	storage Storage
}

func NewValidateStorage(storage Storage) *ValidateStorage {
	return &ValidateStorage{storage: storage}
}

func (vs *ValidateStorage) Sub(key string) Storage {
	if vs.storage == nil {
		return vs
	}
	return NewValidateStorage(vs.storage.Sub(key))
}

func (vs *ValidateStorage) ConvertTo(object any) error {
	if vs.storage == nil {
		return nil
	}
	if err := vs.storage.ConvertTo(object); err != nil {
		return err
	}
	if err := validator.ValidateStruct(object); err != nil {
		return errors.WithMessage(err, "validation failed")
	}
	return nil
}
