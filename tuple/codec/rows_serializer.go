package codec

import "github.com/hatlonely/rse/tuple"

// RowsSerializer 把一组元组序列化为字节，供按字节存储的缓存使用
type RowsSerializer struct{}

func NewRowsSerializer() *RowsSerializer {
	return &RowsSerializer{}
}

func (s *RowsSerializer) Serialize(from []tuple.Tuple) ([]byte, error) {
	return Encode(from)
}

func (s *RowsSerializer) Deserialize(to []byte) ([]tuple.Tuple, error) {
	return Decode(to)
}
