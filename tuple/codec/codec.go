package codec

import (
	"bytes"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrCorrupted = errors.New("corrupted tuple payload")

// Encode 把同一形状的一组元组编码为自描述的 msgpack 数据
// 格式: [字段类型...] [行数] 每行每个字段 [状态 值?]
func Encode(rows []tuple.Tuple) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	var descriptor *tuple.Descriptor
	if len(rows) > 0 {
		descriptor = rows[0].Descriptor()
	} else {
		descriptor = tuple.MustNewDescriptor()
	}
	if err := encodeDescriptor(enc, descriptor); err != nil {
		return nil, err
	}
	if err := enc.EncodeArrayLen(len(rows)); err != nil {
		return nil, errors.Wrap(err, "enc.EncodeArrayLen failed")
	}
	for i, row := range rows {
		if !row.Descriptor().Equal(descriptor) {
			return nil, errors.Errorf("row %d has shape %s, expected %s", i, row.Descriptor(), descriptor)
		}
		if err := encodeRow(enc, descriptor, row); err != nil {
			return nil, errors.WithMessagef(err, "encode row %d", i)
		}
	}
	return buf.Bytes(), nil
}

// Decode Encode 的逆过程，返回可写的 RegularTuple
func Decode(data []byte) ([]tuple.Tuple, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	descriptor, err := decodeDescriptor(dec)
	if err != nil {
		return nil, err
	}
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupted, err.Error())
	}
	if n < 0 {
		return nil, nil
	}
	rows := make([]tuple.Tuple, 0, n)
	for i := 0; i < n; i++ {
		row, err := decodeRow(dec, descriptor)
		if err != nil {
			return nil, errors.WithMessagef(err, "decode row %d", i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Hash 元组的 xxhash64，形状和值都相同的元组哈希相同
func Hash(t tuple.Tuple) uint64 {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeDescriptor(enc, t.Descriptor()); err != nil {
		return xxhash.Sum64String(tuple.Format(t))
	}
	if err := encodeRow(enc, t.Descriptor(), t); err != nil {
		return xxhash.Sum64String(tuple.Format(t))
	}
	return xxhash.Sum64(buf.Bytes())
}

func encodeDescriptor(enc *msgpack.Encoder, descriptor *tuple.Descriptor) error {
	types := descriptor.Types()
	if err := enc.EncodeArrayLen(len(types)); err != nil {
		return errors.Wrap(err, "enc.EncodeArrayLen failed")
	}
	for _, t := range types {
		if err := enc.EncodeUint8(uint8(t)); err != nil {
			return errors.Wrap(err, "enc.EncodeUint8 failed")
		}
	}
	return nil
}

func decodeDescriptor(dec *msgpack.Decoder) (*tuple.Descriptor, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupted, err.Error())
	}
	types := make([]tuple.FieldType, 0, n)
	for i := 0; i < n; i++ {
		t, err := dec.DecodeUint8()
		if err != nil {
			return nil, errors.Wrap(ErrCorrupted, err.Error())
		}
		types = append(types, tuple.FieldType(t))
	}
	descriptor, err := tuple.NewDescriptor(types...)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupted, err.Error())
	}
	return descriptor, nil
}

func encodeRow(enc *msgpack.Encoder, descriptor *tuple.Descriptor, row tuple.Tuple) error {
	types := descriptor.Types()
	for i, t := range types {
		state, err := row.GetFieldState(i)
		if err != nil {
			return err
		}
		if err := enc.EncodeUint8(uint8(state)); err != nil {
			return errors.Wrap(err, "enc.EncodeUint8 failed")
		}
		if state != tuple.Available {
			continue
		}
		v, _, err := row.GetValue(i)
		if err != nil {
			return err
		}
		if err := encodeValue(enc, t, v); err != nil {
			return errors.WithMessagef(err, "field %d", i)
		}
	}
	return nil
}

func encodeValue(enc *msgpack.Encoder, t tuple.FieldType, v any) error {
	var err error
	switch t {
	case tuple.TypeInt64:
		err = enc.EncodeInt(v.(int64))
	case tuple.TypeFloat64:
		err = enc.EncodeFloat64(v.(float64))
	case tuple.TypeDecimal:
		err = enc.EncodeString(v.(decimal.Decimal).String())
	case tuple.TypeString:
		err = enc.EncodeString(v.(string))
	case tuple.TypeBool:
		err = enc.EncodeBool(v.(bool))
	case tuple.TypeTime:
		err = enc.EncodeTime(v.(time.Time))
	case tuple.TypeBytes:
		err = enc.EncodeBytes(v.([]byte))
	default:
		return errors.Errorf("unsupported field type %s", t)
	}
	return errors.Wrap(err, "encode value failed")
}

func decodeRow(dec *msgpack.Decoder, descriptor *tuple.Descriptor) (tuple.Tuple, error) {
	row := tuple.New(descriptor)
	for i, t := range descriptor.Types() {
		s, err := dec.DecodeUint8()
		if err != nil {
			return nil, errors.Wrap(ErrCorrupted, err.Error())
		}
		switch tuple.FieldState(s) {
		case tuple.NotAvailable:
			continue
		case tuple.Null:
			if err := row.SetValue(i, nil); err != nil {
				return nil, err
			}
			continue
		case tuple.Available:
		default:
			return nil, errors.Wrapf(ErrCorrupted, "field %d has state %d", i, s)
		}
		v, err := decodeValue(dec, t)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %d", i)
		}
		if err := row.SetValue(i, v); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func decodeValue(dec *msgpack.Decoder, t tuple.FieldType) (any, error) {
	switch t {
	case tuple.TypeInt64:
		return wrapDecode(dec.DecodeInt64())
	case tuple.TypeFloat64:
		return wrapDecode(dec.DecodeFloat64())
	case tuple.TypeDecimal:
		s, err := dec.DecodeString()
		if err != nil {
			return nil, errors.Wrap(ErrCorrupted, err.Error())
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errors.Wrap(ErrCorrupted, err.Error())
		}
		return d, nil
	case tuple.TypeString:
		return wrapDecode(dec.DecodeString())
	case tuple.TypeBool:
		return wrapDecode(dec.DecodeBool())
	case tuple.TypeTime:
		return wrapDecode(dec.DecodeTime())
	case tuple.TypeBytes:
		return wrapDecode(dec.DecodeBytes())
	}
	return nil, errors.Wrapf(ErrCorrupted, "unsupported field type %s", t)
}

func wrapDecode[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, errors.Wrap(ErrCorrupted, err.Error())
	}
	return v, nil
}
