package codec

import (
	"github.com/codewandler/gridwire-go/core/protocol"
)

type (
	Encoder[T any] func(m *protocol.ClientMessage, v T)
	Decoder[T any] func(it *protocol.Iterator) (T, error)
)

// Entry is one key/value pair of an entry list.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// EncodeNullable writes a Null frame for nil, otherwise encodes *v.
func EncodeNullable[T any](m *protocol.ClientMessage, v *T, enc Encoder[T]) {
	if v == nil {
		m.AddFrame(protocol.NullFrame())
		return
	}
	enc(m, *v)
}

// DecodeNullable returns nil when the cursor sits on a Null frame.
func DecodeNullable[T any](it *protocol.Iterator, dec Decoder[T]) (*T, error) {
	if it.NextIsNull() {
		return nil, nil
	}
	v, err := dec(it)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// EncodeList writes items between a BeginStruct and an EndStruct frame. An
// item may span several frames.
func EncodeList[T any](m *protocol.ClientMessage, items []T, enc Encoder[T]) {
	m.AddFrame(protocol.BeginFrame())
	for _, v := range items {
		enc(m, v)
	}
	m.AddFrame(protocol.EndFrame())
}

func DecodeList[T any](it *protocol.Iterator, dec Decoder[T]) ([]T, error) {
	const op = "decode list"
	if err := expectBegin(it, op); err != nil {
		return nil, err
	}
	var out []T
	for !it.NextIsStructEnd() {
		if !it.HasNext() {
			return nil, protocol.Errorf(op, protocol.ErrStructMismatch, "list not terminated after %d items", len(out))
		}
		v, err := dec(it)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	_, err := it.Next()
	return out, err
}

// EncodeNullableList writes a Null frame for a nil slice. An empty non-nil
// slice is an empty list.
func EncodeNullableList[T any](m *protocol.ClientMessage, items []T, enc Encoder[T]) {
	if items == nil {
		m.AddFrame(protocol.NullFrame())
		return
	}
	EncodeList(m, items, enc)
}

func DecodeNullableList[T any](it *protocol.Iterator, dec Decoder[T]) ([]T, error) {
	if it.NextIsNull() {
		return nil, nil
	}
	out, err := DecodeList(it, dec)
	if out == nil && err == nil {
		out = []T{}
	}
	return out, err
}

// EncodeEntryList writes key/value pairs in order inside one struct.
func EncodeEntryList[K, V any](m *protocol.ClientMessage, entries []Entry[K, V], encK Encoder[K], encV Encoder[V]) {
	m.AddFrame(protocol.BeginFrame())
	for _, e := range entries {
		encK(m, e.Key)
		encV(m, e.Value)
	}
	m.AddFrame(protocol.EndFrame())
}

func DecodeEntryList[K, V any](it *protocol.Iterator, decK Decoder[K], decV Decoder[V]) ([]Entry[K, V], error) {
	const op = "decode entry list"
	if err := expectBegin(it, op); err != nil {
		return nil, err
	}
	var out []Entry[K, V]
	for !it.NextIsStructEnd() {
		if !it.HasNext() {
			return nil, protocol.Errorf(op, protocol.ErrStructMismatch, "entry list not terminated after %d entries", len(out))
		}
		k, err := decK(it)
		if err != nil {
			return nil, err
		}
		v, err := decV(it)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	_, err := it.Next()
	return out, err
}

// FastForwardToEndFrame skips the remaining fields of a struct whose
// BeginStruct frame was already consumed, including nested structs. Decoders
// call it after reading the fields they know.
func FastForwardToEndFrame(it *protocol.Iterator) error {
	return it.SkipToStructEnd()
}

func expectBegin(it *protocol.Iterator, op string) error {
	f, err := it.Next()
	if err != nil {
		return err
	}
	if !f.IsBeginStruct() {
		return protocol.Errorf(op, protocol.ErrStructMismatch, "expected struct begin, got %s", f.Flags)
	}
	return nil
}
