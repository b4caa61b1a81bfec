package protocol

// Iterator is a forward cursor over the frames of a message.
type Iterator struct {
	next *Frame
}

// HasNext reports whether a frame remains.
func (it *Iterator) HasNext() bool { return it.next != nil }

// Peek returns the frame at the cursor without consuming it, or nil.
func (it *Iterator) Peek() *Frame { return it.next }

// Next consumes and returns the frame at the cursor.
func (it *Iterator) Next() (*Frame, error) {
	f := it.next
	if f == nil {
		return nil, formatError("next frame", ErrNoFrame)
	}
	it.next = f.next
	return f, nil
}

// SkipStruct consumes the BeginStruct frame at the cursor together with
// everything up to and including its matching EndStruct.
func (it *Iterator) SkipStruct() error {
	f := it.next
	if f == nil {
		return formatError("skip struct", ErrNoFrame)
	}
	if !f.IsBeginStruct() {
		return formatErrorf("skip struct", ErrStructMismatch, "cursor frame is %s, not a struct begin", f.Flags)
	}
	it.next = f.next
	return it.SkipToStructEnd()
}

// SkipToStructEnd assumes the opening BeginStruct was already consumed and
// advances past the matching EndStruct, skipping nested structs whole.
func (it *Iterator) SkipToStructEnd() error {
	depth := 1
	for depth > 0 {
		f := it.next
		if f == nil {
			return formatErrorf("skip to struct end", ErrStructMismatch, "%d struct(s) left open", depth)
		}
		it.next = f.next
		switch {
		case f.IsEndStruct():
			depth--
		case f.IsBeginStruct():
			depth++
		}
	}
	return nil
}

// SkipNulls consumes a run of Null frames and reports whether any were skipped.
func (it *Iterator) SkipNulls() bool {
	skipped := false
	for it.next != nil && it.next.IsNull() {
		it.next = it.next.next
		skipped = true
	}
	return skipped
}

// NextIsNull consumes a single Null frame if one is at the cursor.
func (it *Iterator) NextIsNull() bool {
	if it.next != nil && it.next.IsNull() {
		it.next = it.next.next
		return true
	}
	return false
}

// NextIsStructEnd reports whether the cursor sits on an EndStruct frame.
func (it *Iterator) NextIsStructEnd() bool {
	return it.next != nil && it.next.IsEndStruct()
}
