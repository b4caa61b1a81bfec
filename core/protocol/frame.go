package protocol

// FrameHeaderSize is the length (int32) plus flags (uint16) prefix of each frame.
const FrameHeaderSize = 6

// Frame is one link of a message payload chain.
//
// Bytes is never modified once the frame is built. Flags may gain or lose
// Final and fragment bits while a message is assembled or split.
type Frame struct {
	Bytes []byte
	Flags Flags

	next *Frame
}

func NewFrame(b []byte) *Frame {
	return &Frame{Bytes: b}
}

func NewFrameWithFlags(b []byte, flags Flags) *Frame {
	return &Frame{Bytes: b, Flags: flags}
}

// NullFrame marks an absent structured value.
func NullFrame() *Frame { return &Frame{Flags: FlagNull} }

// BeginFrame opens a nested structure.
func BeginFrame() *Frame { return &Frame{Flags: FlagBeginStruct} }

// EndFrame closes the structure opened by the matching BeginFrame.
func EndFrame() *Frame { return &Frame{Flags: FlagEndStruct} }

// Next returns the following frame of the chain or nil at the tail.
func (f *Frame) Next() *Frame { return f.next }

// link attaches n after f. A frame is linked exactly once; anything else
// would break the forward-only chain.
func (f *Frame) link(n *Frame) {
	if f.next != nil {
		panic("protocol: frame already linked")
	}
	if n == f || n.next != nil {
		panic("protocol: frame link would create a cycle")
	}
	f.next = n
}

// Size is the number of bytes the frame occupies on the wire.
func (f *Frame) Size() int { return FrameHeaderSize + len(f.Bytes) }

// Copy returns an unlinked frame sharing the payload.
func (f *Frame) Copy() *Frame {
	return &Frame{Bytes: f.Bytes, Flags: f.Flags}
}

// CopyWithFlags returns an unlinked frame sharing the payload with new flags.
func (f *Frame) CopyWithFlags(flags Flags) *Frame {
	return &Frame{Bytes: f.Bytes, Flags: flags}
}

func (f *Frame) IsBeginStruct() bool   { return f.Flags&FlagBeginStruct != 0 }
func (f *Frame) IsEndStruct() bool     { return f.Flags&FlagEndStruct != 0 }
func (f *Frame) IsNull() bool          { return f.Flags&FlagNull != 0 }
func (f *Frame) IsFinal() bool         { return f.Flags&FlagFinal != 0 }
func (f *Frame) IsBeginFragment() bool { return f.Flags&FlagBeginFragment != 0 }
func (f *Frame) IsEndFragment() bool   { return f.Flags&FlagEndFragment != 0 }
func (f *Frame) IsEvent() bool         { return f.Flags&FlagIsEvent != 0 }
