package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/codewandler/gridwire-go/core/protocol"
	"github.com/codewandler/gridwire-go/core/protocol/codec"
)

const previewBytes = 16

func printMessage(w io.Writer, m *protocol.ClientMessage, frames bool) {
	fmt.Fprintf(w, "%s type=%s corr=%d part=%d len=%d flags=%s",
		protocol.ClassifyMessageType(m.MessageType()),
		protocol.TypeName(m.MessageType()),
		m.CorrelationID(),
		m.PartitionID(),
		m.FrameLength(),
		m.Flags(),
	)
	if m.Flags().Role() != protocol.MsgUnfragmented && m.FirstFrame() != nil {
		fmt.Fprintf(w, " fragment=%d", fragmentID(m))
	}
	fmt.Fprintf(w, " frames=%d\n", m.FrameCount())
	if !frames {
		return
	}
	i := 0
	for f := range m.All() {
		fmt.Fprintf(w, "  #%-3d %-40s %6d  %s\n", i, f.Flags, len(f.Bytes), preview(f.Bytes))
		i++
	}
}

func fragmentID(m *protocol.ClientMessage) int64 {
	id, err := codec.DecodeInt64(m.Iterator())
	if err != nil {
		return -1
	}
	return id
}

func preview(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	p := b[:min(len(b), previewBytes)]
	s := fmt.Sprintf("% x", p)
	if len(b) > previewBytes {
		s += " ..."
	}
	if printable(p) {
		s += fmt.Sprintf("  %q", p)
	}
	return s
}

func printable(b []byte) bool {
	return bytes.IndexFunc(b, func(r rune) bool { return r < 0x20 || r > 0x7e }) < 0
}
