// Package fragment splits client messages that exceed a size threshold into
// fragments and reassembles them on the receiving side.
//
// # Fragment layout
//
// Every fragment is itself a complete message. It carries the header fields of
// the original message (type, correlation id, partition id and the non-role
// flags) and its first frame is an 8-byte little-endian FragmentId frame.
// The header flags and the id frame flags state the fragment's role:
//
//	BeginFragment  first fragment of a group
//	(none)         middle fragment
//	EndFragment    last fragment of a group
//	Unfragmented   message sent whole, no id frame
//
// The payload frames are distributed over the fragments in order and are never
// split. The last frame of every fragment is marked Final.
//
// # Reassembly
//
// An [Assembler] keeps one open group per FragmentId. Fragments that do not
// fit the protocol (a second Begin, a middle or End fragment for an unknown
// id, a fragment without an id frame) are dropped, logged at debug level and
// counted through [Metrics]. They never fail the connection.
//
//	asm, _ := fragment.NewAssembler(fragment.AssemblerOptions{
//	    Handler: func(m *protocol.ClientMessage) { ... },
//	})
//	for _, f := range splitter.Split(msg) {
//	    asm.Accept(f)
//	}
package fragment
