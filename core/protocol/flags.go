package protocol

import "strings"

// Flags is the per-frame flag set carried in the 2-byte frame header.
type Flags uint16

const (
	FlagDefault       Flags = 0
	FlagBackupEvent   Flags = 1 << 7
	FlagBackupAware   Flags = 1 << 8
	FlagIsEvent       Flags = 1 << 9
	FlagNull          Flags = 1 << 10
	FlagEndStruct     Flags = 1 << 11
	FlagBeginStruct   Flags = 1 << 12
	FlagFinal         Flags = 1 << 13
	FlagEndFragment   Flags = 1 << 14
	FlagBeginFragment Flags = 1 << 15

	// FlagUnfragmented marks a frame that opens and closes its own fragment.
	FlagUnfragmented = FlagBeginFragment | FlagEndFragment
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagBeginFragment, "BEGIN_FRAGMENT"},
	{FlagEndFragment, "END_FRAGMENT"},
	{FlagFinal, "FINAL"},
	{FlagBeginStruct, "BEGIN_STRUCT"},
	{FlagEndStruct, "END_STRUCT"},
	{FlagNull, "NULL"},
	{FlagIsEvent, "EVENT"},
	{FlagBackupAware, "BACKUP_AWARE"},
	{FlagBackupEvent, "BACKUP_EVENT"},
}

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool { return f&x == x }

func (f Flags) String() string {
	if f == FlagDefault {
		return "DEFAULT"
	}
	parts := make([]string, 0, 3)
	for _, n := range flagNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "DEFAULT"
	}
	return strings.Join(parts, "|")
}

// MessageFlags is the 1-byte flag field of the message header.
type MessageFlags uint8

const (
	MsgEvent         MessageFlags = 0x01
	MsgBackupAware   MessageFlags = 0x02
	MsgBackupEvent   MessageFlags = 0x04
	MsgEndFragment   MessageFlags = 0x40
	MsgBeginFragment MessageFlags = 0x80

	MsgUnfragmented = MsgBeginFragment | MsgEndFragment

	msgFragmentMask = MsgUnfragmented
)

// Has reports whether all bits of x are set.
func (f MessageFlags) Has(x MessageFlags) bool { return f&x == x }

// Role returns only the fragment role bits.
func (f MessageFlags) Role() MessageFlags { return f & msgFragmentMask }

func (f MessageFlags) String() string {
	parts := make([]string, 0, 3)
	switch f.Role() {
	case MsgUnfragmented:
		parts = append(parts, "UNFRAGMENTED")
	case MsgBeginFragment:
		parts = append(parts, "BEGIN")
	case MsgEndFragment:
		parts = append(parts, "END")
	default:
		parts = append(parts, "MIDDLE")
	}
	if f&MsgEvent != 0 {
		parts = append(parts, "EVENT")
	}
	if f&MsgBackupAware != 0 {
		parts = append(parts, "BACKUP_AWARE")
	}
	if f&MsgBackupEvent != 0 {
		parts = append(parts, "BACKUP_EVENT")
	}
	return strings.Join(parts, "|")
}
