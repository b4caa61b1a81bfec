package protocol

import "fmt"

// Response message types.
const (
	ResponseVoid                 uint16 = 100
	ResponseBoolean              uint16 = 101
	ResponseInteger              uint16 = 102
	ResponseLong                 uint16 = 103
	ResponseString               uint16 = 104
	ResponseData                 uint16 = 105
	ResponseListData             uint16 = 106
	ResponseAuthentication       uint16 = 107
	ResponsePartitions           uint16 = 108
	ResponseException            uint16 = 109
	ResponseSetDistributedObject uint16 = 110
	ResponseEntryView            uint16 = 111
	ResponseJobProcessInfo       uint16 = 112
	ResponseSetData              uint16 = 113
	ResponseSetEntry             uint16 = 114
)

// Event message types.
const (
	EventMember                 uint16 = 200
	EventMemberList             uint16 = 201
	EventMemberAttributeChange  uint16 = 202
	EventEntry                  uint16 = 203
	EventItem                   uint16 = 204
	EventTopic                  uint16 = 205
	EventPartitionLost          uint16 = 206
	EventDistributedObject      uint16 = 207
	EventCacheInvalidation      uint16 = 208
	EventMapPartitionLost       uint16 = 209
	EventCache                  uint16 = 210
	EventCacheBatchInvalidation uint16 = 211
	EventQueryCacheSingle       uint16 = 212
	EventQueryCacheBatch        uint16 = 213
)

const (
	reservedTypeMin uint16 = 500
	reservedTypeMax uint16 = 600
	// UserTypeMin is the first message type open to applications.
	UserTypeMin uint16 = 1000
)

// TypeKind classifies a message type by its reserved range.
type TypeKind int

const (
	KindRequest TypeKind = iota
	KindResponse
	KindEvent
	KindReserved
	KindUser
)

func (k TypeKind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	case KindReserved:
		return "reserved"
	case KindUser:
		return "user"
	default:
		return "request"
	}
}

// ClassifyMessageType maps t to the range it belongs to. Types outside the
// response, event, reserved and user ranges are requests.
func ClassifyMessageType(t uint16) TypeKind {
	switch {
	case t >= ResponseVoid && t <= ResponseSetEntry:
		return KindResponse
	case t >= EventMember && t <= EventQueryCacheBatch:
		return KindEvent
	case t >= reservedTypeMin && t <= reservedTypeMax:
		return KindReserved
	case t >= UserTypeMin:
		return KindUser
	default:
		return KindRequest
	}
}

var typeNames = map[uint16]string{
	ResponseVoid:                 "VOID",
	ResponseBoolean:              "BOOLEAN",
	ResponseInteger:              "INTEGER",
	ResponseLong:                 "LONG",
	ResponseString:               "STRING",
	ResponseData:                 "DATA",
	ResponseListData:             "LIST_DATA",
	ResponseAuthentication:       "AUTHENTICATION",
	ResponsePartitions:           "PARTITIONS",
	ResponseException:            "EXCEPTION",
	ResponseSetDistributedObject: "SET_DISTRIBUTED_OBJECT",
	ResponseEntryView:            "ENTRY_VIEW",
	ResponseJobProcessInfo:       "JOB_PROCESS_INFO",
	ResponseSetData:              "SET_DATA",
	ResponseSetEntry:             "SET_ENTRY",
	EventMember:                  "EVENT_MEMBER",
	EventMemberList:              "EVENT_MEMBERLIST",
	EventMemberAttributeChange:   "EVENT_MEMBERATTRIBUTECHANGE",
	EventEntry:                   "EVENT_ENTRY",
	EventItem:                    "EVENT_ITEM",
	EventTopic:                   "EVENT_TOPIC",
	EventPartitionLost:           "EVENT_PARTITIONLOST",
	EventDistributedObject:       "EVENT_DISTRIBUTEDOBJECT",
	EventCacheInvalidation:       "EVENT_CACHEINVALIDATION",
	EventMapPartitionLost:        "EVENT_MAPPARTITIONLOST",
	EventCache:                   "EVENT_CACHE",
	EventCacheBatchInvalidation:  "EVENT_CACHEBATCHINVALIDATION",
	EventQueryCacheSingle:        "EVENT_QUERYCACHESINGLE",
	EventQueryCacheBatch:         "EVENT_QUERYCACHEBATCH",
}

// TypeName returns a diagnostic name for t.
func TypeName(t uint16) string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%s(%d)", ClassifyMessageType(t), t)
}
