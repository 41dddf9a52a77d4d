package frame

// Kind is the outer demo command enum carried in the low 6 bits of a
// frame's cmd varint (§6). The upstream engine also defines a DEM_Error
// value of -1 used only as an out-of-band "unrecognized" marker; csdemo
// surfaces that case as errs.ErrUnknownDemoCmd instead of a Kind value.
type Kind int32

const (
	KindStop                Kind = 0
	KindFileHeader          Kind = 1
	KindFileInfo            Kind = 2
	KindSyncTick            Kind = 3
	KindSendTables          Kind = 4
	KindClassInfo           Kind = 5
	KindStringTables        Kind = 6
	KindPacket              Kind = 7
	KindSignonPacket        Kind = 8
	KindConsoleCmd          Kind = 9
	KindCustomData          Kind = 10
	KindCustomDataCallbacks Kind = 11
	KindUserCmd             Kind = 12
	KindFullPacket          Kind = 13
	KindSaveGame            Kind = 14
	KindSpawnGroups         Kind = 15
	KindAnimationData       Kind = 16
	KindMax                 Kind = 17
)

// CompressedFlag is bit 6 of the outer cmd varint (value 64): when set, the
// frame's payload bytes are Snappy/s2-compressed.
const CompressedFlag int32 = 64

var kindNames = map[Kind]string{
	KindStop:                "Stop",
	KindFileHeader:          "FileHeader",
	KindFileInfo:            "FileInfo",
	KindSyncTick:            "SyncTick",
	KindSendTables:          "SendTables",
	KindClassInfo:           "ClassInfo",
	KindStringTables:        "StringTables",
	KindPacket:              "Packet",
	KindSignonPacket:        "SignonPacket",
	KindConsoleCmd:          "ConsoleCmd",
	KindCustomData:          "CustomData",
	KindCustomDataCallbacks: "CustomDataCallbacks",
	KindUserCmd:             "UserCmd",
	KindFullPacket:          "FullPacket",
	KindSaveGame:            "SaveGame",
	KindSpawnGroups:         "SpawnGroups",
	KindAnimationData:       "AnimationData",
	KindMax:                 "Max",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// KindFromInt maps the masked low bits of a frame's cmd varint to a Kind,
// mirroring demo_cmd_type_from_int in the original implementation.
func KindFromInt(v int32) (Kind, bool) {
	if v < int32(KindStop) || v > int32(KindMax) {
		return 0, false
	}
	return Kind(v), true
}
