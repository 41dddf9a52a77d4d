// Package errs defines the error taxonomy shared by every csdemo package.
//
// Every fallible operation in the decoding pipeline returns one of the
// sentinel errors below, usually wrapped with fmt.Errorf("...: %w", ...)
// so that callers can both read a human message and dispatch on the
// underlying kind with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// Structural errors: something is wrong with the outer frame stream.
var (
	ErrUnknownFile      = errors.New("csdemo: unrecognized file format")
	ErrSource1Demo      = errors.New("csdemo: Source 1 (HL2DEMO) dialect is not supported")
	ErrDemoEndsEarly    = errors.New("csdemo: demo ends before expected content")
	ErrOutOfBytes       = errors.New("csdemo: attempted to read past the end of the buffer")
	ErrOutOfBits        = errors.New("csdemo: attempted to read past the end of the bitstream")
	ErrMalformedMessage = errors.New("csdemo: malformed protobuf message")
	ErrDecompression    = errors.New("csdemo: failed to decompress frame payload")
	ErrUnknownDemoCmd   = errors.New("csdemo: unknown outer demo command")
	ErrImpossibleCmd    = errors.New("csdemo: impossible/unsupported inner command")
)

// Schema errors: the send-table / class layer couldn't resolve something.
var (
	ErrNoSendTableMessage           = errors.New("csdemo: no SendTables message seen before entity decoding")
	ErrPropTypeNotFound             = errors.New("csdemo: no decoder for property type")
	ErrUnknownPropName              = errors.New("csdemo: unknown property name requested")
	ErrFieldNoDecoder               = errors.New("csdemo: field has no assigned decoder")
	ErrIncorrectMetaDataProp        = errors.New("csdemo: metadata property has an unexpected shape")
	ErrClsIDOutOfBounds             = errors.New("csdemo: class id out of bounds")
	ErrClassMapperNotFoundFirstPass = errors.New("csdemo: class registry was not populated during first pass")
)

// Runtime state errors: the entity/path-decoding state machine broke an invariant.
var (
	ErrEntityNotFound      = errors.New("csdemo: entity not found")
	ErrClassNotFound       = errors.New("csdemo: class not found")
	ErrStringTableNotFound = errors.New("csdemo: string table not found")
	ErrUnknownPathOp       = errors.New("csdemo: unknown field path operation")
	ErrIllegalPathOp       = errors.New("csdemo: field path operation overflowed the path cursor")
	ErrVectorResizeFailure = errors.New("csdemo: failed to resize a vector-typed value")
)

// Event-layer errors.
var (
	ErrGameEventListNotSet       = errors.New("csdemo: GameEventList was never seen")
	ErrGameEventUnknownID        = errors.New("csdemo: game event descriptor id not found")
	ErrUnknownGameEventVariant   = errors.New("csdemo: unknown game event key variant")
	ErrUnknownPawnPrefix         = errors.New("csdemo: unrecognized pawn-handle key prefix")
	ErrUnknownEntityHandle       = errors.New("csdemo: entity handle does not resolve to a live entity")
	ErrEventListFallbackNotFound = errors.New("csdemo: event list fallback lookup failed")
	ErrUserIDNotFound            = errors.New("csdemo: userid not found among tracked players")
	ErrNoEvents                  = errors.New("csdemo: no events were requested or produced")
)

// I/O errors.
var (
	ErrFileNotFound         = errors.New("csdemo: file not found")
	ErrFailedByteRead       = errors.New("csdemo: failed to read bytes from source")
	ErrVoiceDataWrite       = errors.New("csdemo: failed to write decoded voice data")
	ErrUnknownVoiceFormat   = errors.New("csdemo: unrecognized voice codec")
	ErrMalformedVoicePacket = errors.New("csdemo: malformed voice packet")
)

// DecodeError wraps a sentinel error with the frame/tick context that was
// active when the error occurred, matching the teacher's convention of
// attaching positional context via fmt.Errorf("...: %w", err) rather than
// defining one bespoke error type per call site.
type DecodeError struct {
	Offset int64
	Tick   int32
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("at offset %d tick %d: %s", e.Offset, e.Tick, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// At wraps err with positional context.
func At(offset int64, tick int32, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Offset: offset, Tick: tick, Err: err}
}
