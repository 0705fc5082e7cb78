package consensus

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrBadWalBytes is returned when a blob does not decode as a valid
// WalInfo encoding. In the harness this always means fixture corruption.
var ErrBadWalBytes = errors.New("malformed wal state")

// Field numbers of the wire format. The encoder emits every field of a
// message in ascending number order, the only optional one being the lock,
// and the decoder accepts exactly that shape. The strictness is what makes
// the codec byte-reproducing: Encode(Decode(b)) == b for every b that
// Encode can produce.
const (
	fieldWalHeight = 1
	fieldWalRound  = 2
	fieldWalStep   = 3
	fieldWalLock   = 4

	fieldLockRound = 1
	fieldLockBlock = 2

	fieldBlockHeight   = 1
	fieldBlockPrevHash = 2
	fieldBlockHash     = 3
	fieldBlockPayload  = 4
)

// Encode renders the WalInfo into the binary form the engine hands to its
// Wal capability.
func Encode(info *WalInfo) []byte {
	buf := protowire.AppendTag(nil, fieldWalHeight, protowire.VarintType)
	buf = protowire.AppendVarint(buf, info.Height)
	buf = protowire.AppendTag(buf, fieldWalRound, protowire.VarintType)
	buf = protowire.AppendVarint(buf, info.Round)
	buf = protowire.AppendTag(buf, fieldWalStep, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(info.Step))

	if info.Lock != nil {
		buf = protowire.AppendTag(buf, fieldWalLock, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeLock(info.Lock))
	}

	return buf
}

func encodeLock(lock *Lock) []byte {
	buf := protowire.AppendTag(nil, fieldLockRound, protowire.VarintType)
	buf = protowire.AppendVarint(buf, lock.Round)
	buf = protowire.AppendTag(buf, fieldLockBlock, protowire.BytesType)
	buf = protowire.AppendBytes(buf, encodeBlock(&lock.Block))

	return buf
}

func encodeBlock(block *Block) []byte {
	buf := protowire.AppendTag(nil, fieldBlockHeight, protowire.VarintType)
	buf = protowire.AppendVarint(buf, block.Height)
	buf = protowire.AppendTag(buf, fieldBlockPrevHash, protowire.BytesType)
	buf = protowire.AppendBytes(buf, block.PrevHash)
	buf = protowire.AppendTag(buf, fieldBlockHash, protowire.BytesType)
	buf = protowire.AppendBytes(buf, block.Hash)
	buf = protowire.AppendTag(buf, fieldBlockPayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, block.Payload)

	return buf
}

// Decode parses a blob produced by Encode. Any deviation from the
// canonical field layout is reported as ErrBadWalBytes.
func Decode(raw []byte) (*WalInfo, error) {
	r := fieldReader{buf: raw}

	var (
		info WalInfo
		err  error
	)

	if info.Height, err = r.uvarint(fieldWalHeight); err != nil {
		return nil, err
	}

	if info.Round, err = r.uvarint(fieldWalRound); err != nil {
		return nil, err
	}

	step, err := r.uvarint(fieldWalStep)
	if err != nil {
		return nil, err
	}

	if step > uint64(StepCommit) {
		return nil, fmt.Errorf("%w: unknown step %d", ErrBadWalBytes, step)
	}

	info.Step = Step(step)

	if !r.empty() {
		lockBuf, err := r.bytes(fieldWalLock)
		if err != nil {
			return nil, err
		}

		if info.Lock, err = decodeLock(lockBuf); err != nil {
			return nil, err
		}
	}

	if !r.empty() {
		return nil, fmt.Errorf("%w: trailing bytes", ErrBadWalBytes)
	}

	return &info, nil
}

func decodeLock(raw []byte) (*Lock, error) {
	r := fieldReader{buf: raw}

	var (
		lock Lock
		err  error
	)

	if lock.Round, err = r.uvarint(fieldLockRound); err != nil {
		return nil, err
	}

	blockBuf, err := r.bytes(fieldLockBlock)
	if err != nil {
		return nil, err
	}

	if !r.empty() {
		return nil, fmt.Errorf("%w: trailing bytes in lock", ErrBadWalBytes)
	}

	if err := decodeBlock(blockBuf, &lock.Block); err != nil {
		return nil, err
	}

	return &lock, nil
}

func decodeBlock(raw []byte, block *Block) error {
	r := fieldReader{buf: raw}

	var err error

	if block.Height, err = r.uvarint(fieldBlockHeight); err != nil {
		return err
	}

	if block.PrevHash, err = r.bytes(fieldBlockPrevHash); err != nil {
		return err
	}

	if block.Hash, err = r.bytes(fieldBlockHash); err != nil {
		return err
	}

	if block.Payload, err = r.bytes(fieldBlockPayload); err != nil {
		return err
	}

	if !r.empty() {
		return fmt.Errorf("%w: trailing bytes in block", ErrBadWalBytes)
	}

	return nil
}

// fieldReader consumes wire fields sequentially, enforcing the expected
// field number and type at every position.
type fieldReader struct {
	buf []byte
}

func (r *fieldReader) empty() bool {
	return len(r.buf) == 0
}

func (r *fieldReader) tag(num protowire.Number, typ protowire.Type) error {
	gotNum, gotTyp, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		return fmt.Errorf("%w: %v", ErrBadWalBytes, protowire.ParseError(n))
	}

	if gotNum != num || gotTyp != typ {
		return fmt.Errorf("%w: unexpected field %d", ErrBadWalBytes, gotNum)
	}

	r.buf = r.buf[n:]

	return nil
}

func (r *fieldReader) uvarint(num protowire.Number) (uint64, error) {
	if err := r.tag(num, protowire.VarintType); err != nil {
		return 0, err
	}

	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", ErrBadWalBytes, protowire.ParseError(n))
	}

	r.buf = r.buf[n:]

	return v, nil
}

func (r *fieldReader) bytes(num protowire.Number) ([]byte, error) {
	if err := r.tag(num, protowire.BytesType); err != nil {
		return nil, err
	}

	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadWalBytes, protowire.ParseError(n))
	}

	r.buf = r.buf[n:]

	return v, nil
}
