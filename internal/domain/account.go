package domain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Ошибки декодирования аккаунтов.
var (
	// ErrInvalidAccount — данные аккаунта не соответствуют ожидаемой схеме.
	ErrInvalidAccount = errors.New("invalid account data")

	// ErrDiscriminatorMismatch — аккаунт другого типа.
	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")
)

// clockSysvarSize — размер sysvar Clock: slot, epoch_start_timestamp, epoch,
// leader_schedule_epoch, unix_timestamp.
const clockSysvarSize = 40

// Формат аккаунтов: 8 байт дискриминатора Anchor + поля в Borsh.
//
//	Queue: manager Pubkey | exec_at Option<i64> | schedule String | status enum | task_count u64
//	Task:  queue Pubkey | index u64 | ixs Vec<InstructionData>
//	Pool:  delegates Vec<Pubkey>
//
// Статус очереди: u8 вариант (0 Pending, 1 Paused, 2 Processing{u64}).

// DecodeQueue декодирует аккаунт очереди.
func DecodeQueue(data []byte) (*Queue, error) {
	dec, err := accountDecoder(data, QueueDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}

	var q Queue
	if q.Manager, err = readPubkey(dec); err != nil {
		return nil, fmt.Errorf("queue manager: %w", err)
	}

	hasExecAt, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("queue exec_at tag: %w", wrapEOF(err))
	}
	switch hasExecAt {
	case 0:
	case 1:
		execAt, err := dec.ReadInt64(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("queue exec_at: %w", wrapEOF(err))
		}
		q.ExecAt = &execAt
	default:
		return nil, fmt.Errorf("%w: exec_at option tag %d", ErrInvalidAccount, hasExecAt)
	}

	if q.Schedule, err = readString(dec); err != nil {
		return nil, fmt.Errorf("queue schedule: %w", err)
	}

	kind, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("queue status: %w", wrapEOF(err))
	}
	switch QueueStatusKind(kind) {
	case QueueStatusPending:
		q.Status = Pending()
	case QueueStatusPaused:
		q.Status = Paused()
	case QueueStatusProcessing:
		idx, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("queue status task index: %w", wrapEOF(err))
		}
		q.Status = Processing(idx)
	default:
		return nil, fmt.Errorf("%w: unknown queue status %d", ErrInvalidAccount, kind)
	}

	if q.TaskCount, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("queue task_count: %w", wrapEOF(err))
	}

	return &q, nil
}

// DecodeTask декодирует аккаунт task.
func DecodeTask(data []byte) (*Task, error) {
	dec, err := accountDecoder(data, TaskDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}

	var t Task
	if t.Queue, err = readPubkey(dec); err != nil {
		return nil, fmt.Errorf("task queue: %w", err)
	}
	if t.Index, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("task index: %w", wrapEOF(err))
	}

	n, err := readLen(dec)
	if err != nil {
		return nil, fmt.Errorf("task ixs: %w", err)
	}
	t.Instructions = make([]InstructionData, 0, n)
	for i := 0; i < n; i++ {
		ix, err := readInstruction(dec)
		if err != nil {
			return nil, fmt.Errorf("task ix %d: %w", i, err)
		}
		t.Instructions = append(t.Instructions, ix)
	}

	return &t, nil
}

// DecodePool декодирует аккаунт пула делегатов.
func DecodePool(data []byte) (*Pool, error) {
	dec, err := accountDecoder(data, PoolDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}

	n, err := readLen(dec)
	if err != nil {
		return nil, fmt.Errorf("pool delegates: %w", err)
	}
	p := &Pool{Delegates: make([]solana.PublicKey, 0, n)}
	for i := 0; i < n; i++ {
		key, err := readPubkey(dec)
		if err != nil {
			return nil, fmt.Errorf("pool delegate %d: %w", i, err)
		}
		p.Delegates = append(p.Delegates, key)
	}
	return p, nil
}

// DecodeClock декодирует sysvar Clock.
func DecodeClock(data []byte) (*Clock, error) {
	if len(data) < clockSysvarSize {
		return nil, fmt.Errorf("%w: clock sysvar is %d bytes", ErrInvalidAccount, len(data))
	}
	return &Clock{
		Slot:          binary.LittleEndian.Uint64(data[0:8]),
		UnixTimestamp: int64(binary.LittleEndian.Uint64(data[32:40])),
	}, nil
}

// MarshalQueue сериализует очередь в формат аккаунта.
func MarshalQueue(q *Queue) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(QueueDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(q.Manager.Bytes(), false); err != nil {
		return nil, err
	}
	if q.ExecAt == nil {
		if err := enc.WriteUint8(0); err != nil {
			return nil, err
		}
	} else {
		if err := enc.WriteUint8(1); err != nil {
			return nil, err
		}
		if err := enc.WriteInt64(*q.ExecAt, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := writeString(enc, q.Schedule); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(uint8(q.Status.Kind)); err != nil {
		return nil, err
	}
	if q.Status.Kind == QueueStatusProcessing {
		if err := enc.WriteUint64(q.Status.TaskIndex, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint64(q.TaskCount, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalTask сериализует task в формат аккаунта.
func MarshalTask(t *Task) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(TaskDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(t.Queue.Bytes(), false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(t.Index, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(t.Instructions)), binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, ix := range t.Instructions {
		if err := writeInstruction(enc, ix); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// MarshalPool сериализует пул делегатов в формат аккаунта.
func MarshalPool(p *Pool) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(PoolDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(p.Delegates)), binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, d := range p.Delegates {
		if err := enc.WriteBytes(d.Bytes(), false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// accountDecoder проверяет дискриминатор и возвращает decoder, стоящий на первом поле.
func accountDecoder(data []byte, want [8]byte) (*bin.Decoder, error) {
	if len(data) < len(want) {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAccount, len(data))
	}
	if !bytes.Equal(data[:len(want)], want[:]) {
		return nil, ErrDiscriminatorMismatch
	}
	return bin.NewBorshDecoder(data[len(want):]), nil
}

func readInstruction(dec *bin.Decoder) (InstructionData, error) {
	var ix InstructionData
	var err error

	if ix.ProgramID, err = readPubkey(dec); err != nil {
		return ix, err
	}

	n, err := readLen(dec)
	if err != nil {
		return ix, err
	}
	ix.Accounts = make([]AccountMetaData, 0, n)
	for i := 0; i < n; i++ {
		key, err := readPubkey(dec)
		if err != nil {
			return ix, err
		}
		isSigner, err := dec.ReadBool()
		if err != nil {
			return ix, wrapEOF(err)
		}
		isWritable, err := dec.ReadBool()
		if err != nil {
			return ix, wrapEOF(err)
		}
		ix.Accounts = append(ix.Accounts, NewAccountMetaData(key, isSigner, isWritable))
	}

	size, err := readLen(dec)
	if err != nil {
		return ix, err
	}
	if ix.Data, err = dec.ReadNBytes(size); err != nil {
		return ix, wrapEOF(err)
	}
	return ix, nil
}

func writeInstruction(enc *bin.Encoder, ix InstructionData) error {
	if err := enc.WriteBytes(ix.ProgramID.Bytes(), false); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(ix.Accounts)), binary.LittleEndian); err != nil {
		return err
	}
	for _, acc := range ix.Accounts {
		if err := enc.WriteBytes(acc.PublicKey.Bytes(), false); err != nil {
			return err
		}
		if err := enc.WriteBool(acc.IsSigner); err != nil {
			return err
		}
		if err := enc.WriteBool(acc.IsWritable); err != nil {
			return err
		}
	}
	if err := enc.WriteUint32(uint32(len(ix.Data)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(ix.Data, false)
}

func readPubkey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, wrapEOF(err)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// readLen читает длину вектора и проверяет, что она не превышает остаток данных.
func readLen(dec *bin.Decoder) (int, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, wrapEOF(err)
	}
	if int(n) > dec.Remaining() {
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrInvalidAccount, n, dec.Remaining())
	}
	return int(n), nil
}

func readString(dec *bin.Decoder) (string, error) {
	n, err := readLen(dec)
	if err != nil {
		return "", err
	}
	raw, err := dec.ReadNBytes(n)
	if err != nil {
		return "", wrapEOF(err)
	}
	return string(raw), nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func wrapEOF(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
}
