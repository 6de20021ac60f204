package netcode

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"battle2d/game"
)

const (
	// Version 协议版本，不匹配的包直接丢弃
	Version    = 1
	HeaderSize = 2
	// MaxPayload 单包上限，不做分片
	MaxPayload = 1200
)

var (
	ErrShortPacket = errors.New("netcode: packet shorter than header")
	ErrVersion     = errors.New("netcode: protocol version mismatch")
	ErrUnknownKind = errors.New("netcode: unknown message kind")
	ErrTooLarge    = errors.New("netcode: message exceeds max payload")
	ErrBadMap      = errors.New("netcode: malformed map")
)

// wireMap 占用网格位图（行优先，低位在前）
type wireMap struct {
	W    uint16 `msgpack:"w"`
	H    uint16 `msgpack:"h"`
	Bits []byte `msgpack:"b"`
}

// Encode 包格式：[version][kind] + msgpack 消息体
func Encode(m Message) ([]byte, error) {
	if m.Kind() == KindConnect {
		return nil, fmt.Errorf("%w: %s is local only", ErrUnknownKind, m.Kind())
	}
	var body any = m
	if sm, ok := m.(SetMap); ok {
		if sm.Map == nil {
			return nil, ErrBadMap
		}
		body = packMap(sm.Map)
	}
	b, err := msgpack.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	if HeaderSize+len(b) > MaxPayload {
		return nil, fmt.Errorf("encode %s (%d bytes): %w", m.Kind(), HeaderSize+len(b), ErrTooLarge)
	}
	out := make([]byte, 0, HeaderSize+len(b))
	out = append(out, Version, byte(m.Kind()))
	return append(out, b...), nil
}

// Decode 任何错误都只影响当前这一个包。
// Connect 只由本地传输层合成，线上出现视为未知类型。
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return nil, ErrShortPacket
	}
	if len(b) > MaxPayload {
		return nil, fmt.Errorf("decode %d bytes: %w", len(b), ErrTooLarge)
	}
	if b[0] != Version {
		return nil, fmt.Errorf("%w: got %d", ErrVersion, b[0])
	}
	kind, body := Kind(b[1]), b[HeaderSize:]

	switch kind {
	case KindDisconnect:
		return Disconnect{}, nil
	case KindSetName:
		return decodeAs[SetName](kind, body)
	case KindUpdateInputs:
		return decodeAs[UpdateInputs](kind, body)
	case KindSetNameResponse:
		return decodeAs[SetNameResponse](kind, body)
	case KindPlayerUpdate:
		return decodeAs[PlayerUpdate](kind, body)
	case KindShotUpdate:
		return decodeAs[ShotUpdate](kind, body)
	case KindSetMap:
		var wm wireMap
		if err := unmarshal(kind, body, &wm); err != nil {
			return nil, err
		}
		m, err := unpackMap(wm)
		if err != nil {
			return nil, err
		}
		return SetMap{Map: m}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, b[1])
}

func decodeAs[T Message](kind Kind, body []byte) (Message, error) {
	var m T
	if err := unmarshal(kind, body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshal(kind Kind, body []byte, v any) error {
	if err := msgpack.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

func packMap(m *game.Map) wireMap {
	cells := m.Cells()
	bits := make([]byte, (len(cells)+7)/8)
	for i, occupied := range cells {
		if occupied {
			bits[i/8] |= 1 << (i % 8)
		}
	}
	return wireMap{W: uint16(m.Width()), H: uint16(m.Height()), Bits: bits}
}

func unpackMap(wm wireMap) (*game.Map, error) {
	n := int(wm.W) * int(wm.H)
	if n == 0 || len(wm.Bits) != (n+7)/8 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrBadMap, wm.W, wm.H, len(wm.Bits))
	}
	cells := make([]bool, n)
	for i := range cells {
		cells[i] = wm.Bits[i/8]&(1<<(i%8)) != 0
	}
	m, err := game.NewMap(int(wm.W), int(wm.H), cells)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMap, err)
	}
	return m, nil
}
