package netcode

import (
	"fmt"

	"battle2d/game"
)

// Kind 消息类型，位于包头第二个字节
type Kind uint8

const (
	// 客户端 → 主机
	KindSetName Kind = iota + 1
	KindUpdateInputs
	KindDisconnect

	// 主机 → 客户端
	KindSetNameResponse
	KindSetMap
	KindPlayerUpdate
	KindShotUpdate

	// 传输层连接事件，仅在本地合成
	KindConnect
)

func (k Kind) String() string {
	switch k {
	case KindSetName:
		return "SetName"
	case KindUpdateInputs:
		return "UpdateInputs"
	case KindDisconnect:
		return "Disconnect"
	case KindSetNameResponse:
		return "SetNameResponse"
	case KindSetMap:
		return "SetMap"
	case KindPlayerUpdate:
		return "PlayerUpdate"
	case KindShotUpdate:
		return "ShotUpdate"
	case KindConnect:
		return "Connect"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message 协议消息（带标签的联合体）
type Message interface {
	Kind() Kind
}

type Connect struct{}

type Disconnect struct{}

type SetName struct {
	Name string `msgpack:"n"`
}

type UpdateInputs struct {
	Inputs game.Inputs `msgpack:"i"`
}

type SetNameResponse struct {
	Accepted bool `msgpack:"a"`
}

// SetMap 整图替换；线上以位图编码
type SetMap struct {
	Map *game.Map `msgpack:"-"`
}

type PlayerUpdate struct {
	State  game.PlayerState `msgpack:"s"`
	Inputs game.Inputs      `msgpack:"i"`
}

type ShotUpdate struct {
	State game.ShotState `msgpack:"s"`
}

func (Connect) Kind() Kind         { return KindConnect }
func (Disconnect) Kind() Kind      { return KindDisconnect }
func (SetName) Kind() Kind         { return KindSetName }
func (UpdateInputs) Kind() Kind    { return KindUpdateInputs }
func (SetNameResponse) Kind() Kind { return KindSetNameResponse }
func (SetMap) Kind() Kind          { return KindSetMap }
func (PlayerUpdate) Kind() Kind    { return KindPlayerUpdate }
func (ShotUpdate) Kind() Kind      { return KindShotUpdate }
