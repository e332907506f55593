package web

import (
	"reflect"

	"github.com/egpivo/metering-chain/internal/entity"
)

type msg struct {
	mType int
	data  []byte
	err   error
}

type BaseMessage struct {
	Name    string
	Payload any
}

func NewMessage(payload any) BaseMessage {
	return BaseMessage{
		Name:    reflect.TypeOf(payload).Name(),
		Payload: payload,
	}
}

// OwnerWindows is pushed to a subscriber after each build.
type OwnerWindows struct {
	Owner   string          `json:"owner"`
	BuildID string          `json:"build_id"`
	Windows []entity.Window `json:"windows"`
}
