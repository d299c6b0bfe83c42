package collab

import (
	"encoding/json"
	"fmt"
	"strings"

	"PPicture/tools/errs"
)

type MessageType string

const (
	TypeInfo       MessageType = "INFO"
	TypeError      MessageType = "ERROR"
	TypeEnterEdit  MessageType = "ENTER_EDIT"
	TypeExitEdit   MessageType = "EXIT_EDIT"
	TypeEditAction MessageType = "EDIT_ACTION"
)

var messageTypeText = map[MessageType]string{
	TypeInfo:       "notice",
	TypeError:      "error",
	TypeEnterEdit:  "enter edit",
	TypeExitEdit:   "exit edit",
	TypeEditAction: "edit action",
}

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	_, ok := messageTypeText[t]
	return ok
}

func (t MessageType) Text() string {
	if s, ok := messageTypeText[t]; ok {
		return s
	}
	return string(t)
}

type EditAction string

const (
	ActionZoomIn      EditAction = "ZOOM_IN"
	ActionZoomOut     EditAction = "ZOOM_OUT"
	ActionRotateLeft  EditAction = "ROTATE_LEFT"
	ActionRotateRight EditAction = "ROTATE_RIGHT"
)

var editActionText = map[EditAction]string{
	ActionZoomIn:      "zoom in",
	ActionZoomOut:     "zoom out",
	ActionRotateLeft:  "rotate left",
	ActionRotateRight: "rotate right",
}

// ParseEditAction 不区分大小写，允许 zoom-in / zoom_in
func ParseEditAction(s string) (EditAction, bool) {
	norm := EditAction(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if _, ok := editActionText[norm]; !ok {
		return "", false
	}
	return norm, true
}

func (a EditAction) Text() string {
	if s, ok := editActionText[a]; ok {
		return s
	}
	return string(a)
}

// InboundMessage 客户端 -> 服务端
type InboundMessage struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action,omitempty"`
}

// OutboundMessage 服务端 -> 客户端
type OutboundMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	Action  EditAction  `json:"action,omitempty"`
	User    *UserView   `json:"user,omitempty"`
}

// DecodeInbound 解析客户端帧；未知 type 不算错误，交给分发器兜底
func DecodeInbound(raw []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, errs.ErrArgs.WrapMsg("malformed message", "err", err.Error(), "len", len(raw))
	}
	msg.Type = MessageType(strings.ToUpper(strings.TrimSpace(string(msg.Type))))
	return &msg, nil
}

func EncodeOutbound(msg *OutboundMessage) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errs.WrapMsg(err, "encode outbound", "type", msg.Type)
	}
	return b, nil
}

// ---- 通知文案 ----

func userName(u *UserView) string {
	if u == nil || u.Name == "" {
		return "anonymous"
	}
	return u.Name
}

func JoinNotice(u *UserView) *OutboundMessage {
	return &OutboundMessage{Type: TypeInfo, Message: fmt.Sprintf("user %s joined editing", userName(u)), User: u}
}

func LeaveNotice(u *UserView) *OutboundMessage {
	return &OutboundMessage{Type: TypeInfo, Message: fmt.Sprintf("user %s left editing", userName(u)), User: u}
}

func EnterEditNotice(u *UserView) *OutboundMessage {
	return &OutboundMessage{Type: TypeEnterEdit, Message: fmt.Sprintf("user %s started editing the picture", userName(u)), User: u}
}

func ExitEditNotice(u *UserView) *OutboundMessage {
	return &OutboundMessage{Type: TypeExitEdit, Message: fmt.Sprintf("user %s exited editing the picture", userName(u)), User: u}
}

func EditActionNotice(u *UserView, a EditAction) *OutboundMessage {
	return &OutboundMessage{
		Type:    TypeEditAction,
		Message: fmt.Sprintf("%s performed %s", userName(u), a.Text()),
		Action:  a,
		User:    u,
	}
}

// ErrorNotice 回给发送方自己；u 为发送方
func ErrorNotice(u *UserView, reason string) *OutboundMessage {
	if reason == "" {
		reason = "unsupported message type"
	}
	return &OutboundMessage{Type: TypeError, Message: reason, User: u}
}
