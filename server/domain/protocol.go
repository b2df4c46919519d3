package domain

import (
	"encoding/binary"
	"errors"
	"time"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	HeaderSize        = 25
	PayloadHeaderSize = 2
	MaxPlayerNameLen  = 32
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロード長
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeInput   DataType = 1
	DataTypeControl DataType = 4
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypeJoin   ControlSubType = 1
	ControlSubTypeLeave  ControlSubType = 2
	ControlSubTypeKick   ControlSubType = 3
	ControlSubTypePing   ControlSubType = 4
	ControlSubTypePong   ControlSubType = 5
	ControlSubTypeError  ControlSubType = 6
	ControlSubTypeAssign ControlSubType = 7
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

// Message はセッションからRoomへ届く生のメッセージです。
type Message struct {
	SessionID SessionID
	Data      []byte
}

var (
	ErrInvalidHeaderSize      = errors.New("invalid header size")
	ErrInvalidPayloadSize     = errors.New("invalid payload size")
	ErrInvalidJoinPayloadSize = errors.New("invalid join payload size")
	ErrPlayerNameTooLong      = errors.New("player name too long")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
	return data
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	data := make([]byte, PayloadHeaderSize)
	data[0] = byte(p.DataType)
	data[1] = p.SubType
	return data
}

// encodeMessage はヘッダー・ペイロードヘッダー・ペイロードを連結します。
func encodeMessage(sessionID SessionID, seq uint16, dataType DataType, subType uint8, payload []byte) []byte {
	header := Header{
		Version:   1,
		SessionID: sessionID.Bytes(),
		Seq:       seq,
		Length:    uint16(PayloadHeaderSize + len(payload)),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}
	payloadHeader := PayloadHeader{DataType: dataType, SubType: subType}

	data := make([]byte, 0, HeaderSize+PayloadHeaderSize+len(payload))
	data = append(data, header.Encode()...)
	data = append(data, payloadHeader.Encode()...)
	data = append(data, payload...)
	return data
}

// EncodeControlMessage はペイロードなしのcontrolメッセージをエンコードする
func EncodeControlMessage(sessionID SessionID, seq uint16, subType ControlSubType) []byte {
	return encodeMessage(sessionID, seq, DataTypeControl, uint8(subType), nil)
}

// EncodeAssignMessage はセッションID通知メッセージをエンコードする
// クライアントに自分のセッションIDを通知するために使用
func EncodeAssignMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypeAssign)
}

// EncodeLeaveMessage はルーム離脱メッセージをエンコードする
// 異常切断時にclose()からRoom離脱を通知するために使用
func EncodeLeaveMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypeLeave)
}

// EncodePingMessage はPingメッセージをエンコードする
func EncodePingMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypePing)
}

// EncodeErrorMessage はエラー理由を載せたcontrolメッセージをエンコードする
func EncodeErrorMessage(sessionID SessionID, reason string) []byte {
	return encodeMessage(sessionID, 0, DataTypeControl, uint8(ControlSubTypeError), []byte(reason))
}

// JoinPayload はルーム参加メッセージのペイロード
//
//	nameLen u8       (1)
//	name    [n]byte  (n) - プレイヤー名 (UTF-8, 最大32バイト)
type JoinPayload struct {
	Name string
}

// ParseJoinPayload はバイト列からJoinPayloadをパースする
func ParseJoinPayload(data []byte) (*JoinPayload, error) {
	if len(data) < 1 {
		return nil, ErrInvalidJoinPayloadSize
	}
	n := int(data[0])
	if n > MaxPlayerNameLen {
		return nil, ErrPlayerNameTooLong
	}
	if len(data) < 1+n {
		return nil, ErrInvalidJoinPayloadSize
	}
	return &JoinPayload{Name: string(data[1 : 1+n])}, nil
}

// Encode はJoinPayloadをバイト列にエンコードする
func (j *JoinPayload) Encode() ([]byte, error) {
	if len(j.Name) > MaxPlayerNameLen {
		return nil, ErrPlayerNameTooLong
	}
	data := make([]byte, 1+len(j.Name))
	data[0] = byte(len(j.Name))
	copy(data[1:], j.Name)
	return data, nil
}

// EncodeJoinMessage はルーム参加メッセージをエンコードする
func EncodeJoinMessage(sessionID SessionID, seq uint16, name string) ([]byte, error) {
	payload, err := (&JoinPayload{Name: name}).Encode()
	if err != nil {
		return nil, err
	}
	return encodeMessage(sessionID, seq, DataTypeControl, uint8(ControlSubTypeJoin), payload), nil
}

// EncodeInputMessage はUserCmdを載せた入力メッセージをエンコードする
func EncodeInputMessage(sessionID SessionID, seq uint16, cmd *UserCmd) []byte {
	return encodeMessage(sessionID, seq, DataTypeInput, 0, cmd.Encode())
}
