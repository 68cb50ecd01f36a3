package repositories

import (
	"time"
	"tipster-chat/domain"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// encMode uses Core Deterministic Encoding: the same message always produces the same bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields so older binaries keep reading newer records.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repositories: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("repositories: CBOR decoder initialization failed: " + err.Error())
	}
}

// diskMessage is the stored form of a chat message.
// Integer keys keep records small, never renumber them.
type diskMessage struct {
	ID       string   `cbor:"1,keyasint"`
	Room     string   `cbor:"2,keyasint"`
	Sender   string   `cbor:"3,keyasint"`
	Body     string   `cbor:"4,keyasint"`
	At       int64    `cbor:"5,keyasint"`
	Mentions []string `cbor:"6,keyasint,omitempty"`
	Lang     string   `cbor:"7,keyasint,omitempty"`
}

func fromChatMessage(message domain.ChatMessage) diskMessage {
	return diskMessage{
		ID:       message.ID.String(),
		Room:     string(message.Room),
		Sender:   message.Sender,
		Body:     message.Body,
		At:       message.At.UnixNano(),
		Mentions: message.Mentions,
		Lang:     message.Lang,
	}
}

func toChatMessage(dm diskMessage) (domain.ChatMessage, error) {
	id, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	mentions := dm.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return domain.ChatMessage{
		ID:       id,
		Room:     domain.RoomID(dm.Room),
		Sender:   dm.Sender,
		Body:     dm.Body,
		At:       time.Unix(0, dm.At).UTC(),
		Mentions: mentions,
		Lang:     dm.Lang,
	}, nil
}

func marshalMessage(message domain.ChatMessage) ([]byte, error) {
	return encMode.Marshal(fromChatMessage(message))
}

func unmarshalMessage(data []byte) (domain.ChatMessage, error) {
	var dm diskMessage
	if err := decMode.Unmarshal(data, &dm); err != nil {
		return domain.ChatMessage{}, err
	}
	return toChatMessage(dm)
}

func marshalMentions(mentions []string) ([]byte, error) {
	return encMode.Marshal(mentions)
}

func unmarshalMentions(data []byte) ([]string, error) {
	mentions := []string{}
	if len(data) == 0 {
		return mentions, nil
	}
	if err := decMode.Unmarshal(data, &mentions); err != nil {
		return nil, err
	}
	if mentions == nil {
		mentions = []string{}
	}
	return mentions, nil
}
