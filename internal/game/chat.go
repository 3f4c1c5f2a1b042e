package game

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scythe504/mafia-backend/internal"
)

// SendChat posts text to a room channel. The public channel is open to the
// host and living players; the mafia channel to living Mafia, and only
// Mafia receive it.
func (r *Registry) SendChat(connID, code string, channel internal.ChatChannel, text string) error {
	text = strings.TrimSpace(text)
	var err error
	switch {
	case text == "":
		err = fmt.Errorf("%w: message", ErrEmptyInput)
	case utf8.RuneCountInString(text) > internal.MaxChatLength:
		err = fmt.Errorf("%w: message over %d characters", ErrInputTooLong, internal.MaxChatLength)
	case channel == "":
		channel = internal.ChannelPublic
	case channel != internal.ChannelPublic && channel != internal.ChannelMafia:
		err = fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if err != nil {
		r.reject(internal.ReqChat, code, err)
		return err
	}

	err = r.withRoom(code, func(room *internal.Room) error {
		b, ok := r.sessions.Lookup(connID)
		if !ok || b.RoomCode != room.Code {
			return ErrNotInRoom
		}
		msg := internal.ChatMessageData{
			RoomCode: room.Code,
			Channel:  channel,
			Text:     text,
			SentAt:   r.clock.Now(),
		}

		if b.IsHost {
			if room.Host == nil || room.Host.ConnID != connID {
				return ErrNotInRoom
			}
			if channel == internal.ChannelMafia {
				return ErrLacksRole
			}
			msg.Sender = room.Host.Name
			r.broadcastChat(room, msg)
			return nil
		}

		p := room.GetPlayer(b.PlayerID)
		if p == nil || p.ConnID != connID {
			return ErrNotInRoom
		}
		if !p.IsAlive {
			return ErrActorNotAlive
		}
		msg.SenderID = p.Id
		msg.Sender = p.Username

		if channel == internal.ChannelMafia {
			if !p.IsMafia() {
				return ErrLacksRole
			}
			out := internal.Message[internal.ChatMessageData]{Type: internal.MsgChatMessage, Data: msg}
			for _, m := range room.MafiaMembers() {
				r.sendTo(m.ConnID, out)
			}
			return nil
		}
		r.broadcastChat(room, msg)
		return nil
	})
	r.reject(internal.ReqChat, code, err)
	return err
}

func (r *Registry) broadcastChat(room *internal.Room, msg internal.ChatMessageData) {
	r.transport.BroadcastToRoom(room.Code, internal.Message[internal.ChatMessageData]{
		Type: internal.MsgChatMessage,
		Data: msg,
	})
}
