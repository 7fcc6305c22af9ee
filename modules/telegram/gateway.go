package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/gatekeepbot/gatekeep/internal/moderation"
)

// verifyPrefix tags callback data carrying a verification button click.
const verifyPrefix = "verify:"

// verifyCallbackData encodes the subject user id into button callback data.
func verifyCallbackData(userID int64) string {
	return verifyPrefix + strconv.FormatInt(userID, 10)
}

// parseVerifyCallback extracts the subject user id from callback data.
// The second return value is false when the data is not a verification
// callback.
func parseVerifyCallback(data string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, verifyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Gateway adapts the Bot API client to the actuator interface consumed
// by the moderation workflow. All messages are sent as HTML.
type Gateway struct {
	client *Client
}

// NewGateway wraps a client in a moderation gateway.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

var _ moderation.Gateway = (*Gateway)(nil)

// SendChallenge posts the welcome message with a confirm button bound to
// the joining user and returns the message id.
func (g *Gateway) SendChallenge(ctx context.Context, chatID int64, user moderation.User, text, button string) (int64, error) {
	msg, err := g.client.SendMessage(ctx, SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{{
				Text:         button,
				CallbackData: verifyCallbackData(user.ID),
			}}},
		},
	})
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessage replaces the message text. Omitting reply_markup drops the
// inline keyboard.
func (g *Gateway) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	_, err := g.client.EditMessageText(ctx, EditMessageTextRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

// DeleteMessage removes a message from the chat.
func (g *Gateway) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return g.client.DeleteMessage(ctx, chatID, messageID)
}

// SendMessage posts a plain notice to the chat.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := g.client.SendMessage(ctx, SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

// RestrictMember revokes all member permissions until the given time.
func (g *Gateway) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	return g.client.RestrictChatMember(ctx, RestrictChatMemberRequest{
		ChatID:      chatID,
		UserID:      userID,
		Permissions: ChatPermissions{},
		UntilDate:   until.Unix(),
	})
}

// GrantSendMessages restores the send-messages permission until the given
// time; Telegram lifts the remaining restrictions when the window expires.
func (g *Gateway) GrantSendMessages(ctx context.Context, chatID, userID int64, until time.Time) error {
	return g.client.RestrictChatMember(ctx, RestrictChatMemberRequest{
		ChatID:      chatID,
		UserID:      userID,
		Permissions: ChatPermissions{CanSendMessages: true},
		UntilDate:   until.Unix(),
	})
}

// BanMember bans a member from the chat.
func (g *Gateway) BanMember(ctx context.Context, chatID, userID int64) error {
	return g.client.BanChatMember(ctx, BanChatMemberRequest{
		ChatID: chatID,
		UserID: userID,
	})
}

// Membership resolves a member's current standing in the chat.
func (g *Gateway) Membership(ctx context.Context, chatID, userID int64) (moderation.MemberInfo, error) {
	member, err := g.client.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return moderation.MemberInfo{}, err
	}

	info := moderation.MemberInfo{User: fromAPIUser(member.User)}
	switch {
	case member.Admin():
		info.Status = moderation.MembershipAdmin
	case member.InChat():
		info.Status = moderation.MembershipMember
	default:
		info.Status = moderation.MembershipAbsent
	}
	return info, nil
}

// Answer acknowledges a button click with a popup alert.
func (g *Gateway) Answer(ctx context.Context, callbackID, text string) error {
	return g.client.AnswerCallbackQuery(ctx, AnswerCallbackQueryRequest{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// Mention renders an HTML deep link to the user, falling back to the
// numeric id when no display name is set.
func (g *Gateway) Mention(user moderation.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(name))
}

// fromAPIUser converts a Bot API user to the workflow's representation.
func fromAPIUser(u User) moderation.User {
	return moderation.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
