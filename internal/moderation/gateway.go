package moderation

import (
	"context"
	"time"
)

// User identifies a chat member as seen in inbound events.
type User struct {
	ID        int64
	IsBot     bool
	FirstName string
	LastName  string
	Username  string
}

// Membership is a user's standing in a chat as reported by the platform.
type Membership int

const (
	// MembershipUnknown means the platform could not resolve the member.
	// The kick body treats it as absent, favoring over-forgiveness over
	// banning a user who already departed.
	MembershipUnknown Membership = iota
	MembershipAbsent
	MembershipMember
	MembershipAdmin
)

// MemberInfo is the result of a membership lookup.
type MemberInfo struct {
	Status Membership
	User   User
}

// Gateway is the messaging-platform actuator consumed by the workflow.
// Every call is fallible; the workflow never assumes success and owns all
// fallback behavior.
type Gateway interface {
	// SendChallenge posts the welcome message with a confirm button bound
	// to user.ID and returns the message id.
	SendChallenge(ctx context.Context, chatID int64, user User, text, button string) (int64, error)

	// EditMessage replaces the message text and removes any buttons.
	EditMessage(ctx context.Context, chatID, messageID int64, text string) error

	DeleteMessage(ctx context.Context, chatID, messageID int64) error

	SendMessage(ctx context.Context, chatID int64, text string) error

	// RestrictMember revokes all member permissions until the given time.
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error

	// GrantSendMessages restores the send-messages permission until the
	// given time; the platform lifts remaining restrictions afterwards.
	GrantSendMessages(ctx context.Context, chatID, userID int64, until time.Time) error

	BanMember(ctx context.Context, chatID, userID int64) error

	Membership(ctx context.Context, chatID, userID int64) (MemberInfo, error)

	// Answer acknowledges a button click with a user-visible notice.
	Answer(ctx context.Context, callbackID, text string) error

	// Mention renders a user reference for message text.
	Mention(user User) string
}
