// Package gateway abstracts the chat platform the engine runs against.
// Event delivery and every outbound effect go through the Gateway
// interface; adapters implement the subset their platform supports and
// return ErrUnsupported for the rest.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned by adapters for calls the underlying
	// platform cannot express (for example role edits on Telegram).
	ErrUnsupported = errors.New("operation not supported by chat platform")

	// ErrNotFound is returned when a channel, member or message
	// reference does not resolve on the platform.
	ErrNotFound = errors.New("not found on chat platform")
)

type Role struct {
	ID            int64
	Name          string
	Administrator bool
}

// Activity is one presence entry of a member. Rich (music) activities
// carry Title/Artist, plain ones only Name.
type Activity struct {
	Name   string
	Title  string
	Artist string
}

type Member struct {
	ID          int64
	DisplayName string
	Bot         bool
	Owner       bool
	Roles       []Role
	Activities  []Activity
}

type Channel struct {
	ID   int64
	Name string
}

type Attachment struct {
	Filename string
}

// Reaction is a tallied reaction on a message. CustomID is non-zero for
// platform-specific custom emoji, Emoji carries the literal otherwise.
type Reaction struct {
	Emoji    string
	CustomID int64
	Count    int
}

type Message struct {
	ID          int64
	ChannelID   int64
	AuthorID    int64
	Content     string
	Attachments []Attachment
	Reactions   []Reaction
}

type Gateway interface {
	Send(ctx context.Context, channelID int64, text string) (Message, error)
	Reply(ctx context.Context, channelID, messageID int64, text string) (Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID int64, delay time.Duration) error
	AddReaction(ctx context.Context, channelID, messageID int64, emoji string) error
	FetchChannel(ctx context.Context, channelID int64) (Channel, error)
	FetchMember(ctx context.Context, memberID int64) (Member, error)
	FetchMessage(ctx context.Context, channelID, messageID int64) (Message, error)
	Timeout(ctx context.Context, memberID int64, d time.Duration) error
	Kick(ctx context.Context, memberID int64) error
	Ban(ctx context.Context, memberID int64) error
	SetNick(ctx context.Context, memberID int64, nick string) error
	AddRole(ctx context.Context, memberID, roleID int64) error
	RemoveRole(ctx context.Context, memberID, roleID int64) error
}

// PermissionOracle decides which members are exempt from rule
// enforcement and which already sit outside moderation scope.
type PermissionOracle interface {
	IsImmune(m Member) bool
	IsBanned(m Member) bool
}

// EventContext carries the pieces of the triggering event a rule or an
// action may need. Every field is optional; variants fall back to
// documented defaults when a field is absent.
type EventContext struct {
	Actor    *Member
	Channel  *Channel
	Message  *Message
	Reaction *Reaction
}
