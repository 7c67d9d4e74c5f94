// Package gatewaytest provides an in-memory Gateway for service tests.
package gatewaytest

import (
	"context"
	"sync"
	"time"

	"github.com/ivankudzin/guildmod/internal/gateway"
)

type SentMessage struct {
	ChannelID int64
	ReplyToID int64
	Text      string
}

type RoleChange struct {
	MemberID int64
	RoleID   int64
}

// Fake implements gateway.Gateway against in-memory state. Tests seed
// Members/Channels, observe Sent/Kicked/Banned and friends, and inject
// reaction tallies with SetReactions before a poll re-fetches its
// message. Errs forces a named call to fail.
type Fake struct {
	mu sync.Mutex

	Members  map[int64]gateway.Member
	Channels map[int64]gateway.Channel
	messages map[int64]gateway.Message

	Sent         []SentMessage
	Deleted      []int64
	DeleteDelays []time.Duration
	Reactions    map[int64][]string
	Kicked       []int64
	Banned       []int64
	TimedOut     map[int64]time.Duration
	Nicks        map[int64]string
	RolesAdded   []RoleChange
	RolesRemoved []RoleChange

	Errs map[string]error

	nextMessageID int64
}

func New() *Fake {
	return &Fake{
		Members:   make(map[int64]gateway.Member),
		Channels:  make(map[int64]gateway.Channel),
		messages:  make(map[int64]gateway.Message),
		Reactions: make(map[int64][]string),
		TimedOut:  make(map[int64]time.Duration),
		Nicks:     make(map[int64]string),
		Errs:      make(map[string]error),
	}
}

func (f *Fake) fail(op string) error {
	if err, ok := f.Errs[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) Send(_ context.Context, channelID int64, text string) (gateway.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("send"); err != nil {
		return gateway.Message{}, err
	}
	f.nextMessageID++
	msg := gateway.Message{ID: f.nextMessageID, ChannelID: channelID, Content: text}
	f.messages[msg.ID] = msg
	f.Sent = append(f.Sent, SentMessage{ChannelID: channelID, Text: text})
	return msg, nil
}

func (f *Fake) Reply(_ context.Context, channelID, messageID int64, text string) (gateway.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("reply"); err != nil {
		return gateway.Message{}, err
	}
	f.nextMessageID++
	msg := gateway.Message{ID: f.nextMessageID, ChannelID: channelID, Content: text}
	f.messages[msg.ID] = msg
	f.Sent = append(f.Sent, SentMessage{ChannelID: channelID, ReplyToID: messageID, Text: text})
	return msg, nil
}

func (f *Fake) DeleteMessage(_ context.Context, _ int64, messageID int64, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("delete"); err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, messageID)
	f.DeleteDelays = append(f.DeleteDelays, delay)
	return nil
}

func (f *Fake) AddReaction(_ context.Context, _ int64, messageID int64, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("react"); err != nil {
		return err
	}
	f.Reactions[messageID] = append(f.Reactions[messageID], emoji)
	return nil
}

func (f *Fake) FetchChannel(_ context.Context, channelID int64) (gateway.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("fetch_channel"); err != nil {
		return gateway.Channel{}, err
	}
	ch, ok := f.Channels[channelID]
	if !ok {
		return gateway.Channel{}, gateway.ErrNotFound
	}
	return ch, nil
}

func (f *Fake) FetchMember(_ context.Context, memberID int64) (gateway.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("fetch_member"); err != nil {
		return gateway.Member{}, err
	}
	m, ok := f.Members[memberID]
	if !ok {
		return gateway.Member{}, gateway.ErrNotFound
	}
	return m, nil
}

func (f *Fake) FetchMessage(_ context.Context, _ int64, messageID int64) (gateway.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("fetch_message"); err != nil {
		return gateway.Message{}, err
	}
	msg, ok := f.messages[messageID]
	if !ok {
		return gateway.Message{}, gateway.ErrNotFound
	}
	return msg, nil
}

func (f *Fake) Timeout(_ context.Context, memberID int64, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("timeout"); err != nil {
		return err
	}
	f.TimedOut[memberID] = d
	return nil
}

func (f *Fake) Kick(_ context.Context, memberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("kick"); err != nil {
		return err
	}
	f.Kicked = append(f.Kicked, memberID)
	return nil
}

func (f *Fake) Ban(_ context.Context, memberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ban"); err != nil {
		return err
	}
	f.Banned = append(f.Banned, memberID)
	return nil
}

func (f *Fake) SetNick(_ context.Context, memberID int64, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("nick"); err != nil {
		return err
	}
	f.Nicks[memberID] = nick
	return nil
}

func (f *Fake) AddRole(_ context.Context, memberID, roleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("add_role"); err != nil {
		return err
	}
	f.RolesAdded = append(f.RolesAdded, RoleChange{MemberID: memberID, RoleID: roleID})
	return nil
}

func (f *Fake) RemoveRole(_ context.Context, memberID, roleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("remove_role"); err != nil {
		return err
	}
	f.RolesRemoved = append(f.RolesRemoved, RoleChange{MemberID: memberID, RoleID: roleID})
	return nil
}

// SetReactions replaces the reaction tallies of a stored message, so a
// later FetchMessage observes the votes cast while a poll was open.
func (f *Fake) SetReactions(messageID int64, reactions ...gateway.Reaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.messages[messageID]
	msg.Reactions = reactions
	f.messages[messageID] = msg
}

// LastSent returns the most recent outbound message, if any.
func (f *Fake) LastSent() (SentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return SentMessage{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}
