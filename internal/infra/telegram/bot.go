// Package telegram adapts the Telegram Bot API to the platform
// gateway. Telegram has no roles, reactions API in this client
// version, presence or per-chat nicknames, so those calls report
// gateway.ErrUnsupported and rules over them simply never fire.
// Reaction votes cannot tally here either: polls open and close but
// always fail, so poll actions need a reaction-capable gateway.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivankudzin/guildmod/internal/gateway"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewBot connects to the Bot API. chatID is the community chat the bot
// moderates; member lookups are scoped to it.
func NewBot(token string, chatID int64) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api, chatID: chatID}, nil
}

var _ gateway.Gateway = (*Bot)(nil)

func (b *Bot) Send(ctx context.Context, channelID int64, text string) (gateway.Message, error) {
	if channelID == 0 {
		return gateway.Message{}, fmt.Errorf("chat id is required")
	}

	sent, err := b.api.Send(tgbotapi.NewMessage(channelID, text))
	if err != nil {
		return gateway.Message{}, fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return gateway.Message{ID: int64(sent.MessageID), ChannelID: channelID, Content: text}, nil
}

func (b *Bot) Reply(ctx context.Context, channelID, messageID int64, text string) (gateway.Message, error) {
	msg := tgbotapi.NewMessage(channelID, text)
	msg.ReplyToMessageID = int(messageID)

	sent, err := b.api.Send(msg)
	if err != nil {
		return gateway.Message{}, fmt.Errorf("send telegram reply: %w", err)
	}

	_ = ctx
	return gateway.Message{ID: int64(sent.MessageID), ChannelID: channelID, Content: text}, nil
}

func (b *Bot) DeleteMessage(ctx context.Context, channelID, messageID int64, delay time.Duration) error {
	del := func() error {
		_, err := b.api.Request(tgbotapi.NewDeleteMessage(channelID, int(messageID)))
		return err
	}

	if delay <= 0 {
		if err := del(); err != nil {
			return fmt.Errorf("delete telegram message: %w", err)
		}
		return nil
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			_ = del()
		}
	}()
	return nil
}

func (b *Bot) AddReaction(_ context.Context, _, _ int64, _ string) error {
	return gateway.ErrUnsupported
}

func (b *Bot) FetchChannel(ctx context.Context, channelID int64) (gateway.Channel, error) {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: channelID},
	})
	if err != nil {
		return gateway.Channel{}, fmt.Errorf("get telegram chat: %w", err)
	}

	_ = ctx
	return gateway.Channel{ID: chat.ID, Name: chat.Title}, nil
}

func (b *Bot) FetchMember(ctx context.Context, memberID int64) (gateway.Member, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: b.chatID,
			UserID: memberID,
		},
	})
	if err != nil {
		return gateway.Member{}, fmt.Errorf("get chat member: %w", err)
	}
	if member.HasLeft() || member.WasKicked() {
		return gateway.Member{}, gateway.ErrNotFound
	}

	_ = ctx
	return memberFromChatMember(member), nil
}

func (b *Bot) FetchMessage(_ context.Context, _, _ int64) (gateway.Message, error) {
	// the Bot API cannot re-read an arbitrary message
	return gateway.Message{}, gateway.ErrUnsupported
}

func (b *Bot) Timeout(ctx context.Context, memberID int64, d time.Duration) error {
	_, err := b.api.Request(tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: b.chatID, UserID: memberID},
		UntilDate:        time.Now().Add(d).Unix(),
		Permissions:      &tgbotapi.ChatPermissions{},
	})
	if err != nil {
		return fmt.Errorf("restrict chat member: %w", err)
	}

	_ = ctx
	return nil
}

// Kick is a ban immediately followed by an unban, so the member can
// rejoin.
func (b *Bot) Kick(ctx context.Context, memberID int64) error {
	cfg := tgbotapi.ChatMemberConfig{ChatID: b.chatID, UserID: memberID}

	if _, err := b.api.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: cfg}); err != nil {
		return fmt.Errorf("kick chat member: %w", err)
	}
	if _, err := b.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: cfg, OnlyIfBanned: true}); err != nil {
		return fmt.Errorf("unban kicked member: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) Ban(ctx context.Context, memberID int64) error {
	_, err := b.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: b.chatID, UserID: memberID},
	})
	if err != nil {
		return fmt.Errorf("ban chat member: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SetNick(_ context.Context, _ int64, _ string) error {
	return gateway.ErrUnsupported
}

func (b *Bot) AddRole(_ context.Context, _, _ int64) error {
	return gateway.ErrUnsupported
}

func (b *Bot) RemoveRole(_ context.Context, _, _ int64) error {
	return gateway.ErrUnsupported
}

type CommandUpdate struct {
	Event   gateway.EventContext
	Command string
	Args    string
}

type MemberUpdate struct {
	Member gateway.Member
}

type Handlers struct {
	OnMessage     func(context.Context, gateway.EventContext)
	OnMessageEdit func(context.Context, gateway.EventContext)
	OnCommand     func(context.Context, CommandUpdate)
	OnMemberJoin  func(context.Context, MemberUpdate)
	OnMemberLeave func(context.Context, MemberUpdate)
}

// Listen consumes the update long poll until the context is cancelled.
// Each update is handed to its handler on a fresh goroutine, so a
// blocking dispatch (a poll's open window, for one) does not stall the
// stream.
func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			b.route(ctx, update, handlers)
		}
	}
}

func (b *Bot) route(ctx context.Context, update tgbotapi.Update, handlers Handlers) {
	if msg := update.Message; msg != nil && msg.From != nil {
		if len(msg.NewChatMembers) > 0 && handlers.OnMemberJoin != nil {
			for _, joined := range msg.NewChatMembers {
				u := MemberUpdate{Member: memberFromUser(&joined)}
				go handlers.OnMemberJoin(ctx, u)
			}
			return
		}
		if msg.LeftChatMember != nil && handlers.OnMemberLeave != nil {
			u := MemberUpdate{Member: memberFromUser(msg.LeftChatMember)}
			go handlers.OnMemberLeave(ctx, u)
			return
		}

		if msg.IsCommand() && handlers.OnCommand != nil {
			u := CommandUpdate{
				Event:   eventFromMessage(msg),
				Command: msg.Command(),
				Args:    msg.CommandArguments(),
			}
			go handlers.OnCommand(ctx, u)
			return
		}

		if handlers.OnMessage != nil {
			ev := eventFromMessage(msg)
			go handlers.OnMessage(ctx, ev)
		}
		return
	}

	if msg := update.EditedMessage; msg != nil && msg.From != nil && handlers.OnMessageEdit != nil {
		ev := eventFromMessage(msg)
		go handlers.OnMessageEdit(ctx, ev)
	}
}

func eventFromMessage(msg *tgbotapi.Message) gateway.EventContext {
	member := memberFromUser(msg.From)

	m := gateway.Message{
		ID:        int64(msg.MessageID),
		ChannelID: msg.Chat.ID,
		AuthorID:  member.ID,
		Content:   msg.Text,
	}
	if msg.Document != nil {
		m.Attachments = append(m.Attachments, gateway.Attachment{Filename: msg.Document.FileName})
	}

	return gateway.EventContext{
		Actor:   &member,
		Channel: &gateway.Channel{ID: msg.Chat.ID, Name: msg.Chat.Title},
		Message: &m,
	}
}

func memberFromUser(u *tgbotapi.User) gateway.Member {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return gateway.Member{
		ID:          u.ID,
		DisplayName: name,
		Bot:         u.IsBot,
	}
}

func memberFromChatMember(m tgbotapi.ChatMember) gateway.Member {
	member := gateway.Member{ID: 0}
	if m.User != nil {
		member = memberFromUser(m.User)
	}
	member.Owner = m.IsCreator()
	if m.IsAdministrator() || m.IsCreator() {
		member.Roles = append(member.Roles, gateway.Role{Administrator: true})
	}
	return member
}
