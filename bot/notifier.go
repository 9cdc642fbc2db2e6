package bot

import (
	"context"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/sender"
	"github.com/m3rciful/offerbot/services/membership"
)

// Notifier is the outbound notification surface. Messages go through the
// async dispatcher, HTML-formatted, truncated to the platform ceiling.
// It is bound to the live bot once the transport is up.
type Notifier struct {
	mu         sync.RWMutex
	bot        *tele.Bot
	dispatcher *sender.Dispatcher
	limit      int
}

// NewNotifier builds an unbound notifier with the given message length
// ceiling in characters.
func NewNotifier(limit int) *Notifier {
	if limit <= 0 {
		limit = 4000
	}
	return &Notifier{limit: limit}
}

// Bind attaches the live bot and dispatcher. Until bound, sends are
// dropped with a warning.
func (n *Notifier) Bind(bot *tele.Bot, d *sender.Dispatcher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bot = bot
	n.dispatcher = d
}

func (n *Notifier) parts() (*tele.Bot, *sender.Dispatcher) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.bot, n.dispatcher
}

// Send delivers text to a chat asynchronously.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string, opts ...interface{}) error {
	bot, d := n.parts()
	if bot == nil || d == nil {
		logger.Sender.WarnContext(ctx, "send_unbound", "status", "skip", "chat_id", chatID)
		return nil
	}
	text = truncate(text, n.limit)
	sendOpts := append([]interface{}{tele.ModeHTML}, opts...)
	return d.Enqueue(ctx, "send", func() error {
		_, err := bot.Send(tele.ChatID(chatID), text, sendOpts...)
		return err
	})
}

// SendSync delivers text to a chat on the calling goroutine, for paths
// that must know the delivery outcome (broadcast accounting).
func (n *Notifier) SendSync(ctx context.Context, chatID int64, text string, opts ...interface{}) error {
	bot, _ := n.parts()
	if bot == nil {
		return nil
	}
	text = truncate(text, n.limit)
	sendOpts := append([]interface{}{tele.ModeHTML}, opts...)
	_, err := bot.Send(tele.ChatID(chatID), text, sendOpts...)
	return err
}

// MemberStatus implements the membership status provider over the bot API.
func (n *Notifier) MemberStatus(ctx context.Context, channel string, userID int64) (membership.Status, error) {
	bot, _ := n.parts()
	if bot == nil {
		return membership.StatusUnknown, nil
	}
	chat, err := bot.ChatByUsername(channel)
	if err != nil {
		return membership.StatusUnknown, err
	}
	member, err := bot.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return membership.StatusUnknown, err
	}
	switch member.Role {
	case tele.Left:
		return membership.StatusLeft, nil
	case tele.Kicked:
		return membership.StatusRemoved, nil
	default:
		return membership.StatusMember, nil
	}
}

// truncate bounds a message to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
