package telegram

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/gatekeepbot/gatekeep/internal/moderation"
)

// Router translates Bot API updates into moderation workflow events.
// Membership transitions become join/leave events, verification button
// clicks become confirm events, and changes to the bot's own membership
// trigger the inviter check.
type Router struct {
	client    *Client
	workflow  *moderation.Workflow
	logger    *slog.Logger
	admins    []int64
	templates moderation.Templates
}

// NewRouter creates a router bound to the given workflow.
func NewRouter(client *Client, workflow *moderation.Workflow, cfg Config, templates moderation.Templates, logger *slog.Logger) *Router {
	return &Router{
		client:    client,
		workflow:  workflow,
		logger:    logger,
		admins:    cfg.Administrators,
		templates: templates,
	}
}

// Dispatch routes a single update to the matching workflow entry point.
// Unrecognized updates are logged and dropped.
func (r *Router) Dispatch(ctx context.Context, update *Update) {
	switch {
	case update.ChatMember != nil:
		r.memberUpdate(ctx, update.ChatMember)
	case update.MyChatMember != nil:
		r.selfUpdate(ctx, update.MyChatMember)
	case update.CallbackQuery != nil:
		r.callback(ctx, update.CallbackQuery)
	default:
		r.logger.Debug("skipping update", "update_id", update.UpdateID)
	}
}

// memberUpdate converts a member status change into a join or leave event.
func (r *Router) memberUpdate(ctx context.Context, ev *ChatMemberUpdated) {
	was := ev.OldChatMember.InChat()
	is := ev.NewChatMember.InChat()

	switch {
	case !was && is:
		r.workflow.HandleJoin(ctx, moderation.Join{
			ChatID: ev.Chat.ID,
			User:   fromAPIUser(ev.NewChatMember.User),
			Admin:  ev.NewChatMember.Admin(),
			Time:   time.Unix(ev.Date, 0),
		})
	case was && !is:
		r.workflow.HandleLeave(ctx, moderation.Leave{
			ChatID: ev.Chat.ID,
			User:   fromAPIUser(ev.NewChatMember.User),
		})
	}
}

// selfUpdate handles changes to the bot's own membership. When the bot is
// added by someone outside the configured administrator list it announces
// the refusal and leaves the chat.
func (r *Router) selfUpdate(ctx context.Context, ev *ChatMemberUpdated) {
	if ev.OldChatMember.InChat() || !ev.NewChatMember.InChat() {
		return
	}

	if slices.Contains(r.admins, ev.From.ID) {
		if _, err := r.client.SendMessage(ctx, SendMessageRequest{
			ChatID: ev.Chat.ID,
			Text:   r.templates.InvitedByAdmin,
		}); err != nil {
			r.logger.Warn("greeting message failed", "chat", ev.Chat.ID, "error", err)
		}
		r.logger.Info("joined chat", "chat", ev.Chat.ID, "invited_by", ev.From.ID)
		return
	}

	r.logger.Warn("added by non-administrator, leaving chat",
		"chat", ev.Chat.ID,
		"invited_by", ev.From.ID,
	)
	if _, err := r.client.SendMessage(ctx, SendMessageRequest{
		ChatID: ev.Chat.ID,
		Text:   r.templates.InvitedNotByAdmin,
	}); err != nil {
		r.logger.Warn("refusal message failed", "chat", ev.Chat.ID, "error", err)
	}
	if err := r.client.LeaveChat(ctx, ev.Chat.ID); err != nil {
		r.logger.Error("leave chat failed", "chat", ev.Chat.ID, "error", err)
	}
}

// callback converts a verification button click into a confirm event.
func (r *Router) callback(ctx context.Context, cq *CallbackQuery) {
	subjectID, ok := parseVerifyCallback(cq.Data)
	if !ok {
		r.logger.Debug("skipping callback", "callback_id", cq.ID, "data", cq.Data)
		return
	}
	if cq.Message == nil {
		r.logger.Warn("callback without accessible message", "callback_id", cq.ID)
		return
	}

	r.workflow.HandleConfirm(ctx, moderation.Confirm{
		ChatID:      cq.Message.Chat.ID,
		SubjectID:   subjectID,
		Clicker:     fromAPIUser(cq.From),
		MessageID:   cq.Message.MessageID,
		MessageDate: time.Unix(cq.Message.Date, 0),
		CallbackID:  cq.ID,
	})
}
