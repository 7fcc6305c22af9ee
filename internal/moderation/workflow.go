// Package moderation implements the verification workflow for new group
// members: restrict on join, challenge with a confirm button, and remove
// after a delay unless the member confirms or leaves first. The workflow
// drives a per-(chat,user) state machine off three external signals and
// the scheduler's timeout; every entry point is idempotent and completes
// by logging rather than propagating gateway or store errors.
package moderation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gatekeepbot/gatekeep/internal/jobstore"
	"github.com/gatekeepbot/gatekeep/internal/sched"
	"github.com/gatekeepbot/gatekeep/internal/telemetry"
)

// transientGrant is how long the confirm-time permission grant lasts;
// the platform restores full default permissions when it expires.
const transientGrant = 30 * time.Second

// Config holds workflow timing and texts.
type Config struct {
	// RemoveUserAfter is the confirmation deadline: the kick job fires
	// this long after the join.
	RemoveUserAfter time.Duration `yaml:"remove_user_after"`

	// PermissionDelay extends the restriction window past the kick
	// deadline. Zero disables the join-time restriction call.
	PermissionDelay time.Duration `yaml:"additional_delay_for_permissions"`

	Templates Templates `yaml:"templates"`
}

// Defaults applies default values to unset fields.
func (c *Config) Defaults() {
	if c.RemoveUserAfter <= 0 {
		c.RemoveUserAfter = 5 * time.Minute
	}
	if c.PermissionDelay < 0 {
		c.PermissionDelay = 0
	}
	c.Templates.defaults()
}

// RestoreDelay is how long after the join the platform lifts the
// restriction on its own.
func (c Config) RestoreDelay() time.Duration {
	return c.RemoveUserAfter + c.PermissionDelay
}

// Join is a member-joined signal.
type Join struct {
	ChatID int64
	User   User
	Admin  bool // the new member is already a chat administrator
	Time   time.Time
}

// Confirm is a challenge-button click signal. SubjectID is the user id
// embedded in the button; Clicker is whoever pressed it.
type Confirm struct {
	ChatID      int64
	SubjectID   int64
	Clicker     User
	MessageID   int64
	MessageDate time.Time
	CallbackID  string
}

// Leave is a member-left signal.
type Leave struct {
	ChatID int64
	User   User
}

// Workflow reacts to membership signals by scheduling and cancelling the
// per-user kick job and mutating the challenge message. It is the sole
// writer of that message for the lifetime of a verification.
type Workflow struct {
	scheduler *sched.Scheduler
	gateway   Gateway
	config    Config
	logger    *slog.Logger
	clock     func() time.Time
}

// New creates a workflow. Call Register before the scheduler starts so
// persisted kick jobs can be recovered.
func New(scheduler *sched.Scheduler, gateway Gateway, config Config, logger *slog.Logger) *Workflow {
	config.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		scheduler: scheduler,
		gateway:   gateway,
		config:    config,
		logger:    logger,
		clock:     time.Now,
	}
}

// Register binds the kick job body to its kind in the scheduler.
func (w *Workflow) Register() error {
	return w.scheduler.RegisterHandler(KickJobKind, w.kick)
}

// HandleJoin restricts the new member, posts the challenge message, and
// schedules the kick job. Bot accounts and chat administrators are
// skipped silently. A duplicate join (job id already pending) is a no-op:
// neither the message is resent nor the clock reset.
func (w *Workflow) HandleJoin(ctx context.Context, ev Join) {
	log := w.logger.With("chat", ev.ChatID, "user", ev.User.ID)

	if ev.User.IsBot {
		log.Debug("moderation: new member is a bot, skipping")
		return
	}
	if ev.Admin {
		log.Debug("moderation: new member is an administrator, skipping")
		return
	}

	jobID := KickJobID(ev.ChatID, ev.User.ID)
	if _, err := w.scheduler.Get(ctx, jobID); err == nil {
		log.Warn("moderation: verification already pending, treating join as duplicate", "job", jobID)
		return
	}

	if w.config.PermissionDelay > 0 {
		until := ev.Time.Add(w.config.RestoreDelay())
		if err := w.gateway.RestrictMember(ctx, ev.ChatID, ev.User.ID, until); err != nil {
			log.Error("moderation: restrict failed", "error", err)
		} else {
			log.Info("moderation: member restricted", "until", until)
		}
	}

	text := renderUser(w.config.Templates.Welcome, w.gateway.Mention(ev.User))
	messageID, err := w.gateway.SendChallenge(ctx, ev.ChatID, ev.User, text, w.config.Templates.ConfirmButton)
	if err != nil {
		log.Error("moderation: send challenge failed", "error", err)
		return
	}
	log.Info("moderation: challenge sent", "message", messageID)

	payload := encodePayload(kickPayload{
		ChatID:    ev.ChatID,
		UserID:    ev.User.ID,
		MessageID: messageID,
	})
	trigger := jobstore.At(ev.Time.Add(w.config.RemoveUserAfter))

	err = w.scheduler.Schedule(ctx, jobID, KickJobKind, trigger, payload)
	switch {
	case errors.Is(err, sched.ErrJobExists):
		// A racing duplicate join won the schedule; this challenge
		// message is redundant, clean it up.
		log.Warn("moderation: duplicate join raced scheduling, removing redundant challenge", "job", jobID)
		if err := w.gateway.DeleteMessage(ctx, ev.ChatID, messageID); err != nil {
			log.Error("moderation: delete redundant challenge failed", "error", err)
		}
	case err != nil:
		log.Error("moderation: kick job not guaranteed scheduled", "job", jobID, "error", err)
	default:
		telemetry.MembersChallenged.Inc()
		log.Info("moderation: kick scheduled", "job", jobID, "fires_at", trigger.At)
	}
}

// HandleConfirm validates the clicker against the challenge subject,
// cancels the kick job, restores permissions, and rewrites the challenge
// message. Tolerates the job being already gone.
func (w *Workflow) HandleConfirm(ctx context.Context, ev Confirm) {
	log := w.logger.With("chat", ev.ChatID, "user", ev.SubjectID)

	if ev.Clicker.ID != ev.SubjectID {
		log.Warn("moderation: confirm click by wrong user", "clicker", ev.Clicker.ID)
		if err := w.gateway.Answer(ctx, ev.CallbackID, w.config.Templates.MismatchAlert); err != nil {
			log.Error("moderation: answer mismatch alert failed", "error", err)
		}
		return
	}

	jobID := KickJobID(ev.ChatID, ev.SubjectID)
	existed, err := w.scheduler.Cancel(ctx, jobID)
	if err != nil {
		log.Error("moderation: cancel kick job failed", "job", jobID, "error", err)
	}
	if existed {
		state, _ := Next(StateUnverified, SignalConfirm)
		telemetry.MembersVerified.Inc()
		log.Info("moderation: member confirmed", "state", state)
	} else {
		// Already resolved by a leave, a fired kick, or an earlier click.
		log.Debug("moderation: no pending kick job on confirm", "job", jobID)
	}

	if err := w.gateway.Answer(ctx, ev.CallbackID, w.config.Templates.ConfirmedAlert); err != nil {
		log.Error("moderation: answer confirm alert failed", "error", err)
	}

	text := renderUser(w.config.Templates.ConfirmedMember, w.gateway.Mention(ev.Clicker))

	until := w.clock().Add(transientGrant)
	if err := w.gateway.GrantSendMessages(ctx, ev.ChatID, ev.SubjectID, until); err != nil {
		log.Error("moderation: restore permissions failed", "error", err)
		accessAt := ev.MessageDate.Add(w.config.RestoreDelay())
		text += renderAccess(w.config.Templates.PermissionNote, accessAt)
	} else {
		log.Info("moderation: permissions restored")
	}

	if err := w.gateway.EditMessage(ctx, ev.ChatID, ev.MessageID, text); err != nil {
		log.Error("moderation: edit challenge message failed", "message", ev.MessageID, "error", err)
	}
}

// HandleLeave cancels a pending verification when the member leaves
// before confirming and cleans up the challenge message. A leave with no
// pending job is a no-op.
func (w *Workflow) HandleLeave(ctx context.Context, ev Leave) {
	log := w.logger.With("chat", ev.ChatID, "user", ev.User.ID)

	jobID := KickJobID(ev.ChatID, ev.User.ID)
	job, err := w.scheduler.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			log.Debug("moderation: no pending verification on leave")
		} else {
			log.Error("moderation: lookup kick job failed", "job", jobID, "error", err)
		}
		return
	}

	payload, err := decodePayload(job.Payload)
	if err != nil {
		log.Error("moderation: corrupt kick payload", "job", jobID, "error", err)
		return
	}

	if _, err := w.scheduler.Cancel(ctx, jobID); err != nil {
		log.Error("moderation: cancel kick job failed", "job", jobID, "error", err)
	}

	state, _ := Next(StateUnverified, SignalLeave)
	telemetry.MembersDeparted.Inc()
	log.Info("moderation: member left before verifying", "state", state)

	if err := w.gateway.DeleteMessage(ctx, ev.ChatID, payload.MessageID); err != nil {
		log.Warn("moderation: delete challenge failed, editing instead", "message", payload.MessageID, "error", err)
		text := renderUser(w.config.Templates.UserLeft, w.gateway.Mention(ev.User))
		if err := w.gateway.EditMessage(ctx, ev.ChatID, payload.MessageID, text); err != nil {
			log.Error("moderation: edit challenge to left-notice failed", "message", payload.MessageID, "error", err)
		}
	} else {
		log.Info("moderation: challenge deleted", "message", payload.MessageID)
	}
}

// kick is the job body fired at the confirmation deadline. It receives
// its payload by value; the job row is already deleted. Safe against the
// member having left through an unobserved path.
func (w *Workflow) kick(ctx context.Context, payload map[string]any) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	log := w.logger.With("chat", p.ChatID, "user", p.UserID)

	info, err := w.gateway.Membership(ctx, p.ChatID, p.UserID)
	if err != nil {
		// Unknown membership is treated as absent: better to leave an
		// unverified user in place than to ban someone already gone.
		log.Warn("moderation: membership lookup failed, assuming absent", "error", err)
		info.Status = MembershipUnknown
	}

	if info.Status == MembershipAbsent || info.Status == MembershipUnknown {
		log.Info("moderation: member already absent at deadline")
		if err := w.gateway.DeleteMessage(ctx, p.ChatID, p.MessageID); err != nil {
			log.Error("moderation: delete challenge failed", "message", p.MessageID, "error", err)
		}
		return nil
	}

	if err := w.gateway.BanMember(ctx, p.ChatID, p.UserID); err != nil {
		log.Error("moderation: ban failed, manual intervention needed", "error", err)
		text := renderUser(w.config.Templates.KickError, w.gateway.Mention(info.User))
		if err := w.gateway.SendMessage(ctx, p.ChatID, text); err != nil {
			log.Error("moderation: send kick-error notice failed", "error", err)
		}
		return nil
	}

	state, _ := Next(StateUnverified, SignalTimeout)
	telemetry.MembersRemoved.Inc()
	log.Info("moderation: member removed", "state", state)

	text := renderUser(w.config.Templates.KickedUser, w.gateway.Mention(info.User))
	if err := w.gateway.EditMessage(ctx, p.ChatID, p.MessageID, text); err != nil {
		log.Error("moderation: edit challenge to removed-notice failed", "message", p.MessageID, "error", err)
	}
	return nil
}
