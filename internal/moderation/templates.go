package moderation

import (
	"strings"
	"time"
)

// Templates holds the user-facing texts. Placeholders: {user} is replaced
// with a platform mention, {access_dt} with the permission-restore time.
type Templates struct {
	Welcome           string `yaml:"welcome"`
	ConfirmButton     string `yaml:"confirm_button"`
	ConfirmedMember   string `yaml:"confirmed_member"`
	ConfirmedAlert    string `yaml:"confirmed_alert"`
	MismatchAlert     string `yaml:"mismatch_alert"`
	UserLeft          string `yaml:"user_left"`
	KickedUser        string `yaml:"kicked_user"`
	KickError         string `yaml:"kick_error"`
	PermissionNote    string `yaml:"permission_note"`
	InvitedByAdmin    string `yaml:"invited_by_admin"`
	InvitedNotByAdmin string `yaml:"invited_not_by_admin"`
}

// defaults applies default texts to unset fields.
func (t *Templates) defaults() {
	if t.Welcome == "" {
		t.Welcome = "Welcome {user}!\nPlease click the button below ⤵️"
	}
	if t.ConfirmButton == "" {
		t.ConfirmButton = "I'm not a bot"
	}
	if t.ConfirmedMember == "" {
		t.ConfirmedMember = "Welcome {user}!\nYou are now a member."
	}
	if t.ConfirmedAlert == "" {
		t.ConfirmedAlert = "You have confirmed your membership."
	}
	if t.MismatchAlert == "" {
		t.MismatchAlert = "It seems you are not the one who should confirm this action."
	}
	if t.UserLeft == "" {
		t.UserLeft = "User {user} has left the group."
	}
	if t.KickedUser == "" {
		t.KickedUser = "{user} has been removed from the group."
	}
	if t.KickError == "" {
		t.KickError = "Failed to remove {user} from the group."
	}
	if t.PermissionNote == "" {
		t.PermissionNote = "\n\n<i><b>NOTE:</b>\nAccess to the group will be granted after {access_dt}</i>"
	}
	if t.InvitedByAdmin == "" {
		t.InvitedByAdmin = "I will start to work in this group. 😊"
	}
	if t.InvitedNotByAdmin == "" {
		t.InvitedNotByAdmin = "I can't work in this group, because I was invited by someone who is not an administrator. 😢"
	}
}

// renderUser substitutes the {user} placeholder.
func renderUser(tpl, mention string) string {
	return strings.ReplaceAll(tpl, "{user}", mention)
}

// renderAccess substitutes the {access_dt} placeholder.
func renderAccess(tpl string, at time.Time) string {
	return strings.ReplaceAll(tpl, "{access_dt}", at.Format("15:04:05"))
}
