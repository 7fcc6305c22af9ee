package moderation

import "fmt"

// KickJobKind names the scheduled job body that removes an unverified
// member. Registered with the scheduler so persisted jobs can be
// re-attached after a restart.
const KickJobKind = "kick"

// KickJobID derives the scheduler job id for a (chat, user) pair. It is
// deterministic and injective: the same pair always yields the same id,
// distinct pairs never collide. The id doubles as the "is this user
// pending verification" existence check.
func KickJobID(chatID, userID int64) string {
	return fmt.Sprintf("kick:%d:%d", chatID, userID)
}
