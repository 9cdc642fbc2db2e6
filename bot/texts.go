package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/offerbot/models"
)

// User-facing texts. HTML parse mode, kept in one place so wording stays
// consistent across handlers.
const (
	textWelcome = "<b>Welcome!</b>\n\n" +
		"Pick an offer, send your tracking link and I will fire the " +
		"postback sequence for you.\n\n" +
		"Use the buttons below to get started."

	textCancelled    = "Action cancelled. You are back at the main menu."
	textNothingToDo  = "Nothing to cancel — you are not in the middle of anything."
	textUnknownInput = "I did not understand that. Use the menu buttons or /start."

	textJoinRequired = "To continue you need to join our channel(s) first. " +
		"Join and press the button to re-check."
	textJoinOK = "✅ Membership confirmed, you are all set."

	textHelpPrompt = "Describe your problem in one message and I will pass it to the operator."
	textHelpSent   = "✅ Your message was sent. The operator will reply here."
	textHelpLimit  = "You have reached the daily help limit. Try again tomorrow."

	textSubmitPrompt = "Send your tracking link now.\n\n" +
		"It must contain a <code>clickid</code> parameter, e.g.\n" +
		"<code>https://track.example/?clickid=abc123</code>"

	textNoOffers = "No offers are available right now. Check back later."

	textQueueBusy = "Too many submissions are running right now. " +
		"Please try again in a minute."

	textRunStarted = "🚀 Submission accepted. I will report each step here."

	textPickAgain = "Pick the offer from the menu again to retry."
	textHelpAgain = "Press the Help button to try again."

	textOfferGone = "This offer is no longer available."

	textAdminOnly = "This action is available to the operator only."
)

// Admin texts and prompts.
const (
	textAdminPanel = "<b>Admin panel</b>\n\nPick an action."

	textBroadcastPrompt = "Send the broadcast text as one message."
	textBanPrompt       = "Send the numeric user ID to ban."
	textUnbanPrompt     = "Send the numeric user ID to unban."
	textReplyPrompt     = "Send the reply text for this help request."

	textOfferFormPrompt = "Send the offer as a keyed form:\n\n" +
		"<code>name: Summer promo\n" +
		"link: https://track.example/land\n" +
		"pb: https://cb.example/?tid=$clickid 0\n" +
		"pb: https://cb2.example/?tid=$clickid 30</code>\n\n" +
		"One <code>pb:</code> line per postback step (1–5), delay in " +
		"seconds after the URL."

	textOfferDeletePrompt = "Send the numeric offer ID to delete. " +
		"All its submissions will be removed as well."

	textFormAgain  = "Reopen the offers panel to try again."
	textReplyAgain = "Tap Reply on the request again to retry."

	textBadID     = "That does not look like a numeric ID. Try again via the panel."
	textBanDone   = "🚫 User banned. They will get no further responses."
	textUnbanDone = "♻️ User unbanned."
	textNotBanned = "That user was not banned."
	textReplyGone = "That help request was already answered or removed."
)

func offerCard(o *models.Offer) string {
	status := "enabled"
	if !o.Enabled {
		status = "disabled"
	}
	return fmt.Sprintf(
		"<b>%s</b> (id %d, %s)\nSteps: %d\nRuns: %d, full successes: %d",
		htmlEscape(o.Name), o.ID, status, o.Steps(), o.SubmissionCount, o.SuccessCount,
	)
}

func stepLine(step models.StepResult, total int) string {
	mark := "✅"
	detail := fmt.Sprintf("HTTP %d", step.HTTPStatus)
	if !step.Success {
		mark = "❌"
		detail = string(step.Reason)
	}
	return fmt.Sprintf("%s Step %d/%d — %s (%s)",
		mark, step.Index+1, total, detail, step.Elapsed.Round(time.Millisecond))
}

func runSummary(sub *models.Submission) string {
	mark := "✅ All steps delivered"
	if !sub.AllSuccess {
		mark = "⚠️ Finished with failures"
	}
	return fmt.Sprintf("%s\n\nRun <code>%s</code>\nSteps: %d\nTotal time: %s",
		mark, sub.PublicID, len(sub.Steps), sub.Elapsed.Round(time.Millisecond))
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
