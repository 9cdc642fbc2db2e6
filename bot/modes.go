package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/helpers"
	"github.com/m3rciful/offerbot/models"
	"github.com/m3rciful/offerbot/services/offers"
)

// InMode reports whether the sender has an active conversation mode. Part
// of the router.ModeRouter contract.
func (a *App) InMode(c tele.Context) bool {
	s := c.Sender()
	if s == nil {
		return false
	}
	ctx := helpers.BuildContext(c)
	u, err := a.sessions.Get(ctx, s.ID)
	if err != nil {
		return false
	}
	return u.Mode != models.ModeNone && u.Mode != ""
}

// HandleMode consumes one free-text message while a mode is active. The
// mode is taken — read and cleared — before any handling, so a failing
// branch can never leave the user stuck.
func (a *App) HandleMode(c tele.Context) error {
	ctx := helpers.WithHandler(c, "mode")
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	mode, mc, err := a.sessions.TakeMode(ctx, userID)
	if err != nil {
		logger.TG.ErrorContext(ctx, "mode_take", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	if mode == models.ModeNone {
		return c.Send(textUnknownInput, tele.ModeHTML)
	}

	if strings.EqualFold(text, "/cancel") {
		return c.Send(textCancelled, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	}

	switch mode {
	case models.ModeAwaitOfferSubmit:
		return a.submitOffer(c, mc, text)
	case models.ModeAwaitHelpMessage:
		return a.modeHelpMessage(ctx, c, text)
	case models.ModeAwaitBroadcast:
		return a.modeBroadcast(ctx, c, text)
	case models.ModeAwaitBanTarget:
		return a.modeBanTarget(ctx, c, text, true)
	case models.ModeAwaitUnbanTarget:
		return a.modeBanTarget(ctx, c, text, false)
	case models.ModeAwaitAdminReply:
		return a.modeAdminReply(ctx, c, mc, text)
	case models.ModeAwaitOfferCreate:
		return a.modeOfferCreate(ctx, c, text)
	case models.ModeAwaitOfferEdit:
		return a.modeOfferEdit(ctx, c, mc, text)
	case models.ModeAwaitOfferDelete:
		return a.modeOfferDelete(ctx, c, text)
	default:
		logger.TG.WarnContext(ctx, "mode_unknown", "status", "skip", "mode", string(mode))
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
}

func (a *App) modeHelpMessage(ctx context.Context, c tele.Context, text string) error {
	id, err := a.help.Request(ctx, c.Sender().ID, text)
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return c.Send(textHelpLimit, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	case models.IsValidation(err):
		return c.Send(htmlEscape(err.Error())+"\n\n"+textHelpAgain, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	case err != nil:
		logger.TG.ErrorContext(ctx, "help_intake", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}

	_ = a.notifier.Send(ctx, a.cfg.Telegram.AdminID,
		fmt.Sprintf("🆘 Help request #%d from <code>%d</code>\n\n%s",
			id, c.Sender().ID, htmlEscape(text)),
		replyMenu(id))
	return c.Send(textHelpSent, tele.ModeHTML, mainMenu(a.isAdmin(c)))
}

func (a *App) modeBroadcast(ctx context.Context, c tele.Context, text string) error {
	if !a.requireAdmin(c) {
		return nil
	}
	res, err := a.broadcast.Send(ctx, text)
	if models.IsValidation(err) {
		return c.Send(htmlEscape(err.Error()), tele.ModeHTML, cancelMenu())
	}
	if err != nil {
		logger.TG.ErrorContext(ctx, "broadcast", "status", "fail", "err", err)
		return c.Send("Broadcast failed.", tele.ModeHTML, adminMenu())
	}
	return c.Send(fmt.Sprintf(
		"📢 Broadcast done.\n\nSent: %d\nFailed: %d\nSkipped: %d",
		res.Sent, res.Failed, res.Skipped,
	), tele.ModeHTML, adminMenu())
}

func (a *App) modeBanTarget(ctx context.Context, c tele.Context, text string, ban bool) error {
	if !a.requireAdmin(c) {
		return nil
	}
	target, err := strconv.ParseInt(text, 10, 64)
	if err != nil || target <= 0 {
		return c.Send(textBadID, tele.ModeHTML, adminMenu())
	}

	if ban {
		if err := a.store.Bans.Add(ctx, target); err != nil {
			logger.TG.ErrorContext(ctx, "ban_add", "status", "fail", "err", err)
			return c.Send("Ban failed.", tele.ModeHTML, adminMenu())
		}
		return c.Send(textBanDone, tele.ModeHTML, adminMenu())
	}

	err = a.store.Bans.Remove(ctx, target)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Send(textNotBanned, tele.ModeHTML, adminMenu())
	case err != nil:
		logger.TG.ErrorContext(ctx, "ban_remove", "status", "fail", "err", err)
		return c.Send("Unban failed.", tele.ModeHTML, adminMenu())
	}
	return c.Send(textUnbanDone, tele.ModeHTML, adminMenu())
}

func (a *App) modeAdminReply(ctx context.Context, c tele.Context, mc models.ModeContext, text string) error {
	if !a.requireAdmin(c) {
		return nil
	}
	req, err := a.help.Reply(ctx, mc.HelpRequest, text)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Send(textReplyGone, tele.ModeHTML, adminMenu())
	case models.IsValidation(err):
		return c.Send(htmlEscape(err.Error())+"\n\n"+textReplyAgain, tele.ModeHTML, adminMenu())
	case err != nil:
		logger.TG.ErrorContext(ctx, "help_reply", "status", "fail", "err", err)
		return c.Send("Reply failed.", tele.ModeHTML, adminMenu())
	}

	_ = a.notifier.Send(ctx, req.UserID,
		"💬 <b>Operator reply</b>\n\n"+htmlEscape(req.Reply))
	return c.Send(fmt.Sprintf("✅ Reply to #%d delivered.", req.ID), tele.ModeHTML, adminMenu())
}

func (a *App) modeOfferCreate(ctx context.Context, c tele.Context, text string) error {
	if !a.requireAdmin(c) {
		return nil
	}
	form, err := offers.ParseForm(text)
	if err != nil {
		return c.Send(htmlEscape(err.Error())+"\n\n"+textFormAgain, tele.ModeHTML, adminMenu())
	}
	o, err := a.offers.Create(ctx, form.Name, form.LinkPattern, form.Templates, form.Delays)
	if models.IsValidation(err) {
		return c.Send(htmlEscape(err.Error())+"\n\n"+textFormAgain, tele.ModeHTML, adminMenu())
	}
	if err != nil {
		logger.TG.ErrorContext(ctx, "offer_create", "status", "fail", "err", err)
		return c.Send("Could not store the offer.", tele.ModeHTML, adminMenu())
	}
	return c.Send("✅ Offer created.\n\n"+offerCard(o), tele.ModeHTML, adminMenu())
}

func (a *App) modeOfferEdit(ctx context.Context, c tele.Context, mc models.ModeContext, text string) error {
	if !a.requireAdmin(c) {
		return nil
	}
	form, err := offers.ParseForm(text)
	if err != nil {
		return c.Send(htmlEscape(err.Error())+"\n\n"+textFormAgain, tele.ModeHTML, adminMenu())
	}
	o, err := a.offers.Update(ctx, mc.OfferID, offers.UpdateFields{
		Name:        &form.Name,
		LinkPattern: &form.LinkPattern,
		Templates:   form.Templates,
		Delays:      form.Delays,
	})
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Send(textOfferGone, tele.ModeHTML, adminMenu())
	case models.IsValidation(err):
		return c.Send(htmlEscape(err.Error())+"\n\n"+textFormAgain, tele.ModeHTML, adminMenu())
	case err != nil:
		logger.TG.ErrorContext(ctx, "offer_edit", "status", "fail", "err", err)
		return c.Send("Could not update the offer.", tele.ModeHTML, adminMenu())
	}
	return c.Send("✅ Offer updated.\n\n"+offerCard(o), tele.ModeHTML, adminMenu())
}

func (a *App) modeOfferDelete(ctx context.Context, c tele.Context, text string) error {
	if !a.requireAdmin(c) {
		return nil
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return c.Send(textBadID, tele.ModeHTML, adminMenu())
	}
	err = a.offers.Delete(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Send(textOfferGone, tele.ModeHTML, adminMenu())
	case err != nil:
		logger.TG.ErrorContext(ctx, "offer_delete", "status", "fail", "err", err)
		return c.Send("Could not delete the offer.", tele.ModeHTML, adminMenu())
	}
	return c.Send(fmt.Sprintf("🗑 Offer %d deleted.", id), tele.ModeHTML, adminMenu())
}
