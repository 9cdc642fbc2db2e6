package bot

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/callbacks"
	"github.com/m3rciful/offerbot/core/telegram/helpers"
	"github.com/m3rciful/offerbot/models"
	"github.com/m3rciful/offerbot/services/offers"
)

const (
	recentUsersLimit = 20
	helpQueueLimit   = 10
)

// requireAdmin enforces operator identity on admin entry points. Access is
// identity-equality only, never channel membership.
func (a *App) requireAdmin(c tele.Context) bool {
	if a.isAdmin(c) {
		return true
	}
	_ = c.Send(textAdminOnly, tele.ModeHTML)
	return false
}

func (a *App) handleAdminCommand(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	return c.Send(textAdminPanel, tele.ModeHTML, adminMenu())
}

func (a *App) handleAdminPanel(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	return c.Send(textAdminPanel, tele.ModeHTML, adminMenu())
}

func (a *App) handleAdminStats(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_stats")

	users, err := a.store.Users.Count(ctx)
	if err != nil {
		logger.TG.ErrorContext(ctx, "admin_stats", "status", "fail", "err", err)
		return c.Send("Stats are unavailable right now.", tele.ModeHTML)
	}
	subs, _ := a.store.Submissions.Count(ctx)
	pending, _ := a.help.CountPending(ctx)
	all, _ := a.offers.ListAll(ctx)
	bans, _ := a.store.Bans.List(ctx)

	enabled := 0
	for _, o := range all {
		if o.Enabled {
			enabled++
		}
	}

	return c.Send(fmt.Sprintf(
		"<b>Stats</b>\n\nUsers: %d (%d banned)\nOffers: %d (%d enabled)\nSubmissions: %d\nPending help: %d",
		users, len(bans), len(all), enabled, subs, pending,
	), tele.ModeHTML, adminMenu())
}

func (a *App) handleAdminRecent(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_recent")

	users, err := a.store.Users.Recent(ctx, recentUsersLimit)
	if err != nil {
		logger.TG.ErrorContext(ctx, "admin_recent", "status", "fail", "err", err)
		return c.Send("Recent users are unavailable right now.", tele.ModeHTML)
	}
	if len(users) == 0 {
		return c.Send("No users yet.", tele.ModeHTML, adminMenu())
	}

	var b strings.Builder
	b.WriteString("<b>Newest users</b>\n")
	for _, u := range users {
		fmt.Fprintf(&b, "\n• %s (@%s, <code>%d</code>) — %s",
			htmlEscape(u.DisplayName), htmlEscape(u.Username), u.ID,
			u.CreatedAt.UTC().Format(time.DateTime))
	}
	return c.Send(b.String(), tele.ModeHTML, adminMenu())
}

func (a *App) handleAdminHelpList(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_help_list")

	reqs, err := a.help.ListPending(ctx, helpQueueLimit)
	if err != nil {
		logger.TG.ErrorContext(ctx, "admin_help_list", "status", "fail", "err", err)
		return c.Send("Help queue is unavailable right now.", tele.ModeHTML)
	}
	if len(reqs) == 0 {
		return c.Send("The help queue is empty. 🎉", tele.ModeHTML, adminMenu())
	}

	for _, req := range reqs {
		text := fmt.Sprintf("🆘 #%d from <code>%d</code>\n\n%s",
			req.ID, req.UserID, htmlEscape(req.Message))
		if err := c.Send(text, tele.ModeHTML, replyMenu(req.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) handleAdminReply(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_reply")

	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return c.Send(textReplyGone, tele.ModeHTML)
	}
	err = a.sessions.SetMode(ctx, c.Sender().ID, models.ModeAwaitAdminReply,
		models.ModeContext{HelpRequest: id})
	if err != nil {
		logger.TG.ErrorContext(ctx, "admin_reply", "status", "fail", "err", err)
		return c.Send(textReplyGone, tele.ModeHTML)
	}
	return c.Send(textReplyPrompt, tele.ModeHTML, cancelMenu())
}

// enterAdminMode is the shared body of the prompt-then-wait admin buttons.
func (a *App) enterAdminMode(c tele.Context, handler string, mode models.Mode, prompt string) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, handler)
	if err := a.sessions.SetMode(ctx, c.Sender().ID, mode, models.ModeContext{}); err != nil {
		logger.TG.ErrorContext(ctx, handler, "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	return c.Send(prompt, tele.ModeHTML, cancelMenu())
}

func (a *App) handleAdminBroadcast(c tele.Context) error {
	return a.enterAdminMode(c, "admin_broadcast", models.ModeAwaitBroadcast, textBroadcastPrompt)
}

func (a *App) handleAdminBan(c tele.Context) error {
	return a.enterAdminMode(c, "admin_ban", models.ModeAwaitBanTarget, textBanPrompt)
}

func (a *App) handleAdminUnban(c tele.Context) error {
	return a.enterAdminMode(c, "admin_unban", models.ModeAwaitUnbanTarget, textUnbanPrompt)
}

func (a *App) handleAdminOfferAdd(c tele.Context) error {
	return a.enterAdminMode(c, "admin_offer_add", models.ModeAwaitOfferCreate, textOfferFormPrompt)
}

func (a *App) handleAdminOfferDelete(c tele.Context) error {
	return a.enterAdminMode(c, "admin_offer_delete", models.ModeAwaitOfferDelete, textOfferDeletePrompt)
}

func (a *App) handleAdminOffers(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_offers")

	all, err := a.offers.ListAll(ctx)
	if err != nil {
		logger.TG.ErrorContext(ctx, "admin_offers", "status", "fail", "err", err)
		return c.Send("Offers are unavailable right now.", tele.ModeHTML)
	}
	return c.Send("<b>Offers</b>\n\nTap a name to edit, or toggle availability.",
		tele.ModeHTML, adminOffersMenu(all))
}

func (a *App) handleAdminOfferEdit(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_offer_edit")

	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return c.Send(textOfferGone, tele.ModeHTML)
	}
	offer, err := a.offers.Get(ctx, id)
	if err != nil {
		return c.Send(textOfferGone, tele.ModeHTML)
	}
	err = a.sessions.SetMode(ctx, c.Sender().ID, models.ModeAwaitOfferEdit,
		models.ModeContext{OfferID: id})
	if err != nil {
		logger.TG.ErrorContext(ctx, "admin_offer_edit", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	return c.Send(offerCard(offer)+"\n\n"+textOfferFormPrompt, tele.ModeHTML, cancelMenu())
}

func (a *App) handleAdminOfferFlip(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin_offer_flip")

	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return c.Send(textOfferGone, tele.ModeHTML)
	}
	offer, err := a.offers.Get(ctx, id)
	if err != nil {
		return c.Send(textOfferGone, tele.ModeHTML)
	}

	flipped := !offer.Enabled
	if _, err := a.offers.Update(ctx, id, offers.UpdateFields{Enabled: &flipped}); err != nil {
		logger.TG.ErrorContext(ctx, "admin_offer_flip", "status", "fail", "err", err)
		return c.Send("Could not update the offer.", tele.ModeHTML)
	}

	all, err := a.offers.ListAll(ctx)
	if err != nil {
		return c.Send("Updated.", tele.ModeHTML)
	}
	return c.Send("<b>Offers</b>\n\nTap a name to edit, or toggle availability.",
		tele.ModeHTML, adminOffersMenu(all))
}
