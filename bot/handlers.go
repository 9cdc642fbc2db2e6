package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/callbacks"
	"github.com/m3rciful/offerbot/core/telegram/helpers"
	"github.com/m3rciful/offerbot/models"
	"github.com/m3rciful/offerbot/services/postback"
	"github.com/m3rciful/offerbot/services/ratelimit"
)

func (a *App) handleStart(c tele.Context) error {
	ctx := helpers.WithHandler(c, "start")
	s := c.Sender()

	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if _, _, err := a.sessions.GetOrCreate(ctx, s.ID, name, s.Username); err != nil {
		logger.TG.ErrorContext(ctx, "start", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	return c.Send(textWelcome, tele.ModeHTML, mainMenu(a.isAdmin(c)))
}

func (a *App) handleCancel(c tele.Context) error {
	ctx := helpers.WithHandler(c, "cancel")

	mode, _, err := a.sessions.TakeMode(ctx, c.Sender().ID)
	if err != nil {
		return c.Send(textNothingToDo, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	}
	if mode == models.ModeNone {
		return c.Send(textNothingToDo, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	}
	return c.Send(textCancelled, tele.ModeHTML, mainMenu(a.isAdmin(c)))
}

func (a *App) handleCancelButton(c tele.Context) error {
	return a.handleCancel(c)
}

// requireMember runs the membership gate. On denial it answers with the
// join prompt and reports false; the caller just returns.
func (a *App) requireMember(c tele.Context, handler string) bool {
	ctx := helpers.WithHandler(c, handler)
	ok, missing := a.membership.IsMember(ctx, c.Sender().ID)
	if ok {
		return true
	}
	logger.TG.InfoContext(ctx, "membership_gate",
		"status", "denied", "username", missing)
	_ = c.Send(textJoinRequired, tele.ModeHTML, joinMenu(a.membership.Channels()))
	return false
}

func (a *App) handleOffersList(c tele.Context) error {
	if !a.requireMember(c, "offers_list") {
		return nil
	}
	ctx := helpers.WithHandler(c, "offers_list")

	list, err := a.offers.ListEnabled(ctx)
	if err != nil {
		logger.TG.ErrorContext(ctx, "offers_list", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	if len(list) == 0 {
		return c.Send(textNoOffers, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	}
	return c.Send("Pick an offer:", tele.ModeHTML, offerListMenu(list))
}

func (a *App) handleOfferSelected(c tele.Context) error {
	if !a.requireMember(c, "offer_selected") {
		return nil
	}
	ctx := helpers.WithHandler(c, "offer_selected")

	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return c.Send(textOfferGone, tele.ModeHTML)
	}
	offer, err := a.offers.Get(ctx, id)
	if err != nil || !offer.Enabled {
		return c.Send(textOfferGone, tele.ModeHTML)
	}

	err = a.sessions.SetMode(ctx, c.Sender().ID, models.ModeAwaitOfferSubmit,
		models.ModeContext{OfferID: offer.ID})
	if err != nil {
		logger.TG.ErrorContext(ctx, "offer_selected", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	return c.Send(offerCard(offer)+"\n\n"+textSubmitPrompt, tele.ModeHTML, cancelMenu())
}

func (a *App) handleHelpButton(c tele.Context) error {
	if !a.requireMember(c, "help_button") {
		return nil
	}
	ctx := helpers.WithHandler(c, "help_button")

	allowed, _, err := a.limiter.CanAct(ctx, c.Sender().ID, ratelimit.CategoryHelp)
	if err != nil || !allowed {
		return c.Send(textHelpLimit, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	}

	err = a.sessions.SetMode(ctx, c.Sender().ID, models.ModeAwaitHelpMessage, models.ModeContext{})
	if err != nil {
		logger.TG.ErrorContext(ctx, "help_button", "status", "fail", "err", err)
		return c.Send(textUnknownInput, tele.ModeHTML)
	}
	return c.Send(textHelpPrompt, tele.ModeHTML, cancelMenu())
}

func (a *App) handleCheckJoin(c tele.Context) error {
	ctx := helpers.WithHandler(c, "check_join")

	ok, _ := a.membership.IsMember(ctx, c.Sender().ID)
	if !ok {
		return c.Send(textJoinRequired, tele.ModeHTML, joinMenu(a.membership.Channels()))
	}
	return c.Send(textJoinOK, tele.ModeHTML, mainMenu(a.isAdmin(c)))
}

// submitOffer handles the tracking link sent while in the submission mode.
// The mode is already released by the time this runs.
func (a *App) submitOffer(c tele.Context, mc models.ModeContext, rawURL string) error {
	ctx := helpers.WithHandler(c, "offer_submit")

	offer, err := a.offers.Get(ctx, mc.OfferID)
	if err != nil || !offer.Enabled {
		return c.Send(textOfferGone, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	}

	sink := &progressSink{notifier: a.notifier, chatID: c.Chat().ID, total: offer.Steps()}
	err = a.postback.Submit(ctx, c.Sender().ID, offer, rawURL, sink)
	switch {
	case err == nil:
		return c.Send(textRunStarted, tele.ModeHTML)
	case models.IsValidation(err):
		return c.Send(htmlEscape(err.Error())+"\n\n"+textPickAgain, tele.ModeHTML, mainMenu(a.isAdmin(c)))
	case errors.Is(err, postback.ErrQueueFull):
		return c.Send(textQueueBusy, tele.ModeHTML)
	default:
		logger.TG.ErrorContext(ctx, "offer_submit", "status", "fail", "err", err)
		return c.Send(textQueueBusy, tele.ModeHTML)
	}
}

// progressSink forwards run progress to the submitting chat. It runs on a
// worker goroutine; sends go through the async dispatcher and never block.
type progressSink struct {
	notifier *Notifier
	chatID   int64
	total    int
}

func (p *progressSink) StepCompleted(ctx context.Context, step models.StepResult, totalSteps int) {
	_ = p.notifier.Send(ctx, p.chatID, stepLine(step, totalSteps))
}

func (p *progressSink) Waiting(ctx context.Context, nextStep int, delay time.Duration) {
	_ = p.notifier.Send(ctx, p.chatID,
		fmt.Sprintf("⏳ Waiting %s before step %d/%d", delay, nextStep, p.total))
}

func (p *progressSink) RunFinished(ctx context.Context, sub *models.Submission) {
	_ = p.notifier.Send(ctx, p.chatID, runSummary(sub))
}
