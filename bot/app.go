// Package bot assembles the application: services over storage, the
// handler set and the transport wiring.
package bot

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/config"
	tg "github.com/m3rciful/offerbot/core/telegram"
	"github.com/m3rciful/offerbot/core/telegram/commands"
	"github.com/m3rciful/offerbot/core/telegram/middleware"
	"github.com/m3rciful/offerbot/core/telegram/router"
	"github.com/m3rciful/offerbot/models"
	"github.com/m3rciful/offerbot/services/broadcast"
	"github.com/m3rciful/offerbot/services/help"
	"github.com/m3rciful/offerbot/services/membership"
	"github.com/m3rciful/offerbot/services/offers"
	"github.com/m3rciful/offerbot/services/postback"
	"github.com/m3rciful/offerbot/services/ratelimit"
	"github.com/m3rciful/offerbot/services/sessions"
	"github.com/m3rciful/offerbot/storage"
)

// App owns the service graph and the handler set.
type App struct {
	cfg   *config.Config
	store *storage.Store

	notifier   *Notifier
	sessions   *sessions.Service
	limiter    *ratelimit.Service
	membership *membership.Service
	offers     *offers.Service
	postback   *postback.Service
	pool       *postback.Pool
	help       *help.Service
	broadcast  *broadcast.Service
}

// New wires services over the store. The notifier stays unbound until the
// transport is up; sends before that are dropped.
func New(cfg *config.Config, store *storage.Store) *App {
	a := &App{
		cfg:      cfg,
		store:    store,
		notifier: NewNotifier(cfg.Bot.MessageLimit),
	}

	a.sessions = sessions.New(store.Users, a.notifyNewUser)
	a.limiter = ratelimit.New(store.Counters, map[string]int{
		ratelimit.CategoryHelp: cfg.Bot.HelpDailyLimit,
	})
	a.membership = membership.New(a.notifier, cfg.Bot.RequiredChannels)
	a.offers = offers.New(store.Offers)

	runner := postback.NewRunner(
		tg.PostbackHTTPClient(),
		cfg.Postback.PostbackTimeout(),
		cfg.Postback.BodyLimit,
	)
	a.pool = postback.NewPool(cfg.Postback.Workers, cfg.Postback.QueueSize)
	a.postback = postback.New(runner, a.pool, store.Submissions, a.offers)

	a.help = help.New(store.Help, a.limiter)
	a.broadcast = broadcast.New(store.Users, store.Bans, func(ctx context.Context, userID int64, text string) error {
		return a.notifier.SendSync(ctx, userID, text)
	})

	return a
}

// Shutdown drains the orchestration pool, letting in-flight runs finish.
func (a *App) Shutdown() {
	a.pool.Stop()
}

func (a *App) notifyNewUser(ctx context.Context, u *models.User) {
	_ = a.notifier.Send(ctx, a.cfg.Telegram.AdminID, fmt.Sprintf(
		"🆕 New user: <b>%s</b> (@%s, id <code>%d</code>)",
		htmlEscape(u.DisplayName), htmlEscape(u.Username), u.ID,
	))
}

func (a *App) isAdmin(c tele.Context) bool {
	s := c.Sender()
	return s != nil && a.cfg.Telegram.AdminID != 0 && s.ID == a.cfg.Telegram.AdminID
}

// BuildRunOptions assembles the registry, middleware chain and routes for
// the transport run loop.
func (a *App) BuildRunOptions() tg.RunOptions {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Main menu",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current action",
	})
	adminGate := middleware.AdminOnly(middleware.AdminOptions{
		AdminID: a.cfg.Telegram.AdminID,
		OnReject: func(c tele.Context) error {
			return c.Send(textAdminOnly, tele.ModeHTML)
		},
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     adminGate(a.handleAdminCommand),
		Description: "Admin panel",
		AdminOnly:   true,
		Hidden:      true,
	})

	for key, h := range map[string]tele.HandlerFunc{
		cbOffers:    a.handleOffersList,
		cbOffer:     a.handleOfferSelected,
		cbHelp:      a.handleHelpButton,
		cbCheckJoin: a.handleCheckJoin,
		cbCancel:    a.handleCancelButton,

		cbAdminPanel:     a.handleAdminPanel,
		cbAdminStats:     a.handleAdminStats,
		cbAdminRecent:    a.handleAdminRecent,
		cbAdminHelpList:  a.handleAdminHelpList,
		cbAdminReply:     a.handleAdminReply,
		cbAdminBroadcast: a.handleAdminBroadcast,
		cbAdminBan:       a.handleAdminBan,
		cbAdminUnban:     a.handleAdminUnban,
		cbAdminOffers:    a.handleAdminOffers,
		cbAdminOfferAdd:  a.handleAdminOfferAdd,
		cbAdminOfferEdit: a.handleAdminOfferEdit,
		cbAdminOfferDel:  a.handleAdminOfferDelete,
		cbAdminOfferFlip: a.handleAdminOfferFlip,
	} {
		_ = reg.RegisterCallback(key, h)
	}

	reg.SetTextFallback(func(c tele.Context) error {
		return c.Send(textUnknownInput, tele.ModeHTML)
	})

	var banChecker middleware.BanChecker = a.store.Bans

	return tg.RunOptions{
		Config:   a.cfg,
		Registry: reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, banChecker, func(c tele.Context) error {
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "Slow down a little"})
			}
			return nil
		}),
		Routes: []tg.Route{
			router.TextRoute(a, reg, router.TextOptions{}),
			router.CallbackRoute(reg, router.CallbackOptions{}),
		},
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.notifier.Bind(rt.Bot, rt.Dispatcher)
			return nil
		},
	}
}
