package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/telegram/keyboard"
	"github.com/m3rciful/offerbot/models"
)

// Callback keys. The router matches these against pressed buttons.
const (
	cbOffers    = "offers"
	cbOffer     = "offer"
	cbHelp      = "help"
	cbCheckJoin = "check_join"
	cbCancel    = "cancel"

	cbAdminPanel     = "admin"
	cbAdminStats     = "admin_stats"
	cbAdminRecent    = "admin_recent"
	cbAdminHelpList  = "admin_help"
	cbAdminReply     = "admin_reply"
	cbAdminBroadcast = "admin_broadcast"
	cbAdminBan       = "admin_ban"
	cbAdminUnban     = "admin_unban"
	cbAdminOffers    = "admin_offers"
	cbAdminOfferAdd  = "admin_offer_add"
	cbAdminOfferEdit = "admin_offer_edit"
	cbAdminOfferDel  = "admin_offer_del"
	cbAdminOfferFlip = "admin_offer_flip"
)

func mainMenu(isAdmin bool) *tele.ReplyMarkup {
	buttons := []keyboard.Btn{
		{Text: "🎁 Offers", Unique: cbOffers},
		{Text: "🆘 Help", Unique: cbHelp},
	}
	if isAdmin {
		buttons = append(buttons, keyboard.Btn{Text: "🛠 Admin", Unique: cbAdminPanel})
	}
	return keyboard.Column(buttons...)
}

func offerListMenu(offers []models.Offer) *tele.ReplyMarkup {
	buttons := make([]keyboard.Btn, 0, len(offers)+1)
	for _, o := range offers {
		buttons = append(buttons, keyboard.Btn{
			Text:   o.Name,
			Unique: cbOffer,
			Data:   fmt.Sprintf("%d", o.ID),
		})
	}
	buttons = append(buttons, keyboard.Btn{Text: "❌ Cancel", Unique: cbCancel})
	return keyboard.Column(buttons...)
}

// joinMenu lists the required channels as URL buttons plus a re-check
// button.
func joinMenu(channels []string) *tele.ReplyMarkup {
	buttons := make([]keyboard.Btn, 0, len(channels)+1)
	for _, ch := range channels {
		name := ch
		if len(name) > 0 && name[0] == '@' {
			name = name[1:]
		}
		buttons = append(buttons, keyboard.Btn{
			Text: "📣 " + ch,
			URL:  "https://t.me/" + name,
		})
	}
	buttons = append(buttons, keyboard.Btn{Text: "🔄 I joined, re-check", Unique: cbCheckJoin})
	return keyboard.Column(buttons...)
}

func cancelMenu() *tele.ReplyMarkup {
	return keyboard.Column(keyboard.Btn{Text: "❌ Cancel", Unique: cbCancel})
}

func adminMenu() *tele.ReplyMarkup {
	return keyboard.Rows(
		[]keyboard.Btn{
			{Text: "📊 Stats", Unique: cbAdminStats},
			{Text: "🆕 Recent users", Unique: cbAdminRecent},
		},
		[]keyboard.Btn{
			{Text: "🆘 Help queue", Unique: cbAdminHelpList},
			{Text: "📢 Broadcast", Unique: cbAdminBroadcast},
		},
		[]keyboard.Btn{
			{Text: "🚫 Ban", Unique: cbAdminBan},
			{Text: "♻️ Unban", Unique: cbAdminUnban},
		},
		[]keyboard.Btn{
			{Text: "🎁 Offers", Unique: cbAdminOffers},
		},
	)
}

func adminOffersMenu(offers []models.Offer) *tele.ReplyMarkup {
	rows := make([][]keyboard.Btn, 0, len(offers)+1)
	for _, o := range offers {
		id := fmt.Sprintf("%d", o.ID)
		flip := "🔕 Disable"
		if !o.Enabled {
			flip = "🔔 Enable"
		}
		rows = append(rows, []keyboard.Btn{
			{Text: o.Name, Unique: cbAdminOfferEdit, Data: id},
			{Text: flip, Unique: cbAdminOfferFlip, Data: id},
		})
	}
	rows = append(rows, []keyboard.Btn{
		{Text: "➕ Add", Unique: cbAdminOfferAdd},
		{Text: "🗑 Delete", Unique: cbAdminOfferDel},
	})
	return keyboard.Rows(rows...)
}

func replyMenu(helpID int64) *tele.ReplyMarkup {
	return keyboard.Column(keyboard.Btn{
		Text:   "✍️ Reply",
		Unique: cbAdminReply,
		Data:   fmt.Sprintf("%d", helpID),
	})
}
