// Package keyboard builds inline keyboards from compact declarations.
package keyboard

import tele "gopkg.in/telebot.v4"

// Btn describes one inline button. URL buttons take precedence over
// callback data when both are set.
type Btn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// Rows builds an inline keyboard from rows of Btn.
func Rows(rows ...[]Btn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, b := range row {
			if b.URL != "" {
				r[j] = *markup.URL(b.Text, b.URL).Inline()
				continue
			}
			r[j] = *markup.Data(b.Text, b.Unique, b.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// Column places each button on its own row.
func Column(buttons ...Btn) *tele.ReplyMarkup {
	rows := make([][]Btn, len(buttons))
	for i, b := range buttons {
		rows[i] = []Btn{b}
	}
	return Rows(rows...)
}

// Grid splits a flat button list into rows of up to perRow buttons.
func Grid(buttons []Btn, perRow int) *tele.ReplyMarkup {
	if perRow <= 1 {
		return Column(buttons...)
	}
	var rows [][]Btn
	for i := 0; i < len(buttons); i += perRow {
		end := i + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return Rows(rows...)
}
