package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParsePrefersUnique(t *testing.T) {
	key, payload := Parse(&tele.Callback{Unique: "offer", Data: "42"})
	assert.Equal(t, "offer", key)
	assert.Equal(t, "42", payload)
}

func TestParseStripsFormFeedPrefix(t *testing.T) {
	key, payload := Parse(&tele.Callback{Data: "\foffer|7"})
	assert.Equal(t, "offer", key)
	assert.Equal(t, "7", payload)
}

func TestParseRawDataWithoutPayload(t *testing.T) {
	key, payload := Parse(&tele.Callback{Data: "\fcancel"})
	assert.Equal(t, "cancel", key)
	assert.Empty(t, payload)
}

func TestParseNilCallback(t *testing.T) {
	key, payload := Parse(nil)
	assert.Empty(t, key)
	assert.Empty(t, payload)
}
