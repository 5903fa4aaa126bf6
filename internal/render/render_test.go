package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buiq-backend/internal/models"
)

func TestHTML_RendersMarkdown(t *testing.T) {
	out := HTML("**Hi** there")
	assert.Contains(t, out, "<strong>Hi</strong>")
	assert.Contains(t, out, "there")
}

func TestHTML_StripsScripts(t *testing.T) {
	out := HTML("hello <script>alert(1)</script>")
	assert.NotContains(t, out, "<script>")
}

func TestBotHTML_OnlyDecoratesBotMessages(t *testing.T) {
	user := BotHTML(models.Message{Text: "**me**", Sender: models.SenderUser})
	assert.Empty(t, user.HTML)

	bot := BotHTML(models.Message{Text: "**you**", Sender: models.SenderBot})
	assert.Contains(t, bot.HTML, "<strong>you</strong>")
	assert.Equal(t, "**you**", bot.Text)
}

func TestTerminal_Render(t *testing.T) {
	r, err := NewTerminal(60, "notty")
	require.NoError(t, err)

	out := r.Render("# Title\n\nSome **bold** text")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.False(t, strings.HasSuffix(out, "\n"))
}
