package reporter

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobsearch-agent/internal/models"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestFormatJob(t *testing.T) {
	tests := []struct {
		name     string
		job      models.Job
		contains []string
		excludes []string
	}{
		{
			name: "escapes markup",
			job: models.Job{
				Title:     "Go <Senior> & Lead",
				Company:   "R&D Labs",
				SourceURL: "https://www.linkedin.com/jobs/view/42/",
			},
			contains: []string{"<b>Go &lt;Senior&gt; &amp; Lead</b>", "🏢 R&amp;D Labs", "📍 N/A", `href="https://www.linkedin.com/jobs/view/42/"`},
			excludes: []string{"📅", "💰"},
		},
		{
			name: "optional fields",
			job: models.Job{
				Title:          "Backend Engineer",
				Company:        "Acme",
				Location:       "Berlin (Hybrid)",
				PostedTimeText: "2 days ago",
				Salary:         "€70k",
				SourceURL:      "https://www.linkedin.com/jobs/view/7/",
			},
			contains: []string{"📍 Berlin (Hybrid)", "📅 2 days ago", "💰 €70k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := FormatJob(tt.job)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, text, not)
			}
		})
	}
}

func TestSendJob(t *testing.T) {
	bot := &fakeBot{}
	r := &TelegramReporter{bot: bot, chatID: 99}

	require.NoError(t, r.SendJob(models.Job{ID: "1", Title: "Go", Company: "Acme", SourceURL: "https://www.linkedin.com/jobs/view/1/"}))
	require.NoError(t, r.SendJob(models.Job{ID: "h1", Title: "Go", Company: "Acme", SourceURL: ""}))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(99), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
	assert.NotNil(t, bot.sent[0].ReplyMarkup)
	assert.Nil(t, bot.sent[1].ReplyMarkup)
}

func TestSendStatusAndError(t *testing.T) {
	bot := &fakeBot{}
	r := &TelegramReporter{bot: bot, chatID: 1}

	require.NoError(t, r.SendStatus("found 3 <new> jobs"))
	require.NoError(t, r.SendError(errors.New("login timeout")))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, "ℹ️ found 3 &lt;new&gt; jobs", bot.sent[0].Text)
	assert.Contains(t, bot.sent[1].Text, "login timeout")

	bot.err = errors.New("Too Many Requests: retry after 5")
	assert.Error(t, r.SendStatus("x"))
}
