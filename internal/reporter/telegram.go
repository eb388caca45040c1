package reporter

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-jobsearch-agent/internal/models"
)

// sender is the part of *tgbotapi.BotAPI the reporter uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramReporter struct {
	bot    sender
	chatID int64
}

func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return &TelegramReporter{bot: bot, chatID: chatID}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML //use HTML for bold/italic
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// FormatJob renders a job as a Telegram HTML message.
func FormatJob(job models.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💼 <b>%s</b>\n", html.EscapeString(job.Title))
	fmt.Fprintf(&b, "🏢 %s\n", html.EscapeString(job.Company))

	loc := job.Location
	if loc == "" {
		loc = "N/A"
	}
	fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(loc))
	if job.PostedTimeText != "" {
		fmt.Fprintf(&b, "📅 %s\n", html.EscapeString(job.PostedTimeText))
	}
	if job.Salary != "" {
		fmt.Fprintf(&b, "💰 %s\n", html.EscapeString(job.Salary))
	}
	fmt.Fprintf(&b, "🔗 <a href=\"%s\">View Job</a>", html.EscapeString(job.SourceURL))
	return b.String()
}

func (t *TelegramReporter) SendJob(job models.Job) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatJob(job))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if strings.HasPrefix(job.SourceURL, "http") {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", job.SourceURL)),
		)
	}
	_, err := t.bot.Send(msg)
	return err
}

func (t *TelegramReporter) SendStatus(message string) error {
	return t.SendMessage("ℹ️ " + html.EscapeString(message))
}

func (t *TelegramReporter) SendError(errReq error) error {
	return t.SendMessage(fmt.Sprintf("⚠️ <b>Job search error</b>:\n%s", html.EscapeString(errReq.Error())))
}
