package bot

import (
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/conversation"
	"gopkg.in/telebot.v4"
)

const buttonsPerRow = 2

// choicesMarkup renders choices as an inline keyboard, nil when there are none.
func choicesMarkup(choices []conversation.Choice) *telebot.ReplyMarkup {
	if len(choices) == 0 {
		return nil
	}

	var rows [][]telebot.InlineButton
	buttons := make([]telebot.InlineButton, 0, buttonsPerRow)

	for idx, choice := range choices {
		buttons = append(buttons, telebot.InlineButton{
			Unique: btnChoice.Unique,
			Text:   choice.Label,
			Data:   choice.Token,
		})
		if (idx+1)%buttonsPerRow == 0 || idx == len(choices)-1 {
			rows = append(rows, buttons)
			buttons = make([]telebot.InlineButton, 0, buttonsPerRow)
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}
