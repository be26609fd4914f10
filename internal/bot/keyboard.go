package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autoads_bot/internal/model"
)

// Reply-keyboard button labels, one per filter dimension plus service keys.
const (
	btnBrand        = "Марка"
	btnYear         = "Год"
	btnPrice        = "Цена"
	btnRegistration = "Регистрация"
	btnFuel         = "Топливо"
	btnTransmission = "КПП"
	btnCondition    = "Состояние"
	btnAuthor       = "Автор"
	btnWheel        = "Руль"
	btnFilters      = "Фильтры"
	btnReset        = "Сброс"
)

// buttonDimensions maps a reply-keyboard label to its filter dimension.
var buttonDimensions = map[string]model.Dimension{
	btnBrand:        model.DimBrand,
	btnYear:         model.DimYear,
	btnPrice:        model.DimPrice,
	btnRegistration: model.DimRegistration,
	btnFuel:         model.DimFuel,
	btnTransmission: model.DimTransmission,
	btnCondition:    model.DimCondition,
	btnAuthor:       model.DimAuthor,
	btnWheel:        model.DimWheel,
}

// dimensionOptions holds the fixed value vocabulary of each button-driven
// dimension, in the site's own wording (matching is case-sensitive).
var dimensionOptions = map[model.Dimension][]string{
	model.DimRegistration: {"Молдова", "ПМР", "Другая"},
	model.DimFuel:         {"Бензин", "Дизель", "Газ/Бензин", "Гибрид", "Электро"},
	model.DimTransmission: {"Механика", "Автомат", "Вариатор", "Робот"},
	model.DimCondition:    {"Новый", "С пробегом", "Аварийный"},
	model.DimAuthor:       {"Частное лицо", "Компания"},
	model.DimWheel:        {"Левый", "Правый"},
}

// dimensionLabels maps a dimension back to its display label.
var dimensionLabels = map[model.Dimension]string{
	model.DimBrand:        btnBrand,
	model.DimYear:         btnYear,
	model.DimPrice:        btnPrice,
	model.DimRegistration: btnRegistration,
	model.DimFuel:         btnFuel,
	model.DimTransmission: btnTransmission,
	model.DimCondition:    btnCondition,
	model.DimAuthor:       btnAuthor,
	model.DimWheel:        btnWheel,
}

// stepForDimension maps a free-text dimension to its editing step.
var stepForDimension = map[model.Dimension]model.Step{
	model.DimBrand: model.StepBrand,
	model.DimYear:  model.StepYear,
	model.DimPrice: model.StepPrice,
}

// dimensionForStep is the inverse of stepForDimension.
var dimensionForStep = map[model.Step]model.Dimension{
	model.StepBrand: model.DimBrand,
	model.StepYear:  model.DimYear,
	model.StepPrice: model.DimPrice,
}

// mainKeyboard is the persistent reply keyboard shown after /start.
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBrand),
			tgbotapi.NewKeyboardButton(btnYear),
			tgbotapi.NewKeyboardButton(btnPrice),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRegistration),
			tgbotapi.NewKeyboardButton(btnFuel),
			tgbotapi.NewKeyboardButton(btnTransmission),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCondition),
			tgbotapi.NewKeyboardButton(btnAuthor),
			tgbotapi.NewKeyboardButton(btnWheel),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFilters),
			tgbotapi.NewKeyboardButton(btnReset),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// toggleKeyboard builds the inline keyboard for one button-driven dimension.
// Values already in the user's set are marked; callback data carries the
// option index to stay inside Telegram's 64-byte callback limit.
func toggleKeyboard(dim model.Dimension, selected []string) tgbotapi.InlineKeyboardMarkup {
	options := dimensionOptions[dim]
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for i, opt := range options {
		label := opt
		if containsValue(selected, opt) {
			label = "✓ " + opt
		}
		data := toggleCallbackData(dim, i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func containsValue(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
