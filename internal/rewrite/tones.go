package rewrite

// Locales the bot ships templates for.
const (
	LocaleRU = "ru"
	LocaleTJ = "tj"
	LocaleUZ = "uz"
	LocaleKZ = "kz"

	DefaultLocale = LocaleRU
)

// Built-in tone keys. Any other string is treated as a custom style.
const (
	ToneBusiness   = "business"
	ToneFriendly   = "friendly"
	ToneHype       = "hype"
	ToneInspire    = "inspire"
	TonePersuasive = "persuasive"
	ToneHumorous   = "humorous"
)

// ToneResolver turns a tone key into the label folded into the prompt.
type ToneResolver interface {
	Label(tone, locale string) string
}

// Tones is the static label table.
type Tones map[string]map[string]string

// DefaultTones holds the prompt labels per locale.
var DefaultTones = Tones{
	LocaleRU: {
		ToneBusiness:   "💼 деловой профессиональный стиль",
		ToneFriendly:   "💬 дружелюбный лёгкий тон",
		ToneHype:       "🚀 современный и хайповый стиль",
		ToneInspire:    "✨ вдохновляющий стиль",
		TonePersuasive: "🧠 убедительный тон",
		ToneHumorous:   "😄 с юмором",
	},
	LocaleTJ: {
		ToneBusiness:   "💼 Расмӣ",
		ToneFriendly:   "💬 Дӯстона",
		ToneHype:       "🚀 Хайпдор",
		ToneInspire:    "✨ Илҳомбахш",
		TonePersuasive: "🧠 Қаноатбахш",
		ToneHumorous:   "😄 Баҳзадор",
	},
	LocaleUZ: {
		ToneBusiness:   "💼 Rasmiy",
		ToneFriendly:   "💬 Do'stona",
		ToneHype:       "🚀 Hype uslubi",
		ToneInspire:    "✨ Ilhomlantiruvchi",
		TonePersuasive: "🧠 Ishontiruvchi",
		ToneHumorous:   "😄 Hazil aralash",
	},
	LocaleKZ: {
		ToneBusiness:   "💼 Ресми",
		ToneFriendly:   "💬 Достық",
		ToneHype:       "🚀 Хайп стилі",
		ToneInspire:    "✨ Шабыттандыратын",
		TonePersuasive: "🧠 Сендіргіш",
		ToneHumorous:   "😄 Әзілмен",
	},
}

// Label resolves tone in locale, falling back to the default locale and
// finally to the tone string itself.
func (t Tones) Label(tone, locale string) string {
	if labels, ok := t[locale]; ok {
		if l, ok := labels[tone]; ok {
			return l
		}
	}
	if l, ok := t[DefaultLocale][tone]; ok {
		return l
	}
	return tone
}

// SupportedLocale reports whether locale has a label table.
func SupportedLocale(locale string) bool {
	_, ok := DefaultTones[locale]
	return ok
}
