package format

import "strings"

const mdSpecials = "_*[`\\"

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

// EscapeMarkdown escapes the characters Telegram's legacy Markdown mode
// treats as formatting, so free-form text (bank names, holder names) can
// be embedded safely.
func EscapeMarkdown(text string) string {
	return escape(text, mdSpecials)
}

// EscapeMarkdownV2 escapes all MarkdownV2 special characters.
func EscapeMarkdownV2(text string) string {
	return escape(text, mdV2Specials)
}

func escape(text, specials string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
