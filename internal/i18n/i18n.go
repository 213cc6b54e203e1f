// Package i18n resolves user-facing messages for the negotiated locale.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key names a translatable message.
type Key string

const (
	NoteInputPrompt   Key = "M_NOTE_INPUT_PROMPT"
	ButtonSend        Key = "M_BUTTON_SEND"
	UploadFailed      Key = "M_UPLOAD_FAILED"
	FileAlreadyExists Key = "M_FILE_ALREADY_EXISTS"
)

var translations = map[language.Tag]map[Key]string{
	language.English: {
		NoteInputPrompt:   "Enter a comment",
		ButtonSend:        "Send",
		UploadFailed:      "Upload failed! File: %s",
		FileAlreadyExists: "File %s is already existed.",
	},
	language.Vietnamese: {
		NoteInputPrompt:   "Nhập bình luận",
		ButtonSend:        "Gửi",
		UploadFailed:      "Tải lên thất bại! Tệp: %s",
		FileAlreadyExists: "Tệp %s đã tồn tại.",
	},
}

// Bundle is a compiled message catalog plus the locale matcher.
type Bundle struct {
	cat       *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

// NewBundle builds the catalog; defaultLocale is preferred when the client
// sends no usable Accept-Language.
func NewBundle(defaultLocale string) (*Bundle, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("parse default locale %q: %w", defaultLocale, err)
	}

	supported := []language.Tag{language.English, language.Vietnamese}
	for i, tag := range supported {
		if base, _ := tag.Base(); base == mustBase(def) {
			supported[0], supported[i] = supported[i], supported[0]
			break
		}
	}

	cat := catalog.NewBuilder(catalog.Fallback(supported[0]))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := cat.SetString(tag, string(key), msg); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", tag, key, err)
			}
		}
	}

	return &Bundle{
		cat:       cat,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// Match picks the best supported locale for an Accept-Language header.
func (b *Bundle) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return b.supported[0]
	}
	_, idx, _ := b.matcher.Match(tags...)
	return b.supported[idx]
}

// Message formats key for tag.
func (b *Bundle) Message(tag language.Tag, key Key, args ...interface{}) string {
	p := message.NewPrinter(tag, message.Catalog(b.cat))
	return p.Sprintf(string(key), args...)
}

// Default returns the fallback locale.
func (b *Bundle) Default() language.Tag {
	return b.supported[0]
}

func mustBase(tag language.Tag) language.Base {
	base, _ := tag.Base()
	return base
}
