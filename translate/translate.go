// Package translate formats user visible text for the host locale.
package translate

import (
	"log"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer atomic.Pointer[message.Printer]

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("stackvm: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer.Store(message.NewPrinter(message.MatchLanguage(locales...)))
}

// SetLanguage overrides the detected locale with a BCP 47 language tag.
func SetLanguage(lang string) (err error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return
	}

	printer.Store(message.NewPrinter(tag))
	return
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Load().Sprintf(key, args...)
}
