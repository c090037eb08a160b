// Package translate formats user visible messages for the host locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer     *message.Printer
	printerOnce sync.Once
	printerLock sync.RWMutex
)

// hostPrinter builds a printer matching the host locales, falling back to en-US.
func hostPrinter() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("chronal: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
}

func current() *message.Printer {
	printerOnce.Do(func() {
		p := hostPrinter()
		printerLock.Lock()
		if printer == nil {
			printer = p
		}
		printerLock.Unlock()
	})

	printerLock.RLock()
	defer printerLock.RUnlock()
	return printer
}

// SetLanguage forces message formatting to a specific BCP 47 tag.
func SetLanguage(tag string) (err error) {
	lang, err := language.Parse(tag)
	if err != nil {
		return
	}

	printerLock.Lock()
	printer = message.NewPrinter(lang)
	printerLock.Unlock()
	return
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return current().Sprintf(key, args...)
}
