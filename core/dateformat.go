package core

import (
	"fmt"
	"time"
)

type dateLocale struct {
	months [12]string
	format func(day int, month string, year int) string
}

var dateLocales = map[string]dateLocale{
	"pt-BR": {
		months: [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho",
			"julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
		format: func(d int, m string, y int) string { return fmt.Sprintf("%d de %s de %d", d, m, y) },
	},
	"es-ES": {
		months: [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio",
			"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		format: func(d int, m string, y int) string { return fmt.Sprintf("%d de %s de %d", d, m, y) },
	},
	"en-US": {
		months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		format: func(d int, m string, y int) string { return fmt.Sprintf("%s %d, %d", m, d, y) },
	},
}

// FormatLongDate renders the calendar date of t (in UTC) as day, month name and year
// in locale, e.g. "2 de janeiro de 2024" for pt-BR. Unknown locales fall back to pt-BR.
func FormatLongDate(t time.Time, locale string) string {
	l, ok := dateLocales[locale]
	if !ok {
		l = dateLocales["pt-BR"]
	}
	t = t.UTC()
	return l.format(t.Day(), l.months[t.Month()-1], t.Year())
}
