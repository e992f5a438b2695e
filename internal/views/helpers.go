package views

import (
	"html/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ScreamIt returns text uppercased.
// A Caser keeps state, so each call gets its own.
func ScreamIt(text string) string {
	return cases.Upper(language.Und).String(text)
}

// CurrentYear returns the calendar year of now()
func CurrentYear(now func() time.Time) int {
	return now().Year()
}

// Helpers returns the template functions every page can use.
// A nil clock means time.Now.
func Helpers(clock func() time.Time) template.FuncMap {
	if clock == nil {
		clock = time.Now
	}
	return template.FuncMap{
		"currentYear": func() int { return CurrentYear(clock) },
		"screamIt":    ScreamIt,
	}
}
