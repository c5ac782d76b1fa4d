// Package clformat renders amounts and dates in Chilean conventions: dotted
// thousands for pesos, comma decimals for UF, and Spanish long-form dates in
// the America/Santiago zone.
package clformat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var santiago = mustLoadSantiago()

func mustLoadSantiago() *time.Location {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		// Fall back to a fixed offset matching Chilean standard time.
		return time.FixedZone("America/Santiago", -4*60*60)
	}
	return loc
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var spanishWeekdays = [...]string{
	"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
}

// CLP formats integer pesos with a peso sign and dotted thousands,
// e.g. 650000 -> "$650.000".
func CLP(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}

// UF formats a UF amount with two comma-separated decimals,
// e.g. 16.5 -> "16,50 UF".
func UF(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	return strings.Replace(s, ".", ",", 1) + " UF"
}

// ParseDate parses an ISO "2006-01-02" date in the Santiago zone.
func ParseDate(iso string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", iso, santiago)
}

// FormatISO renders a time as an ISO date.
func FormatISO(t time.Time) string {
	return t.Format("2006-01-02")
}

// LongDate renders an ISO date in Spanish long form,
// e.g. "2026-02-26" -> "26 de febrero de 2026". Unparseable input is
// returned unchanged.
func LongDate(iso string) string {
	t, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// WeekdayDate renders an ISO date with its capitalized Spanish weekday,
// e.g. "Jueves, 26 de febrero de 2026".
func WeekdayDate(iso string) string {
	t, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%s, %s", spanishWeekdays[t.Weekday()], LongDate(iso))
}

// TodayISO returns today's date in the Santiago zone.
func TodayISO() string {
	return FormatISO(time.Now().In(santiago))
}

// AddMonths shifts an ISO date by n calendar months using Go's normalizing
// arithmetic (Jan 31 + 1 month lands in early March).
func AddMonths(iso string, n int) (string, error) {
	t, err := ParseDate(iso)
	if err != nil {
		return "", err
	}
	return FormatISO(t.AddDate(0, n, 0)), nil
}

// AddYears shifts an ISO date by n years.
func AddYears(iso string, n int) (string, error) {
	t, err := ParseDate(iso)
	if err != nil {
		return "", err
	}
	return FormatISO(t.AddDate(n, 0, 0)), nil
}
