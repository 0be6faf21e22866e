// Package actions finds follow-up tasks in meeting transcripts and notes.
//
// Recognised forms, case-insensitive, in French or English:
//
//	Action: envoyer le devis @Alice demain
//	TODO: relire le contrat
//	Décision: on passe en v2 le 12/03
//	=> Bob doit livrer le module vendredi
//
// Lines that carry none of the markers but use a delivery verb (doit, livrer,
// envoyer...) are kept whole.
package actions

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emmett/minutes/internal/meeting"
)

var (
	markerRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:action|à faire|todo|d[ée]cision|d[ée]cider?)\s*:\s*(.+)`)
	arrowRe  = regexp.MustCompile(`=>\s*(.+)`)
	verbRe   = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:doit|à faire|faire|livrer|envoyer|finaliser|préparer)(?:$|[^\p{L}])`)

	mentionRe = regexp.MustCompile(`@(\p{Lu}[\p{L}\-']+)`)
	subjectRe = regexp.MustCompile(`(\p{Lu}[\p{Ll}\-']+)\s+(?:doit|va)(?:$|[^\p{L}])`)

	isoRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dmyRe   = regexp.MustCompile(`\b([0-3]?\d)[/-]([01]?\d)(?:[/-](\d{2,4}))?\b`)
	splitRe = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
)

var weekdays = map[string]time.Weekday{
	"lundi": time.Monday, "mardi": time.Tuesday, "mercredi": time.Wednesday,
	"jeudi": time.Thursday, "vendredi": time.Friday, "samedi": time.Saturday,
	"dimanche": time.Sunday,
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// Extract returns the deduplicated actions found in text. Relative due dates
// resolve against ref. knownActors are matched when no @mention or
// "Name doit" subject is present.
func Extract(text string, ref time.Time, knownActors ...string) []meeting.Todo {
	var out []meeting.Todo
	seen := make(map[string]bool)

	for _, sentence := range splitRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		action := findAction(sentence)
		if action == "" {
			continue
		}

		t := meeting.Todo{
			Action:  action,
			Actor:   findActor(sentence, action, knownActors),
			DueDate: DueDate(sentence, ref),
			Status:  meeting.StatusOpen,
		}

		key := strings.ToLower(t.Action) + "\x00" + strings.ToLower(t.Actor) + "\x00"
		if t.DueDate != nil {
			key += t.DueDate.Format(time.DateOnly)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func findAction(s string) string {
	for _, re := range []*regexp.Regexp{markerRe, arrowRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.TrimRight(strings.TrimSpace(m[1]), ".")
		}
	}
	if verbRe.MatchString(s) {
		return strings.TrimRight(s, ".")
	}
	return ""
}

func findActor(sentence, action string, known []string) string {
	for _, re := range []*regexp.Regexp{mentionRe, subjectRe} {
		if m := re.FindStringSubmatch(sentence); m != nil {
			return m[1]
		}
	}
	lower := strings.ToLower(action)
	for _, a := range known {
		la := strings.ToLower(a)
		if strings.HasPrefix(lower, la+" ") || strings.Contains(lower, " "+la+" ") {
			return a
		}
	}
	return ""
}

// DueDate finds a due date hint in s. It returns nil when there is none.
func DueDate(s string, ref time.Time) *time.Time {
	lower := strings.ToLower(s)
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	switch {
	case strings.Contains(lower, "après-demain"), strings.Contains(lower, "apres-demain"):
		return ptr(today.AddDate(0, 0, 2))
	case strings.Contains(lower, "aujourd'hui"), strings.Contains(lower, "today"):
		return ptr(today)
	case strings.Contains(lower, "demain"), strings.Contains(lower, "tomorrow"):
		return ptr(today.AddDate(0, 0, 1))
	case strings.Contains(lower, "semaine prochaine"), strings.Contains(lower, "next week"):
		return ptr(today.AddDate(0, 0, 7))
	case strings.Contains(lower, "fin de mois"), strings.Contains(lower, "end of month"):
		return ptr(time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location()))
	case strings.Contains(lower, "fin de semaine"), strings.Contains(lower, "end of week"):
		return ptr(nextWeekday(today, time.Friday))
	}

	if m := isoRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(y, mo, d, today.Location()); ok {
			return &t
		}
	}
	if m := dmyRe.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y := today.Year()
		explicitYear := m[3] != ""
		if explicitYear {
			y, _ = strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
		}
		if t, ok := makeDate(y, mo, d, today.Location()); ok {
			if !explicitYear && t.Before(today) {
				t = t.AddDate(1, 0, 0)
			}
			return &t
		}
	}

	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		if wd, ok := weekdays[word]; ok {
			return ptr(nextWeekday(today, wd))
		}
	}
	return nil
}

// nextWeekday returns the first wd strictly after day.
func nextWeekday(day time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(day.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return day.AddDate(0, 0, delta)
}

func makeDate(y, m, d int, loc *time.Location) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func ptr(t time.Time) *time.Time { return &t }
