package engine

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// defaultScheduleWindow is how far back a recurrence occurrence may lie and
// still count as due when no explicit window is given.
const defaultScheduleWindow = time.Minute

// MatchTrigger reports whether rule's trigger condition holds for event at
// now. It never mutates state; time rules read rule.LastFiredAt as external
// state supplied by the rule source. window bounds how far back a schedule
// occurrence may lie and still count as due; callers align it with the
// sweep interval.
func MatchTrigger(rule models.AutomationRule, event models.Event, now time.Time, window time.Duration) bool {
	switch rule.TriggerKind {
	case models.TriggerComment:
		return matchesPlatform(rule.TriggerPlatforms, event.Platform) &&
			containsAnyKeyword(event.Text, rule.TriggerKeywords)
	case models.TriggerKeyword:
		return containsAnyKeyword(event.Text, rule.TriggerKeywords)
	case models.TriggerTime:
		// Time rules fire only for the sweeper's synthetic events, whose
		// ids are derived from the schedule occurrence. Matching them
		// against ordinary inbound events would dispatch once per comment
		// that arrives while an occurrence is due.
		if event.Platform != models.PlatformScheduled {
			return false
		}
		lastFired := time.Time{}
		if rule.LastFiredAt != nil {
			lastFired = *rule.LastFiredAt
		}
		_, due := ScheduleDue(rule.Schedule, now, lastFired, window)
		return due
	case models.TriggerManual:
		// Invoking the engine for a manual rule is the trigger itself.
		return true
	default:
		return false
	}
}

// containsAnyKeyword reports whether any keyword is a case-insensitive
// substring of text. An empty keyword set never matches: a comment rule
// without keywords is inert, not match-all.
func containsAnyKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	text = strings.ToLower(text)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

// matchesPlatform reports whether platform is allowed. An empty allow-list
// means all platforms.
func matchesPlatform(allowed []string, platform string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, p := range allowed {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}

// ScheduleDue reports whether schedule has an occurrence that is due at now
// given that the rule last fired at lastFired (zero when it never fired).
// window is how far back of now a never-fired recurrence anchors; passing the
// sweep interval guarantees no occurrence falls between sweeps. A
// non-positive window falls back to defaultScheduleWindow. The returned time
// identifies the due occurrence, which callers use to build deterministic
// external event ids.
func ScheduleDue(schedule *models.Schedule, now, lastFired time.Time, window time.Duration) (time.Time, bool) {
	if schedule == nil {
		return time.Time{}, false
	}

	if schedule.At != nil {
		at := *schedule.At
		if now.Before(at) {
			return time.Time{}, false
		}
		if !lastFired.IsZero() && !lastFired.Before(at) {
			return time.Time{}, false
		}
		return at, true
	}

	if schedule.Cron == "" {
		return time.Time{}, false
	}

	expr := schedule.Cron
	if schedule.Timezone != "" && !strings.HasPrefix(expr, "TZ=") && !strings.HasPrefix(expr, "CRON_TZ=") {
		expr = "CRON_TZ=" + schedule.Timezone + " " + expr
	}

	parsed, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, false
	}

	if window <= 0 {
		window = defaultScheduleWindow
	}

	anchor := lastFired
	if anchor.IsZero() {
		// A freshly created rule must not back-fire historic occurrences,
		// but the anchor must reach back one full sweep so occurrences due
		// since the previous sweep are not skipped.
		anchor = now.Add(-window)
	}

	next := parsed.Next(anchor)
	if next.IsZero() || next.After(now) {
		return time.Time{}, false
	}

	return next, true
}
