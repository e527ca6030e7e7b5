package tracking

import (
	"slices"
	"time"
)

const RuleContextEventType uint16 = 7

type BaseEvent struct {
	SessionId string `json:"session_id"`
	Country   string `json:"country,omitempty"`
	Context   string `json:"context,omitempty"`
	Event     uint16 `json:"event"`
}

type RuleContextEvent struct {
	*BaseEvent
	Previous []string `json:"previous"`
	Current  []string `json:"current"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Time     int64    `json:"ts"`
}

func NewRuleContextEvent(sessionId, country string, previous, current []string) RuleContextEvent {
	if previous == nil {
		previous = []string{}
	}
	if current == nil {
		current = []string{}
	}
	return RuleContextEvent{
		BaseEvent: &BaseEvent{Event: RuleContextEventType, SessionId: sessionId, Country: country, Context: "b2c"},
		Previous:  slices.Clone(previous),
		Current:   slices.Clone(current),
		Added:     difference(current, previous),
		Removed:   difference(previous, current),
		Time:      time.Now().UnixMilli(),
	}
}

// difference returns the entries of a missing from b, in a's order.
func difference(a, b []string) []string {
	var result []string
	for _, v := range a {
		if !slices.Contains(b, v) {
			result = append(result, v)
		}
	}
	return result
}
