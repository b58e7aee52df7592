package eventbus

import (
	"fmt"
	"strings"

	"github.com/budgee/family/pkg/domain/events"
)

// topicNameFor returns "<prefix>.<domain>.<event>" in lower case.
func topicNameFor(prefix string, eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", defaultPrefix(prefix), strings.ToLower(eventType.String()))
}

func dlqTopicNameFor(prefix string, eventType events.EventType) string {
	return fmt.Sprintf("%s.dlq.%s", defaultPrefix(prefix), strings.ToLower(eventType.String()))
}

func defaultPrefix(prefix string) string {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		return "budgee"
	}
	return prefix
}

func parseBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		for _, p := range strings.Split(b, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
