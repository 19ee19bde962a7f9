package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is the root of every topic the auth service publishes.
const DefaultTopicPrefix = "graylogic/auth"

// Topics builds the auth service's topic names under a configurable prefix.
//
//	topics := mqtt.NewTopics("graylogic/auth")
//	topics.Event("login")  // "graylogic/auth/events/login"
//	topics.Status()        // "graylogic/auth/status"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix. Leading and trailing
// slashes are trimmed; an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Event returns the topic an auth event with the given action is published on.
//
// Example: graylogic/auth/events/assign_role
func (t Topics) Event(action string) string {
	return t.Prefix() + "/events/" + sanitiseLevel(action)
}

// AllEvents returns a wildcard matching every auth event topic.
func (t Topics) AllEvents() string {
	return t.Prefix() + "/events/#"
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string {
	return t.Prefix() + "/status"
}

// sanitiseLevel keeps a value to a single topic level. MQTT wildcards and
// separators are replaced so an action can never widen a subscription.
func sanitiseLevel(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
