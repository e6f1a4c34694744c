package mqtt

import "fmt"

// Topic prefixes for the Wirehome MQTT bridge.
//
// Outbound bus events are mirrored under wirehome/events/{type}; external
// systems inject messages under wirehome/inbound/{suffix}.
const (
	// TopicPrefix is the base for all Wirehome topics.
	TopicPrefix = "wirehome"

	// TopicPrefixEvents is the base for mirrored bus events.
	TopicPrefixEvents = "wirehome/events"

	// TopicPrefixInbound is the base for externally injected messages.
	TopicPrefixInbound = "wirehome/inbound"

	// TopicPrefixSystem is the base for hub status topics.
	TopicPrefixSystem = "wirehome/system"
)

// Topics provides builders for Wirehome MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
type Topics struct{}

// Event returns the topic a bus event type is mirrored to.
//
// Example: wirehome/events/component_registry.event.setting_changed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// AllInbound returns the wildcard subscription for externally injected
// messages.
func (Topics) AllInbound() string {
	return TopicPrefixInbound + "/#"
}

// SystemStatus returns the retained hub online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
