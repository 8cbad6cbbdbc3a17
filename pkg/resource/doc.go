// Package resource defines the RTA resource kinds a client can subscribe to.
//
// Each kind is a tag in a dispatch table. The table entry holds three pure
// functions:
//   - the resource URI template, filled from Params
//   - the rule for the initial snapshot delivered with the subscribe ack
//   - the rule for each subsequent delta delivered in an event frame
//
// # Initial Snapshots
//
// Whether a missing (null) snapshot is an error depends on the kind:
//
//	DevicePresence      required, delivered as DevicePresenceSnapshot
//	TitlePresence       optional, delivered as TitlePresenceChanged
//	Statistic           optional, delivered as StatisticChanged
//	SocialRelationship  ignored
//	MultiplayerSession  required, delivered as MultiplayerConnectionEstablished
//	AchievementProgress ignored
//
// # Deltas
//
// A delta that does not have the expected shape is always an error. Deltas are
// never skipped silently.
package resource
