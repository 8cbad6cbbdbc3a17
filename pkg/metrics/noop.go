package metrics

import "time"

// NoopCollector discards every measurement.
type NoopCollector struct{}

func (NoopCollector) FrameSent(string)                             {}
func (NoopCollector) FrameReceived(string)                         {}
func (NoopCollector) EventDelivered(string)                        {}
func (NoopCollector) SubscriptionError(string, string)             {}
func (NoopCollector) ResubscribeCompleted(int, int, time.Duration) {}
func (NoopCollector) ActiveSubscriptions(int)                      {}
func (NoopCollector) ConnectionState(string)                       {}
func (NoopCollector) ReconnectAttempt()                            {}

var _ Collector = NoopCollector{}
