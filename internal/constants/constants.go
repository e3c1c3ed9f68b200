package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

// Redis key layout for visitor-scoped funnel state.
const (
	KeyPrefixAttribution = "utm:attribution:"
	KeyPrefixSession     = "utm:session:"
	KeyPrefixCRMEvents   = "crm:events:"
	KeyPrefixDataLayer   = "datalayer:"
)

const (
	DefaultEventsTopic = "funnel_events"
)

const (
	DefaultAttributionWindowDays = 30
	DefaultSessionTTL            = 30 * time.Minute
	DefaultDataLayerCap          = 200
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	ReferrerDirect = "direct"
)
