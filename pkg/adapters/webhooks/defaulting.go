package webhooks

import (
	core "graylogoperator/pkg/core"
)

// DefaultGraylog applies server-side style defaults to the incoming Graylog
// spec. The webhook deals strictly with the spec portion of the resource
// because status is managed by the controller loop.
func DefaultGraylog(spec *core.GraylogSpec) {
	if spec == nil {
		return
	}
	core.DefaultSpec(spec)
}
