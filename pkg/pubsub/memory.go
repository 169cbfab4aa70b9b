// Package pubsub builds the in-process message bus used for notifications.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewMemory returns a gochannel pub/sub that keeps messages published before
// the first subscriber attaches.
func NewMemory(buffer int) *gochannel.GoChannel {
	if buffer <= 0 {
		buffer = 100
	}
	return gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     true,
			BlockPublishUntilSubscriberAck: false,
			OutputChannelBuffer:            int64(buffer),
		},
		watermill.NopLogger{},
	)
}
