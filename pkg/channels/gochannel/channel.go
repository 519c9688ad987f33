// Package gochannel wires an in-process watermill pub/sub for tests and single-binary setups.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel returns the same GoChannel as both publisher and subscriber. Messages are not
// persisted, so only subscribers attached before a publish receive it.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1024,
		},
		logger,
	)

	return pubSub, pubSub, nil
}
