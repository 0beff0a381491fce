//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// sendAlert emits an alert record toward the peer. It does not change
// the connection state; fatal records the terminal error.
func (c *Conn) sendAlert(desc AlertDescription) error {
	c.log.Debug().
		Stringer("level", desc.Level()).
		Stringer("desc", desc).
		Msg("send alert")

	return c.framer.WriteAlert(desc.Level(), desc)
}

// fatal records err as the connection's terminal error, emits the
// matching fatal alert toward the peer while the framer is still
// operable, and returns the error to surface to the owner. Later
// calls return the recorded error unchanged.
func (c *Conn) fatal(err error) error {
	if err == nil {
		return c.err
	}
	if c.err != nil {
		return c.err
	}

	desc := AlertInternalError
	var alert AlertDescription
	if errors.As(err, &alert) {
		desc = alert
	}

	result := err
	if !c.peerClosed {
		if werr := c.sendAlert(desc); werr != nil {
			result = multierror.Append(result, werr)
		}
	}
	c.err = result

	c.log.Debug().Err(result).Msg("connection failed")
	return result
}
