package mcpclient

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// detachedTransport keeps the transport's stream alive after the dial
// context ends. The dial context still bounds the connect itself; once
// connected, the stream is torn down only by closing the connection.
type detachedTransport struct {
	mcp.Transport
}

func (t detachedTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	conn, err := t.Transport.Connect(streamCtx)
	if !stop() {
		// ctx ended while connecting; cancel already ran.
		if err == nil {
			_ = conn.Close()
			err = context.Cause(ctx)
		}
		return nil, err
	}
	if err != nil {
		cancel()
		return nil, err
	}

	return &detachedConn{Connection: conn, cancel: cancel}, nil
}

type detachedConn struct {
	mcp.Connection
	cancel context.CancelFunc
}

func (c *detachedConn) Close() error {
	err := c.Connection.Close()
	c.cancel()
	return err
}
