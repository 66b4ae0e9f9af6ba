package joke

import (
	"context"
	"net"
)

// Client is the peer side of a session.
type Client struct {
	conn net.Conn
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) ReadMessage() (string, error) {
	return ReadMessage(c.conn)
}

func (c *Client) Send(text string) error {
	return WriteMessage(c.conn, text)
}

// Exchange sends text and waits for the server's answer.
func (c *Client) Exchange(text string) (string, error) {
	if err := c.Send(text); err != nil {
		return "", err
	}
	return c.ReadMessage()
}

func (c *Client) Close() error {
	return c.conn.Close()
}
