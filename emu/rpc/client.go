package rpc

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"
)

type Client struct {
	client *rpc.Client
}

func NewClient(port int) (*Client, error) {
	var (
		client *rpc.Client
		err    error
	)
	const maxretries = 5
	for i := range maxretries {
		if client, err = rpc.DialHTTP("tcp", "localhost:"+strconv.Itoa(port)); err == nil {
			break
		}
		modRPC.WarnZ("dial tcp failed").Error("err", err).Int("retry", i).End()
		time.Sleep(250 * time.Millisecond)
	}

	if client == nil {
		return nil, fmt.Errorf("dial failed max retries: %v", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	modRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Status() (Status, error) { return request[Status](c.client, "ctl.Status") }
func (c *Client) Disconnect() error       { return call(c.client, "ctl.Disconnect") }
func (c *Client) Quit() error             { return call(c.client, "ctl.Quit") }

func call(client *rpc.Client, funcname string) error {
	_, err := request[struct{}](client, funcname)
	return err
}

func request[T any](client *rpc.Client, funcname string) (T, error) {
	var reply T
	if err := client.Call(funcname, &struct{}{}, &reply); err != nil {
		return reply, fmt.Errorf("%s: %w", funcname, err)
	}
	return reply, nil
}
