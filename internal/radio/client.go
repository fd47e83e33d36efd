// Package radio talks to the software-defined-radio processing subsystem:
// an XML-RPC parameter endpoint exposed by the running flowgraph, plus the
// external process tasks for spectrum processing, raw capture, and
// calibration.
package radio

import (
	"fmt"

	"github.com/kolo/xmlrpc"
)

// Client is the parameter surface of the radio flowgraph. Every call maps to
// one XML-RPC method on the running pipeline.
type Client interface {
	SetFreq(hz float64) error
	SetSampRate(hz float64) error
	SetMotorAz(deg float64) error
	SetMotorEl(deg float64) error
	SetTSys(kelvin float64) error
	SetTCal(kelvin float64) error
	SetCalPwr(pwr float64) error
	SetCalValues(values []float64) error
	SetIsRunning(running bool) error
}

// RPCClient is the live XML-RPC implementation of Client.
type RPCClient struct {
	rpc *xmlrpc.Client
}

// Dial creates a client for the flowgraph RPC endpoint, conventionally
// http://localhost:5557/.
func Dial(url string) (*RPCClient, error) {
	c, err := xmlrpc.NewClient(url, nil)
	if err != nil {
		return nil, fmt.Errorf("radio rpc client: %w", err)
	}
	return &RPCClient{rpc: c}, nil
}

func (c *RPCClient) call(method string, arg any) error {
	if err := c.rpc.Call(method, arg, nil); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *RPCClient) SetFreq(hz float64) error      { return c.call("set_freq", hz) }
func (c *RPCClient) SetSampRate(hz float64) error  { return c.call("set_samp_rate", hz) }
func (c *RPCClient) SetMotorAz(deg float64) error  { return c.call("set_motor_az", deg) }
func (c *RPCClient) SetMotorEl(deg float64) error  { return c.call("set_motor_el", deg) }
func (c *RPCClient) SetTSys(kelvin float64) error  { return c.call("set_tsys", kelvin) }
func (c *RPCClient) SetTCal(kelvin float64) error  { return c.call("set_tcal", kelvin) }
func (c *RPCClient) SetCalPwr(pwr float64) error   { return c.call("set_cal_pwr", pwr) }
func (c *RPCClient) SetIsRunning(running bool) error {
	return c.call("set_is_running", running)
}

func (c *RPCClient) SetCalValues(values []float64) error {
	if err := c.rpc.Call("set_cal_values", []any{values}, nil); err != nil {
		return fmt.Errorf("set_cal_values: %w", err)
	}
	return nil
}
