package rotor

import (
	"fmt"
	"io"

	serial "github.com/tarm/goserial"
)

// Rot2Prog speaks the SPID Elektronik Rot2Prog packet protocol over a serial
// line. Frames are 13 bytes out, 12 bytes back. Outgoing angles travel as
// ASCII digit bytes scaled by the controller's pulses-per-degree divisor;
// the reply carries raw digit values in tenths of a degree.
type Rot2Prog struct {
	port io.ReadWriteCloser
	// pulses per degree reported by the controller; 2 means 0.5° resolution.
	divisor float64
}

const (
	rot2progStart  = 0x57
	rot2progEnd    = 0x20
	rot2progSetCmd = 0x2F
	rot2progGetCmd = 0x1F
)

// OpenRot2Prog opens the controller on the given serial port. The Rot2Prog
// speaks 600 baud 8N1.
func OpenRot2Prog(portName string) (*Rot2Prog, error) {
	port, err := serial.OpenPort(&serial.Config{Name: portName, Baud: 600})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	r := &Rot2Prog{port: port, divisor: 2}
	// Issue one status read so the divisor reflects the controller's actual
	// configuration rather than the assumed default.
	if _, err := r.Read(); err != nil {
		port.Close()
		return nil, fmt.Errorf("rot2prog handshake: %w", err)
	}
	return r, nil
}

// Goto commands the controller to slew to p. The call returns as soon as the
// frame is written; the controller moves on its own.
func (r *Rot2Prog) Goto(p Pose) error {
	frame, err := encodeSetFrame(p, r.divisor)
	if err != nil {
		return err
	}
	if _, err := r.port.Write(frame); err != nil {
		return fmt.Errorf("rot2prog write: %w", err)
	}
	return nil
}

// Read polls the controller for the measured pose and refreshes the divisor
// from the reply.
func (r *Rot2Prog) Read() (Pose, error) {
	frame := statusFrame()
	if _, err := r.port.Write(frame); err != nil {
		return Pose{}, fmt.Errorf("rot2prog write: %w", err)
	}
	reply := make([]byte, 12)
	if _, err := io.ReadFull(r.port, reply); err != nil {
		return Pose{}, fmt.Errorf("rot2prog read: %w", err)
	}
	p, divisor, err := decodeStatusFrame(reply)
	if err != nil {
		return Pose{}, err
	}
	if divisor > 0 {
		r.divisor = divisor
	}
	return p, nil
}

// Resolution is the controller's single-step size in degrees.
func (r *Rot2Prog) Resolution() float64 {
	return 1 / r.divisor
}

// Close releases the serial port.
func (r *Rot2Prog) Close() error {
	return r.port.Close()
}

// encodeSetFrame builds the 13-byte SET frame. Angles are biased by +360 so
// negative elevations encode cleanly, then scaled by the divisor and emitted
// as four ASCII digits per axis.
func encodeSetFrame(p Pose, divisor float64) ([]byte, error) {
	az := int((p.Az + 360) * divisor)
	el := int((p.El + 360) * divisor)
	if az < 0 || az > 9999 || el < 0 || el > 9999 {
		return nil, fmt.Errorf("pose (%.2f, %.2f) not encodable", p.Az, p.El)
	}
	frame := make([]byte, 13)
	frame[0] = rot2progStart
	copy(frame[1:5], digits(az))
	frame[5] = byte(divisor)
	copy(frame[6:10], digits(el))
	frame[10] = byte(divisor)
	frame[11] = rot2progSetCmd
	frame[12] = rot2progEnd
	return frame, nil
}

// statusFrame builds the 13-byte STATUS request frame. Angle fields are
// ignored by the controller and sent as zeros.
func statusFrame() []byte {
	frame := make([]byte, 13)
	frame[0] = rot2progStart
	frame[11] = rot2progGetCmd
	frame[12] = rot2progEnd
	return frame
}

// decodeStatusFrame parses a 12-byte status reply into a pose and the
// controller's pulses-per-degree divisor.
func decodeStatusFrame(reply []byte) (Pose, float64, error) {
	if len(reply) != 12 || reply[0] != rot2progStart {
		return Pose{}, 0, fmt.Errorf("malformed rot2prog reply % x", reply)
	}
	az := float64(reply[1])*100 + float64(reply[2])*10 + float64(reply[3]) + float64(reply[4])/10 - 360
	el := float64(reply[6])*100 + float64(reply[7])*10 + float64(reply[8]) + float64(reply[9])/10 - 360
	divisor := float64(reply[5])
	return Pose{Az: az, El: el}, divisor, nil
}

// digits renders v as four ASCII digit values (most significant first).
func digits(v int) []byte {
	return []byte{
		byte('0' + (v/1000)%10),
		byte('0' + (v/100)%10),
		byte('0' + (v/10)%10),
		byte('0' + v%10),
	}
}
