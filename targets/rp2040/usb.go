//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"
)

// usbPort adapts machine.Serial to io.ReadWriter. Read blocks until at
// least one byte is available.
type usbPort struct {
	serial machine.Serialer
}

func (p *usbPort) Read(b []byte) (int, error) {
	for p.serial.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	n := 0
	for n < len(b) && p.serial.Buffered() > 0 {
		c, err := p.serial.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

func (p *usbPort) Write(b []byte) (int, error) {
	return p.serial.Write(b)
}
