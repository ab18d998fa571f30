package realtime

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// DataChannel adapts a pion data channel to the message primitive the
// adapter expects. Envelopes travel as text messages.
type DataChannel struct {
	dc *webrtc.DataChannel
}

func NewDataChannel(dc *webrtc.DataChannel) *DataChannel {
	return &DataChannel{dc: dc}
}

func (c *DataChannel) Send(data []byte) error {
	return c.dc.SendText(string(data))
}

func (c *DataChannel) OnMessage(handler func(data []byte)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		handler(msg.Data)
	})
}

// Attach initializes the adapter once dc opens and tears it down when dc
// closes, following the lifetime of the call session.
func Attach(adapter *Adapter, dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		adapter.Initialize(NewDataChannel(dc))
	})
	dc.OnClose(func() {
		adapter.Teardown()
	})
}

// Open creates an ordered channel named label on pc and attaches it.
func Open(pc *webrtc.PeerConnection, label string, adapter *Adapter) (*webrtc.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("creating data channel %s: %w", label, err)
	}
	Attach(adapter, dc)
	return dc, nil
}

// Accept attaches every remotely created channel named label.
func Accept(pc *webrtc.PeerConnection, label string, adapter *Adapter) {
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != label {
			return
		}
		Attach(adapter, dc)
	})
}
