package client

import "net"

// StartOutboundWriter writes each queued message to conn with a single write
// and no framing. It stops when done is closed or a write fails; the failure
// is passed to onErr.
func StartOutboundWriter(conn net.Conn, out <-chan []byte, done <-chan struct{}, onErr func(error)) {
	go func() {
		for {
			select {
			case msg := <-out:
				if _, err := conn.Write(msg); err != nil {
					if onErr != nil {
						onErr(err)
					}
					return
				}
			case <-done:
				return
			}
		}
	}()
}
