package proxy

import (
	"errors"
	"io"
	"net"
	"time"
)

const relayBufferSize = 32 * 1024

// copyWithIdleTimeout shuttles bytes from src to dst, renewing src's read
// deadline before every read. When idle is zero no deadline is applied.
// EOF is a clean end of stream, not an error.
func copyWithIdleTimeout(dst, src net.Conn, idle time.Duration) (int64, error) {
	buf := make([]byte, relayBufferSize)
	var total int64

	for {
		if idle > 0 {
			_ = src.SetReadDeadline(time.Now().Add(idle))
		}

		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
	}
}

// halfCloseWrite propagates end-of-stream to the peer without tearing down
// the opposite direction.
func halfCloseWrite(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
}

func setKeepAlive(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}
}
