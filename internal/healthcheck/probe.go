package healthcheck

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Probe performs one liveness exchange against a server address. A nil error
// means the server passed; any error counts as one failed probe.
type Probe interface {
	Check(ctx context.Context, address string) error
}

// TCPProbe considers a server alive if a TCP connection can be established.
type TCPProbe struct {
	dialer net.Dialer
}

func NewTCPProbe() *TCPProbe {
	return &TCPProbe{}
}

func (p *TCPProbe) Check(ctx context.Context, address string) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// MySQLProbe attempts a login handshake as the configured user with no
// password and closes immediately. The server is alive if it accepts the
// login; refused connections, timeouts and rejected handshakes all count as
// failures.
type MySQLProbe struct {
	user    string
	timeout time.Duration
}

func NewMySQLProbe(user string, timeout time.Duration) *MySQLProbe {
	return &MySQLProbe{
		user:    user,
		timeout: timeout,
	}
}

func (p *MySQLProbe) Check(ctx context.Context, address string) error {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = address
	cfg.User = p.user
	cfg.Timeout = p.timeout
	cfg.ReadTimeout = p.timeout
	cfg.WriteTimeout = p.timeout

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return fmt.Errorf("build mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	defer db.Close()

	return db.PingContext(ctx)
}
