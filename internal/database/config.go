// internal/database/config.go
//
// Typed MySQL connection settings.
//
// Context
// -------
// `Config` is assembled by internal/env once all five DB_* variables are
// present and well-typed.  Transport security and character set are
// compiled-in defaults; they are not read from the environment.
//
// `DSN()` defers to go-sql-driver/mysql's own formatter so escaping of
// passwords and parameters matches what the driver parses.
package database

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// TransportSecurity selects the connection's TLS policy.
type TransportSecurity int

const (
	Plain TransportSecurity = iota
	UnverifiedTLS
	VerifiedTLS
)

// Compiled-in defaults.  UnverifiedTLS accepts self-signed server
// certificates.
const (
	DefaultTransport    = UnverifiedTLS
	DefaultCharacterSet = "utf8_general_ci"
)

func (t TransportSecurity) String() string {
	switch t {
	case Plain:
		return "plain"
	case UnverifiedTLS:
		return "unverified-tls"
	case VerifiedTLS:
		return "verified-tls"
	default:
		return fmt.Sprintf("TransportSecurity(%d)", int(t))
	}
}

// tlsParam maps the policy onto the driver's `tls=` DSN value.
func (t TransportSecurity) tlsParam() string {
	switch t {
	case UnverifiedTLS:
		return "skip-verify"
	case VerifiedTLS:
		return "true"
	default:
		return "false"
	}
}

// Config mirrors the DB_* variables plus the compiled-in defaults.
type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	Name         string
	Transport    TransportSecurity
	CharacterSet string
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DSN renders the driver connection string.  parseTime is always on so
// DATETIME columns scan into time.Time.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Addr()
	mc.DBName = c.Name
	mc.Collation = c.CharacterSet
	mc.TLSConfig = c.Transport.tlsParam()
	mc.ParseTime = true
	return mc.FormatDSN()
}

// String omits the password so Config is safe to log.
func (c Config) String() string {
	return fmt.Sprintf("%s@%s/%s (transport=%s, charset=%s)",
		c.Username, c.Addr(), c.Name, c.Transport, c.CharacterSet)
}
