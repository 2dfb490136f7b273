// Package client drives pkg/pgwire's pure state machine over a real TCP
// socket: it owns the transport the core library deliberately does not.
package client

import (
	"fmt"
	"net"

	"github.com/pgwire-go/pgwire/pkg/logger"
	"github.com/pgwire-go/pgwire/pkg/pgwire"
)

// Conn pairs a live socket with the pure state machine driving it.
type Conn struct {
	net.Conn
	State *pgwire.Conn
}

// Connect dials addr, runs the startup and authentication handshake using
// password, and returns once the connection reaches ReadyForQuery.
func Connect(config pgwire.ConnectionConfig, password string) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &Conn{Conn: netConn, State: pgwire.NewConn(config)}
	if err := c.handshake(password); err != nil {
		_ = netConn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) handshake(password string) error {
	startup, err := c.State.Startup()
	if err != nil {
		return err
	}
	if _, err := c.Conn.Write(pgwire.Encode(startup)); err != nil {
		return fmt.Errorf("send startup: %w", err)
	}

	for {
		tag, payload, err := pgwire.ReadFrame(c.Conn)
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		msg, err := pgwire.ParseBackend(tag, payload)
		if err != nil {
			return fmt.Errorf("parse backend message: %w", err)
		}

		if err := c.State.Receive(msg); err != nil {
			return err
		}

		switch m := msg.(type) {
		case pgwire.AuthenticationCleartextPassword:
			resp, err := c.State.RespondToPasswordAuth(pgwire.AuthCleartextPassword, [4]byte{})
			if err != nil {
				return err
			}
			if _, err := c.Conn.Write(pgwire.Encode(resp)); err != nil {
				return fmt.Errorf("send password: %w", err)
			}

		case pgwire.AuthenticationMD5Password:
			resp, err := c.State.RespondToPasswordAuth(pgwire.AuthMD5Password, m.Salt)
			if err != nil {
				return err
			}
			if _, err := c.Conn.Write(pgwire.Encode(resp)); err != nil {
				return fmt.Errorf("send md5 password: %w", err)
			}

		case pgwire.AuthenticationSASL:
			resp, err := c.State.BeginSASL(password)
			if err != nil {
				return err
			}
			if _, err := c.Conn.Write(pgwire.Encode(resp)); err != nil {
				return fmt.Errorf("send sasl initial response: %w", err)
			}

		case pgwire.AuthenticationSASLContinue:
			resp, err := c.State.ContinueSASL(m)
			if err != nil {
				return err
			}
			if _, err := c.Conn.Write(pgwire.Encode(resp)); err != nil {
				return fmt.Errorf("send sasl response: %w", err)
			}

		case pgwire.AuthenticationSASLFinal:
			if err := c.State.FinishSASL(m); err != nil {
				return err
			}

		case pgwire.ErrorResponse:
			sqlErr := pgwire.NewSqlError(m.Fields)
			logger.Error("backend rejected handshake", "code", sqlErr.Code, "message", sqlErr.Message)
			return sqlErr

		case pgwire.ReadyForQuery:
			return nil
		}
	}
}

// Query runs a simple-query-protocol statement and returns the rows
// decoded as raw column bytes, draining the Busy cycle back to
// ReadyForQuery.
func (c *Conn) Query(sql string) ([][][]byte, error) {
	if err := c.State.Send(pgwire.Query{SQL: sql}); err != nil {
		return nil, err
	}
	if _, err := c.Conn.Write(pgwire.Encode(pgwire.Query{SQL: sql})); err != nil {
		return nil, fmt.Errorf("send query: %w", err)
	}

	var rows [][][]byte
	var queryErr error
	for {
		tag, payload, err := pgwire.ReadFrame(c.Conn)
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		msg, err := pgwire.ParseBackend(tag, payload)
		if err != nil {
			return nil, fmt.Errorf("parse backend message: %w", err)
		}
		if err := c.State.Receive(msg); err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case pgwire.DataRow:
			rows = append(rows, m.Columns)
		case pgwire.ErrorResponse:
			queryErr = pgwire.NewSqlError(m.Fields)
		case pgwire.ReadyForQuery:
			return rows, queryErr
		}
	}
}

// Close terminates the connection gracefully, sending Terminate first.
func (c *Conn) Close() error {
	if err := c.State.Send(pgwire.Terminate{}); err == nil {
		_, _ = c.Conn.Write(pgwire.Encode(pgwire.Terminate{}))
	}
	return c.Conn.Close()
}
