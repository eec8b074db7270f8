package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var errRedisEOF = errors.New("eof")

// redisTarget is a parsed REDIS_URL.
type redisTarget struct {
	host     string
	password string
	db       int
}

func parseRedisURL(raw string) (redisTarget, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return redisTarget{}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if u.Scheme == "unix" {
		return redisTarget{}, errors.New("unix sockets not supported by this worker")
	}
	if u.Host == "" {
		return redisTarget{}, fmt.Errorf("invalid REDIS_URL %q: missing host", raw)
	}
	t := redisTarget{host: u.Host}
	if u.User != nil {
		t.password, _ = u.User.Password()
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		if i, err := strconv.Atoi(db); err == nil {
			t.db = i
		}
	}
	return t, nil
}

type redisConn struct {
	conn net.Conn
	rw   *bufio.ReadWriter
}

func dialRedis(ctx context.Context, t redisTarget) (*redisConn, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", t.host)
	if err != nil {
		return nil, err
	}
	c := &redisConn{conn: conn, rw: bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))}

	if t.password != "" {
		if err := c.do("AUTH", t.password); err != nil {
			conn.Close()
			return nil, fmt.Errorf("redis auth failed: %w", err)
		}
	}
	if t.db != 0 {
		if err := c.do("SELECT", strconv.Itoa(t.db)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("redis select failed: %w", err)
		}
	}
	return c, nil
}

func (c *redisConn) Close() error {
	return c.conn.Close()
}

func (c *redisConn) do(cmd string, args ...string) error {
	if err := writeCommand(c.rw, cmd, args...); err != nil {
		return err
	}
	return readOK(c.rw)
}

// brpop blocks for up to timeout seconds. Both results are empty on timeout.
func (c *redisConn) brpop(queue string, timeout int) (string, string, error) {
	if err := writeCommand(c.rw, "BRPOP", queue, strconv.Itoa(timeout)); err != nil {
		return "", "", err
	}
	return readBRPOP(c.rw)
}

func writeCommand(w *bufio.ReadWriter, cmd string, args ...string) error {
	if _, err := fmt.Fprintf(w, "*%d\r\n", 1+len(args)); err != nil {
		return err
	}
	if err := writeBulk(w, cmd); err != nil {
		return err
	}
	for _, a := range args {
		if err := writeBulk(w, a); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeBulk(w *bufio.ReadWriter, s string) error {
	_, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(s), s)
	return err
}

func readLine(r *bufio.Reader) (string, error) {
	b, err := r.ReadBytes('\n')
	if err != nil {
		return "", errRedisEOF
	}
	if len(b) >= 2 && b[len(b)-2] == '\r' {
		b = b[:len(b)-2]
	}
	return string(b), nil
}

func readOK(rw *bufio.ReadWriter) error {
	line, err := readLine(rw.Reader)
	if err != nil {
		return err
	}
	if len(line) > 0 && line[0] == '+' {
		return nil
	}
	return fmt.Errorf("redis not OK: %s", line)
}

// readBulk reads the body of a bulk string whose "$<len>" header is line.
// A nil bulk string ("$-1") yields "", false.
func readBulk(r *bufio.Reader, line string) (string, bool, error) {
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return "", false, fmt.Errorf("bad bulk length: %s", line)
	}
	if n < 0 {
		return "", false, nil
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, errRedisEOF
	}
	return string(buf[:n]), true, nil
}

func readBRPOP(rw *bufio.ReadWriter) (key string, payload string, err error) {
	line, err := readLine(rw.Reader)
	if err != nil {
		return "", "", err
	}
	if len(line) == 0 {
		return "", "", errors.New("empty reply")
	}
	switch line[0] {
	case '*':
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return "", "", fmt.Errorf("bad array length: %s", line)
		}
		if n <= 0 {
			return "", "", nil
		}
		items := make([]string, 0, n)
		for i := 0; i < n; i++ {
			header, err := readLine(rw.Reader)
			if err != nil {
				return "", "", err
			}
			if len(header) == 0 || header[0] != '$' {
				return "", "", fmt.Errorf("unexpected array item: %s", header)
			}
			s, _, err := readBulk(rw.Reader, header)
			if err != nil {
				return "", "", err
			}
			items = append(items, s)
		}
		if len(items) < 2 {
			return "", "", fmt.Errorf("short BRPOP reply: %d items", len(items))
		}
		return items[0], items[1], nil
	case '$':
		s, ok, err := readBulk(rw.Reader, line)
		if err != nil || !ok {
			return "", "", err
		}
		return "", s, nil
	case '-':
		return "", "", fmt.Errorf("redis error: %s", line)
	default:
		return "", "", fmt.Errorf("unexpected reply: %s", line)
	}
}
