package frontend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/sanverite/smartproxy/internal/apperr"
	"github.com/sanverite/smartproxy/internal/config"
)

const authRealm = "Smart Proxy"

// httpConnectReply implements ReplyWriter for an HTTP CONNECT session.
type httpConnectReply struct {
	conn net.Conn
}

func (w *httpConnectReply) WriteSuccess(_ string, _ int) error {
	_, err := w.conn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
	return err
}

func (w *httpConnectReply) WriteFailure(err error) error {
	status := "502 Bad Gateway"
	switch {
	case err != nil && isTimeoutErr(err):
		status = "504 Gateway Timeout"
	}
	_, werr := fmt.Fprintf(w.conn, "HTTP/1.1 %s\r\nContent-Length: 0\r\n\r\n", status)
	return werr
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}

// dispatchHTTPConnect parses an HTTP/1.1 CONNECT request. prefix is
// the bytes Dispatch already consumed while sniffing the protocol;
// parsing resumes from there so no client byte is lost.
func dispatchHTTPConnect(ctx context.Context, conn net.Conn, prefix []byte, auth *config.Auth) (Result, ReplyWriter, error) {
	reader := bufio.NewReader(io.MultiReader(bytes.NewReader(prefix), conn))

	requestLine, err := reader.ReadString('\n')
	if err != nil {
		return Result{}, nil, fmt.Errorf("%w: read request line: %v", apperr.ErrProtocol, err)
	}
	method, target, err := parseRequestLine(requestLine)
	if err != nil {
		_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\n\r\n"))
		return Result{}, nil, fmt.Errorf("%w: %v", apperr.ErrProtocol, err)
	}
	if method != "CONNECT" {
		_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\n\r\n"))
		return Result{}, nil, fmt.Errorf("%w: http method %q", apperr.ErrUnsupportedCommand, method)
	}

	headers, err := parseHeaders(reader)
	if err != nil {
		_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\n\r\n"))
		return Result{}, nil, fmt.Errorf("%w: %v", apperr.ErrProtocol, err)
	}

	host, port, err := splitTargetDefaultPort(target, 443)
	if err != nil {
		_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\n\r\n"))
		return Result{}, nil, fmt.Errorf("%w: %v", apperr.ErrProtocol, err)
	}

	if auth != nil && auth.Enabled {
		if err := checkProxyAuth(headers, auth); err != nil {
			_, _ = fmt.Fprintf(conn, "HTTP/1.1 407 Proxy Authentication Required\r\nProxy-Authenticate: Basic realm=%q\r\nContent-Length: 0\r\n\r\n", authRealm)
			return Result{}, nil, err
		}
	}

	return Result{Protocol: ProtocolHTTPConnect, Host: host, Port: port}, &httpConnectReply{conn: conn}, nil
}

func parseRequestLine(line string) (method, target string, err error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("malformed request line %q", line)
	}
	return parts[0], parts[1], nil
}

func parseHeaders(reader *bufio.Reader) (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read header line: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return headers, nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
}

func splitTargetDefaultPort(target string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No explicit port.
		return target, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in target %q", target)
	}
	return host, port, nil
}

func checkProxyAuth(headers map[string]string, auth *config.Auth) error {
	hdr, ok := headers["proxy-authorization"]
	if !ok {
		return fmt.Errorf("%w: missing Proxy-Authorization", apperr.ErrAuth)
	}
	const prefix = "Basic "
	if !strings.HasPrefix(hdr, prefix) {
		return fmt.Errorf("%w: unsupported Proxy-Authorization scheme", apperr.ErrAuth)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hdr, prefix))
	if err != nil {
		return fmt.Errorf("%w: malformed Proxy-Authorization", apperr.ErrAuth)
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return fmt.Errorf("%w: malformed Proxy-Authorization", apperr.ErrAuth)
	}
	secret, ok := auth.Users[user]
	if !ok || secret != pass {
		return fmt.Errorf("%w: bad username/password", apperr.ErrAuth)
	}
	return nil
}
