package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcinsights/bcinsights/internal/config"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// fakeValkey speaks enough RESP2 to serve PING, AUTH, SELECT, GET, SET and DEL.
type fakeValkey struct {
	password string

	mu       sync.Mutex
	data     map[string]string
	ttls     map[string]string
	commands []string
	conns    int
}

func startFakeValkey(t *testing.T, password string) (*fakeValkey, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	f := &fakeValkey{password: password, data: map[string]string{}, ttls: map[string]string{}}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.conns++
			f.mu.Unlock()
			go f.serve(conn)
		}
	}()
	return f, ln.Addr().String()
}

func (f *fakeValkey) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	authed := f.password == ""
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		cmd := strings.ToUpper(args[0])
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		var reply string
		switch {
		case cmd == "AUTH":
			if args[len(args)-1] == f.password {
				authed = true
				reply = "+OK\r\n"
			} else {
				reply = "-WRONGPASS invalid password\r\n"
			}
		case !authed:
			reply = "-NOAUTH Authentication required\r\n"
		case cmd == "PING":
			reply = "+PONG\r\n"
		case cmd == "SELECT":
			reply = "+OK\r\n"
		case cmd == "GET":
			if v, ok := f.data[args[1]]; ok {
				reply = fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
			} else {
				reply = "$-1\r\n"
			}
		case cmd == "SET":
			f.data[args[1]] = args[2]
			if len(args) == 5 && args[3] == "PX" {
				f.ttls[args[1]] = args[4]
			}
			reply = "+OK\r\n"
		case cmd == "DEL":
			_, ok := f.data[args[1]]
			delete(f.data, args[1])
			if ok {
				reply = ":1\r\n"
			} else {
				reply = ":0\r\n"
			}
		default:
			reply = "-ERR unknown command\r\n"
		}
		f.mu.Unlock()
		if _, err := io.WriteString(conn, reply); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "*")))
	if err != nil {
		return nil, err
	}
	args := make([]string, n)
	for i := range args {
		sizeLine, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(sizeLine, "$")))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args[i] = string(buf[:size])
	}
	return args, nil
}

func TestValkeyProviderRoundTrip(t *testing.T) {
	server, addr := startFakeValkey(t, "")
	p, err := NewValkeyProvider(ValkeyConfig{Addr: addr})
	require.NoError(t, err)
	defer p.Close()
	ctx := context.Background()

	_, err = p.Get(ctx, "view:Tumor:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	payload := []byte("{\"view\":\"Tumor\"}\r\nwith crlf")
	require.NoError(t, p.Set(ctx, "view:Tumor:abc", payload, 1500*time.Millisecond))

	got, err := p.Get(ctx, "view:Tumor:abc")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	server.mu.Lock()
	assert.Equal(t, "1500", server.ttls[KeyPrefix+"view:Tumor:abc"])
	_, stored := server.data[KeyPrefix+"view:Tumor:abc"]
	conns := server.conns
	server.mu.Unlock()
	assert.True(t, stored)
	assert.Equal(t, 1, conns, "connections are reused")

	require.NoError(t, p.Del(ctx, "view:Tumor:abc"))
	_, err = p.Get(ctx, "view:Tumor:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestValkeyProviderAuthenticates(t *testing.T) {
	server, addr := startFakeValkey(t, "s3cret")

	_, err := NewValkeyProvider(ValkeyConfig{Addr: addr, Password: "wrong"})
	require.Error(t, err)

	p, err := NewValkeyProvider(ValkeyConfig{Addr: addr, Username: "dash", Password: "s3cret", DB: 2})
	require.NoError(t, err)
	defer p.Close()

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Contains(t, server.commands, "SELECT")
}

func TestValkeyProviderRequiresAddr(t *testing.T) {
	_, err := NewValkeyProvider(ValkeyConfig{})
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	logger := utils.Discard()

	p, err := New(config.CacheConfig{Enabled: false, Backend: "valkey"}, logger)
	require.NoError(t, err)
	assert.IsType(t, NoopProvider{}, p)

	p, err = New(config.CacheConfig{Enabled: true, Backend: "memory"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryProvider{}, p)

	_, addr := startFakeValkey(t, "")
	p, err = New(config.CacheConfig{Enabled: true, Backend: "valkey", Addr: addr}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ValkeyProvider{}, p)
	require.NoError(t, p.Close())

	_, err = New(config.CacheConfig{Enabled: true, Backend: "memcached"}, logger)
	assert.Error(t, err)
}
