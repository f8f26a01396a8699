package mail

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	msgs []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestNotifier_Templates(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier(rec)
	ctx := context.Background()

	require.NoError(t, n.SendWelcome(ctx, "alice@x.com", "Alice", "Smith"))
	require.NoError(t, n.SendProfileUpdate(ctx, "alice@x.com", "Alice", ""))
	require.NoError(t, n.SendAdminPromotion(ctx, "alice@x.com", "", ""))

	require.Len(t, rec.msgs, 3)
	assert.Equal(t, welcomeSubject, rec.msgs[0].Subject)
	assert.Contains(t, rec.msgs[0].Body, "Dear Alice Smith,")
	assert.Equal(t, profileUpdateSubject, rec.msgs[1].Subject)
	assert.Contains(t, rec.msgs[1].Body, "Dear Alice,")
	assert.Equal(t, adminPromotionSubject, rec.msgs[2].Subject)
	assert.Contains(t, rec.msgs[2].Body, "Dear user,")
	for _, m := range rec.msgs {
		assert.Equal(t, "alice@x.com", m.To)
	}
}

func TestNotifier_WrapsSenderError(t *testing.T) {
	boom := errors.New("relay denied")
	n := NewNotifier(&recordingSender{err: boom})

	err := n.SendWelcome(context.Background(), "alice@x.com", "Alice", "Smith")
	assert.ErrorIs(t, err, boom)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "a@x.com", Subject: "hi"}))
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	raw := string(buildMessage("no-reply@x.com", Message{
		To:      "alice@x.com\r\nBcc: mallory@x.com",
		Subject: "hello",
		Body:    "line one\nline two",
	}))

	assert.NotContains(t, raw, "\r\nBcc:")
	assert.Contains(t, raw, "To: alice@x.comBcc: mallory@x.com\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two"))
}

// fakeSMTP accepts one session and records the DATA payload.
func fakeSMTP(t *testing.T) (addr string, data func() string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var (
		mu      sync.Mutex
		payload strings.Builder
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		w := bufio.NewWriter(conn)
		reply := func(s string) {
			w.WriteString(s + "\r\n")
			w.Flush()
		}

		reply("220 localhost ESMTP")
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if inData {
				if line == "." {
					inData = false
					reply("250 queued")
					continue
				}
				mu.Lock()
				payload.WriteString(line + "\n")
				mu.Unlock()
				continue
			}
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				reply("250-localhost")
				reply("250 8BITMIME")
			case strings.HasPrefix(line, "MAIL FROM"), strings.HasPrefix(line, "RCPT TO"):
				reply("250 ok")
			case line == "DATA":
				inData = true
				reply("354 go ahead")
			case line == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unsupported")
			}
		}
	}()

	return ln.Addr().String(), func() string {
		<-done
		mu.Lock()
		defer mu.Unlock()
		return payload.String()
	}
}

func TestSMTPSender_Send(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	s := NewSMTPSender(SMTPConfig{Host: host, Port: port, From: "no-reply@x.com"})
	err = s.Send(context.Background(), Message{To: "alice@x.com", Subject: "Hi", Body: "hello"})
	require.NoError(t, err)

	got := data()
	assert.Contains(t, got, "To: alice@x.com")
	assert.Contains(t, got, "Subject: Hi")
	assert.Contains(t, got, "hello")
}

func TestSMTPSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	host, port, _ := net.SplitHostPort(addr)
	s := NewSMTPSender(SMTPConfig{Host: host, Port: port, From: "no-reply@x.com"})
	assert.Error(t, s.Send(context.Background(), Message{To: "alice@x.com"}))
}
