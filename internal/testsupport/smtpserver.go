package testsupport

import (
	"encoding/base64"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
)

// SMTPDelivery is one message accepted by SMTPServer.
type SMTPDelivery struct {
	Mechanism  string
	Username   string
	Password   string
	From       string
	Recipients []string
	Data       string
}

// SMTPServer is a minimal ESMTP listener for delivery tests. It accepts any
// credentials and records what each session sent.
type SMTPServer struct {
	listener   net.Listener
	mechanisms []string

	mu         sync.Mutex
	deliveries []SMTPDelivery
	wg         sync.WaitGroup
}

// StartSMTPServer listens on addr (host:port, port may be 0) and advertises
// the given AUTH mechanisms. The test is skipped when addr cannot be bound.
func StartSMTPServer(t testing.TB, addr string, mechanisms ...string) *SMTPServer {
	t.Helper()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("listen on %s: %v", addr, err)
	}
	srv := &SMTPServer{listener: ln, mechanisms: mechanisms}
	srv.wg.Add(1)
	go srv.accept()
	t.Cleanup(func() {
		_ = ln.Close()
		srv.wg.Wait()
	})
	return srv
}

// Host returns the listening IP.
func (s *SMTPServer) Host() string {
	return s.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *SMTPServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Deliveries returns a copy of the accepted messages.
func (s *SMTPServer) Deliveries() []SMTPDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SMTPDelivery(nil), s.deliveries...)
}

func (s *SMTPServer) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.serve(textproto.NewConn(conn))
		}()
	}
}

func (s *SMTPServer) serve(conn *textproto.Conn) {
	reply := func(format string, args ...any) bool {
		return conn.PrintfLine(format, args...) == nil
	}
	if !reply("220 telex.test ESMTP") {
		return
	}

	var current SMTPDelivery
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			var b strings.Builder
			b.WriteString("250-telex.test\r\n")
			if len(s.mechanisms) > 0 {
				b.WriteString("250-AUTH " + strings.Join(s.mechanisms, " ") + "\r\n")
			}
			b.WriteString("250 8BITMIME")
			if !reply("%s", b.String()) {
				return
			}
		case "AUTH":
			if !s.authenticate(conn, arg, &current) {
				return
			}
		case "MAIL":
			current.From = addressArg(arg)
			reply("250 ok")
		case "RCPT":
			current.Recipients = append(current.Recipients, addressArg(arg))
			reply("250 ok")
		case "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			lines, err := conn.ReadDotLines()
			if err != nil {
				return
			}
			current.Data = strings.Join(lines, "\n")
			s.mu.Lock()
			s.deliveries = append(s.deliveries, current)
			s.mu.Unlock()
			current = SMTPDelivery{Mechanism: current.Mechanism, Username: current.Username, Password: current.Password}
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func (s *SMTPServer) authenticate(conn *textproto.Conn, arg string, current *SMTPDelivery) bool {
	mech, initial, _ := strings.Cut(arg, " ")
	mech = strings.ToUpper(mech)
	current.Mechanism = mech
	switch mech {
	case "PLAIN":
		if initial == "" {
			if conn.PrintfLine("334 ") != nil {
				return false
			}
			line, err := conn.ReadLine()
			if err != nil {
				return false
			}
			initial = line
		}
		raw, _ := base64.StdEncoding.DecodeString(initial)
		parts := strings.Split(string(raw), "\x00")
		if len(parts) == 3 {
			current.Username, current.Password = parts[1], parts[2]
		}
	case "LOGIN":
		for i, prompt := range []string{"VXNlcm5hbWU6", "UGFzc3dvcmQ6"} {
			if conn.PrintfLine("334 %s", prompt) != nil {
				return false
			}
			line, err := conn.ReadLine()
			if err != nil {
				return false
			}
			raw, _ := base64.StdEncoding.DecodeString(line)
			if i == 0 {
				current.Username = string(raw)
			} else {
				current.Password = string(raw)
			}
		}
	default:
		return conn.PrintfLine("504 unrecognized mechanism") == nil
	}
	return conn.PrintfLine("235 authenticated") == nil
}

func addressArg(arg string) string {
	_, addr, _ := strings.Cut(arg, ":")
	addr = strings.TrimSpace(addr)
	if fields := strings.Fields(addr); len(fields) > 0 {
		addr = fields[0]
	}
	return strings.Trim(addr, "<>")
}
