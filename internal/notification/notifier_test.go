package notification

import (
	"reflect"
	"strings"
	"testing"

	"NetSentinel/internal/config"
)

func TestSplitRecipients(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"soc@example.com", []string{"soc@example.com"}},
		{"a@example.com, b@example.com", []string{"a@example.com", "b@example.com"}},
		{" a@example.com ,, b@example.com ,", []string{"a@example.com", "b@example.com"}},
		{"", nil},
		{" , ", nil},
	}
	for _, c := range cases {
		got := splitRecipients(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitRecipients(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("alerts@example.com",
		[]string{"a@example.com", "b@example.com"},
		"NetSentinel Alert: SYN_SCAN from 192.168.1.50 (HIGH)",
		"<h1>alert</h1>"))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	if !found {
		t.Fatal("Message has no header/body separator")
	}
	if body != "<h1>alert</h1>" {
		t.Errorf("Body mismatch: %q", body)
	}
	for _, want := range []string{
		"From: alerts@example.com",
		"To: a@example.com, b@example.com",
		"Subject: NetSentinel Alert: SYN_SCAN from 192.168.1.50 (HIGH)",
		"Content-Type: text/html; charset=UTF-8",
	} {
		if !strings.Contains(headers, want) {
			t.Errorf("Missing header %q in:\n%s", want, headers)
		}
	}
}

func TestSend_NoRecipients(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "alerts@example.com",
		To:   "",
	})
	if err := n.Send("subject", "body"); err == nil {
		t.Error("Send with no recipients should fail before dialing")
	}
}
