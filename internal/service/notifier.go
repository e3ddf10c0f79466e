package service

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"
)

// Notifier 在文章生成成功或失败后发送通知。
type Notifier interface {
	BlogGenerated(title, url string) error
	BlogFailed(title string) error
}

// MailDialer 是 go-mail Dialer 的最小接口，测试中可替换。
type MailDialer interface {
	DialAndSend(m ...*mail.Message) error
}

// MailNotifier 通过 SMTP 发送通知邮件。
type MailNotifier struct {
	mu     sync.Mutex
	dialer MailDialer
	from   string
	to     string
}

// NewMailNotifier 创建 SMTP 通知器，host 为空时返回 NoopNotifier。
func NewMailNotifier(host string, port int, username, password, from, to string) Notifier {
	if strings.TrimSpace(host) == "" || strings.TrimSpace(to) == "" {
		return NoopNotifier{}
	}
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 10 * time.Second
	if strings.TrimSpace(from) == "" {
		from = username
	}
	return &MailNotifier{dialer: dialer, from: from, to: to}
}

// NewMailNotifierWithDialer 使用自定义 dialer，主要用于测试。
func NewMailNotifierWithDialer(dialer MailDialer, from, to string) *MailNotifier {
	return &MailNotifier{dialer: dialer, from: from, to: to}
}

func (n *MailNotifier) BlogGenerated(title, url string) error {
	body := fmt.Sprintf("Your blog with the title %q has been generated successfully. You can view it at: %s", title, url)
	return n.send("Blog Generated", body)
}

func (n *MailNotifier) BlogFailed(title string) error {
	return n.send("Blog Failed", fmt.Sprintf("Your blog with the title %q Failed", title))
}

func (n *MailNotifier) send(subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	msg := mail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", n.to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(msg); err != nil {
		log.Printf("[MAIL] send %q failed: %v", subject, err)
		return err
	}
	return nil
}

// NoopNotifier 在未配置邮件服务时使用。
type NoopNotifier struct{}

func (NoopNotifier) BlogGenerated(string, string) error { return nil }
func (NoopNotifier) BlogFailed(string) error            { return nil }
