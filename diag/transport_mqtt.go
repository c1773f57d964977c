//go:build !(rp2040 || rp2350)

package diag

import (
	"net/url"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"picow-go/errcode"
)

// Publisher is the part of paho.Client the MQTT transport uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTTTransport publishes each entry as a text line to
// <prefix>/<level>. Host builds only.
//
// Send waits up to the timeout for the broker to accept the packet, so it
// must run behind an AsyncTransport, never on the scheduler goroutine.
type MQTTTransport struct {
	pub     Publisher
	prefix  string
	timeout time.Duration
	buf     []byte

	client paho.Client // set by DialMQTT
}

// DefaultMQTTPrefix is used when the broker URL carries no path.
const DefaultMQTTPrefix = "picow/diag"

func NewMQTTTransport(pub Publisher, prefix string, timeout time.Duration) *MQTTTransport {
	if prefix == "" {
		prefix = DefaultMQTTPrefix
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &MQTTTransport{pub: pub, prefix: strings.TrimSuffix(prefix, "/"), timeout: timeout}
}

// DialMQTT connects to brokerURL (mqtt://[user:pass@]host:port/prefix
// ?client-id=name) and returns a transport publishing under the URL path.
func DialMQTT(brokerURL string, timeout time.Duration) (*MQTTTransport, error) {
	opts, prefix, err := clientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "diag.mqtt", Msg: brokerURL, Err: err}
	}
	c := paho.NewClient(opts)
	t := NewMQTTTransport(c, prefix, timeout)
	tok := c.Connect()
	if !tok.WaitTimeout(t.timeout) {
		return nil, &errcode.E{C: errcode.Timeout, Op: "diag.mqtt", Msg: "connect"}
	}
	if err := tok.Error(); err != nil {
		return nil, &errcode.E{C: errcode.TransportFailed, Op: "diag.mqtt", Msg: "connect", Err: err}
	}
	t.client = c
	return t, nil
}

func clientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		opts.SetClientID(id)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// Topic returns the topic an entry of level l is published to.
func (t *MQTTTransport) Topic(l Level) string {
	return t.prefix + "/" + strings.ToLower(l.String())
}

func (t *MQTTTransport) Send(e *Entry) error {
	t.buf = e.Append(t.buf[:0])
	// paho keeps the payload until the packet is written.
	tok := t.pub.Publish(t.Topic(e.Level), 0, false, string(t.buf))
	if !tok.WaitTimeout(t.timeout) {
		return &errcode.E{C: errcode.Timeout, Op: "diag.mqtt", Msg: "publish"}
	}
	if err := tok.Error(); err != nil {
		return &errcode.E{C: errcode.TransportFailed, Op: "diag.mqtt", Msg: "publish", Err: err}
	}
	return nil
}

// Close disconnects a client created by DialMQTT.
func (t *MQTTTransport) Close() error {
	if t.client != nil {
		t.client.Disconnect(250)
	}
	return nil
}
