// Package camera describes how to address and authenticate to the RTSP camera.
package camera

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Default source values. The credentials are placeholders for local development only.
const (
	DefaultScheme    = "rtsp"
	DefaultUsername  = "admin"
	DefaultPassword  = "admin"
	DefaultHost      = "192.168.0.64"
	DefaultPort      = 554
	DefaultChannel   = "101"
	DefaultPath      = ChannelPathPrefix + DefaultChannel
	DefaultTransport = "tcp"

	// ChannelPathPrefix is the stream path layout of Hikvision-style cameras.
	ChannelPathPrefix = "/Streaming/Channels/"
)

// RedactedCredentials replaces the user:password segment of a URL.
const RedactedCredentials = "***:***"

// credentialPattern matches "scheme://userinfo@". The userinfo run is greedy
// up to the last "@" before the first "/" or space, so an unescaped "@" in
// a verbatim URL's password is masked too.
var credentialPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/\s]*@`)

// Source is the set of fields needed to reach the camera.
type Source struct {
	Scheme    string `toml:"scheme"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Path      string `toml:"path"`
	Transport string `toml:"transport"`

	// Channel selects ChannelPathPrefix+Channel when Path is empty.
	Channel string `toml:"channel"`

	// URL, when set, is used verbatim instead of the composed fields.
	URL string `toml:"url"`
}

// DefaultSource returns a Source with every field set to its default.
func DefaultSource() Source {
	return Source{
		Scheme:    DefaultScheme,
		Username:  DefaultUsername,
		Password:  DefaultPassword,
		Host:      DefaultHost,
		Port:      DefaultPort,
		Path:      DefaultPath,
		Transport: DefaultTransport,
	}
}

// WithDefaults fills every empty field with its default value.
func (s Source) WithDefaults() Source {
	d := DefaultSource()
	if s.Scheme == "" {
		s.Scheme = d.Scheme
	}
	if s.Username == "" {
		s.Username = d.Username
	}
	if s.Password == "" {
		s.Password = d.Password
	}
	if s.Host == "" {
		s.Host = d.Host
	}
	if s.Port <= 0 {
		s.Port = d.Port
	}
	if s.Path == "" {
		if s.Channel != "" {
			s.Path = ChannelPathPrefix + s.Channel
		} else {
			s.Path = d.Path
		}
	}
	if s.Transport == "" {
		s.Transport = d.Transport
	}
	return s
}

// ConnectionURL returns the URL handed to the transcoder.
// It contains credentials and must never be logged or returned to a client.
func (s Source) ConnectionURL() string {
	if s.URL != "" {
		return s.URL
	}

	path := s.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{
		Scheme: s.Scheme,
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   path,
	}
	if s.Username != "" || s.Password != "" {
		u.User = url.UserPassword(s.Username, s.Password)
	}
	return u.String()
}

// Redacted returns the connection URL with credentials masked.
func (s Source) Redacted() string {
	return Redact(s.ConnectionURL())
}

// LogValue implements slog.LogValuer so a Source is never logged verbatim.
func (s Source) LogValue() slog.Value {
	return slog.StringValue(s.Redacted())
}

// String implements fmt.Stringer with credentials masked.
func (s Source) String() string {
	return s.Redacted()
}

// Details is the redacted source summary included in error responses.
type Details struct {
	URL       string `json:"url" doc:"Camera URL with credentials masked"`
	Host      string `json:"host,omitempty" doc:"Camera host"`
	Port      string `json:"port,omitempty" doc:"Camera port"`
	Path      string `json:"path,omitempty" doc:"Camera channel path"`
	Transport string `json:"transport,omitempty" doc:"RTSP transport"`
}

// Details returns the redacted descriptor.
func (s Source) Details() Details {
	d := Details{
		URL:       s.Redacted(),
		Transport: s.Transport,
	}
	if s.URL != "" {
		if u, err := url.Parse(s.URL); err == nil {
			d.Host = u.Hostname()
			d.Port = u.Port()
			d.Path = u.Path
		}
		return d
	}
	d.Host = s.Host
	d.Port = strconv.Itoa(s.Port)
	d.Path = s.Path
	return d
}

// Validate reports whether the source can be turned into a usable URL.
func (s Source) Validate() error {
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("invalid camera url %q: %w", Redact(s.URL), err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("camera url %q must include scheme and host", Redact(s.URL))
		}
		return nil
	}
	if s.Host == "" {
		return fmt.Errorf("camera host is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("camera port %d out of range", s.Port)
	}
	return nil
}

// Redact masks every "scheme://user:pass@" credential segment found in text.
func Redact(text string) string {
	return credentialPattern.ReplaceAllString(text, "${1}"+RedactedCredentials+"@")
}
