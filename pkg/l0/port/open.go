package port

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Open opens a Stream from an address:
//
//	/dev/ttyUSB0
//	serial:///dev/ttyUSB0?baud=115200&read-timeout=50ms
//	ws://host:port/path
//	wss://host:port/path?origin=https://host/
func Open(addr string) (*Stream, error) {
	if !strings.Contains(addr, "://") {
		return OpenSerial(SerialConfig{Port: addr})
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid port address: %w", err)
	}
	query := u.Query()
	queueSize, err := intParam(query, "queue")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		cfg, err := serialConfigFromURL(u)
		if err != nil {
			return nil, err
		}
		return OpenSerial(cfg)
	case "ws", "wss":
		origin := query.Get("origin")
		query.Del("origin")
		query.Del("queue")
		u.RawQuery = query.Encode()
		return DialWebsocket(u.String(), origin, queueSize)
	default:
		return nil, fmt.Errorf("unknown port scheme: %q", u.Scheme)
	}
}

func serialConfigFromURL(u *url.URL) (cfg SerialConfig, err error) {
	query := u.Query()
	cfg.Port = u.Path
	if u.Host != "" {
		// serial://COM3
		cfg.Port = u.Host + u.Path
	}
	if cfg.BaudRate, err = intParam(query, "baud"); err != nil {
		return
	}
	if cfg.QueueSize, err = intParam(query, "queue"); err != nil {
		return
	}
	if val := query.Get("read-timeout"); val != "" {
		if cfg.ReadTimeout, err = time.ParseDuration(val); err != nil {
			err = fmt.Errorf("invalid read-timeout %q: %w", val, err)
			return
		}
	}
	return
}

func intParam(query url.Values, name string) (int, error) {
	val := query.Get(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, val)
	}
	return n, nil
}
