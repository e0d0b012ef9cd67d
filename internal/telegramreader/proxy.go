package telegramreader

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gotd/td/telegram/dcs"
	"golang.org/x/net/proxy"

	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
)

// resolverFor builds a DC resolver dialing through the configured
// proxy. A nil resolver means a direct connection.
func resolverFor(cfg domain.ProxyConfig) (dcs.Resolver, error) {
	switch cfg.Type {
	case domain.ProxySocks5:
		dialer, err := proxy.SOCKS5("tcp", cfg.Addr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}

		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer for %s does not support context dialing", cfg.Addr)
		}

		return dcs.Plain(dcs.PlainOptions{Dial: contextDialer.DialContext}), nil

	case domain.ProxyMTProxy:
		secret, err := hex.DecodeString(strings.TrimPrefix(cfg.Secret, "dd"))
		if err != nil {
			return nil, fmt.Errorf("decode mtproxy secret: %w", err)
		}

		resolver, err := dcs.MTProxy(cfg.Addr, secret, dcs.MTProxyOptions{})
		if err != nil {
			return nil, fmt.Errorf("mtproxy resolver: %w", err)
		}

		return resolver, nil

	default:
		return nil, nil
	}
}
