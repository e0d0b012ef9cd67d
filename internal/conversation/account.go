package conversation

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

func (m *Machine) startLogin(ctx context.Context, operatorID int64) (Reply, error) {
	if m.session.Authenticated() {
		return Reply{Text: "Already logged in.", Buttons: m.accountMenu()}, nil
	}

	if err := m.save(ctx, operatorID, StateWaitingPhone, Payload{}); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    "Send the phone number in international format, e.g. +15551234567.",
		Buttons: [][]Button{{cancelButton()}},
	}, nil
}

func (m *Machine) capturePhone(ctx context.Context, operatorID int64, payload Payload, text string) (Reply, error) {
	phone := strings.TrimSpace(text)
	if !validPhone(phone) {
		return Reply{
			Text:    "⚠️ That does not look like a phone number. Send it in international format, e.g. +15551234567.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}

	if err := m.session.StartLogin(ctx, phone); err != nil {
		m.logger.Error().Err(err).Msg("start login")

		return Reply{
			Text:    "⚠️ Could not request a login code. Check the number and try again.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}

	payload.LoginPhone = phone
	if err := m.save(ctx, operatorID, StateWaitingCode, payload); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    "A login code was sent. Reply with the code.",
		Buttons: [][]Button{{cancelButton()}},
	}, nil
}

func validPhone(phone string) bool {
	if !strings.HasPrefix(phone, "+") || len(phone) < 8 {
		return false
	}

	for _, r := range phone[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (m *Machine) captureCode(ctx context.Context, operatorID int64, text string) (Reply, error) {
	code := strings.TrimSpace(text)

	err := m.session.SubmitCode(ctx, code)

	switch {
	case err == nil:
		if err := m.reset(ctx, operatorID); err != nil {
			return m.failure(), err
		}

		return Reply{Text: "🔐 Logged in.", Buttons: m.accountMenu()}, nil

	case coreerrors.Is(err, coreerrors.ErrPasswordRequired):
		if err := m.save(ctx, operatorID, StateWaitingPassword, Payload{}); err != nil {
			return m.failure(), err
		}

		return Reply{
			Text:    "Two-step verification is enabled. Reply with the account password.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil

	case coreerrors.Is(err, coreerrors.ErrLoginNotStarted):
		return m.staleMenu(ctx, operatorID)

	default:
		m.logger.Error().Err(err).Msg("submit login code")

		return Reply{
			Text:    "⚠️ The code was not accepted. Reply with the code again.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}
}

func (m *Machine) capturePassword(ctx context.Context, operatorID int64, text string) (Reply, error) {
	if err := m.session.SubmitPassword(ctx, strings.TrimSpace(text)); err != nil {
		m.logger.Error().Err(err).Msg("submit password")

		return Reply{
			Text:    "⚠️ The password was not accepted. Reply with the password again.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{Text: "🔐 Logged in.", Buttons: m.accountMenu()}, nil
}

func (m *Machine) logout(ctx context.Context, operatorID int64) (Reply, error) {
	if !m.session.Authenticated() {
		return Reply{Text: "Not logged in.", Buttons: m.accountMenu()}, nil
	}

	if m.pipeline.Running() {
		if err := m.pipeline.Stop(); err != nil && !coreerrors.Is(err, coreerrors.ErrNotRunning) {
			m.logger.Error().Err(err).Msg("stop pipeline before logout")
		}
	}

	if err := m.session.Logout(ctx); err != nil {
		m.logger.Error().Err(err).Msg("logout")

		return m.failure(), err
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{Text: "🚪 Logged out.", Buttons: m.accountMenu()}, nil
}

func (m *Machine) accountStatus(ctx context.Context) (Reply, error) {
	var b strings.Builder

	if m.session.Authenticated() {
		name, err := m.session.Self(ctx)
		if err != nil {
			m.logger.Warn().Err(err).Msg("load session identity")

			name = "unknown"
		}

		fmt.Fprintf(&b, "🔐 Logged in as %s.\n", escape(name))
	} else {
		b.WriteString("🔓 Not logged in.\n")
	}

	proxy, err := m.config.Proxy(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("load proxy config")

		return m.failure(), err
	}

	switch proxy.Type {
	case domain.ProxySocks5, domain.ProxyMTProxy:
		fmt.Fprintf(&b, "🌐 Proxy: %s %s", proxy.Type, escape(proxy.Addr))
	default:
		b.WriteString("🌐 Proxy: none")
	}

	return Reply{Text: b.String(), Buttons: m.accountMenu()}, nil
}

func (m *Machine) proxyMenu() Reply {
	return Reply{
		Text: "Pick the proxy type for the account session:",
		Buttons: [][]Button{
			{{Label: "Direct (no proxy)", Event: Event{Kind: EventProxyType, ProxyType: domain.ProxyNone}}},
			{{Label: "SOCKS5", Event: Event{Kind: EventProxyType, ProxyType: domain.ProxySocks5}}},
			{{Label: "MTProxy", Event: Event{Kind: EventProxyType, ProxyType: domain.ProxyMTProxy}}},
			{cancelButton()},
		},
	}
}

func (m *Machine) selectProxyType(ctx context.Context, operatorID int64, payload Payload, proxyType domain.ProxyType) (Reply, error) {
	switch proxyType {
	case domain.ProxyNone:
		if err := m.config.SetProxy(ctx, domain.ProxyConfig{Type: domain.ProxyNone}); err != nil {
			m.logger.Error().Err(err).Msg("save proxy config")

			return m.failure(), err
		}

		if err := m.reset(ctx, operatorID); err != nil {
			return m.failure(), err
		}

		return Reply{Text: "🌐 Proxy disabled. Takes effect on the next session restart.", Buttons: m.accountMenu()}, nil

	case domain.ProxySocks5, domain.ProxyMTProxy:
		payload = Payload{ProxyType: proxyType}
		if err := m.save(ctx, operatorID, StateWaitingProxyURL, payload); err != nil {
			return m.failure(), err
		}

		return Reply{Text: proxyPrompt(proxyType), Buttons: [][]Button{{cancelButton()}}}, nil

	default:
		return m.staleMenu(ctx, operatorID)
	}
}

func proxyPrompt(proxyType domain.ProxyType) string {
	if proxyType == domain.ProxyMTProxy {
		return "Send the MTProxy address and secret, e.g. proxy.example.com:443 dd00112233445566778899aabbccddeeff."
	}

	return "Send the SOCKS5 address, e.g. 127.0.0.1:1080."
}

func (m *Machine) captureProxyAddr(ctx context.Context, operatorID int64, payload Payload, text string) (Reply, error) {
	proxyType := payload.ProxyType
	if proxyType != domain.ProxySocks5 && proxyType != domain.ProxyMTProxy {
		return m.staleMenu(ctx, operatorID)
	}

	cfg, err := parseProxyInput(proxyType, text)
	if err != nil {
		return Reply{
			Text:    "⚠️ " + err.Error() + "\n\n" + proxyPrompt(proxyType),
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}

	if err := m.config.SetProxy(ctx, cfg); err != nil {
		m.logger.Error().Err(err).Msg("save proxy config")

		return m.failure(), err
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    fmt.Sprintf("🌐 Proxy set: %s %s. Takes effect on the next session restart.", cfg.Type, escape(cfg.Addr)),
		Buttons: m.accountMenu(),
	}, nil
}

func parseProxyInput(proxyType domain.ProxyType, text string) (domain.ProxyConfig, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return domain.ProxyConfig{}, fmt.Errorf("the address cannot be empty: %w", coreerrors.ErrInvalidProxy)
	}

	addr := fields[0]
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("the address must be host:port: %w", coreerrors.ErrInvalidProxy)
	}

	cfg := domain.ProxyConfig{Type: proxyType, Addr: addr}

	if proxyType == domain.ProxyMTProxy {
		if len(fields) < 2 {
			return domain.ProxyConfig{}, fmt.Errorf("MTProxy needs a secret after the address: %w", coreerrors.ErrInvalidProxy)
		}

		secret := strings.TrimPrefix(fields[1], "dd")
		if _, err := hex.DecodeString(secret); err != nil {
			return domain.ProxyConfig{}, fmt.Errorf("the secret must be hex: %w", coreerrors.ErrInvalidProxy)
		}

		cfg.Secret = fields[1]
	}

	return cfg, nil
}
