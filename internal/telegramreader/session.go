package telegramreader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/monitor"
)

// ProxySource supplies the proxy configuration at connect time.
type ProxySource interface {
	Proxy(ctx context.Context) (domain.ProxyConfig, error)
}

// Manager owns the authenticated user session: it runs the MTProto
// client, drives the dialogue-fed login handshake, and feeds inbound
// messages to a subscribed handler.
type Manager struct {
	apiID       int
	apiHash     string
	sessionPath string
	proxies     ProxySource
	logger      *zerolog.Logger

	client     *telegram.Client
	dispatcher tg.UpdateDispatcher

	mu            sync.Mutex
	api           *tg.Client
	authenticated bool
	handler       func(monitor.Event)
	loginPhone    string
	codeHash      string
}

func New(apiID int, apiHash, sessionPath string, proxies ProxySource, logger *zerolog.Logger) *Manager {
	m := &Manager{
		apiID:       apiID,
		apiHash:     apiHash,
		sessionPath: sessionPath,
		proxies:     proxies,
		logger:      logger,
		dispatcher:  tg.NewUpdateDispatcher(),
	}

	m.dispatcher.OnNewMessage(m.onNewMessage)
	m.dispatcher.OnNewChannelMessage(m.onNewChannelMessage)

	return m
}

// Run connects and blocks until ctx is cancelled or the connection
// dies. Authentication state is refreshed on connect; the login
// handshake itself happens through StartLogin/SubmitCode/SubmitPassword
// while Run is active.
func (m *Manager) Run(ctx context.Context) error {
	proxy, err := m.proxies.Proxy(ctx)
	if err != nil {
		return fmt.Errorf("load proxy config: %w", err)
	}

	resolver, err := resolverFor(proxy)
	if err != nil {
		return fmt.Errorf("build dial resolver: %w", err)
	}

	opts := telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: m.sessionPath,
		},
		UpdateHandler: m.dispatcher,
	}
	if resolver != nil {
		opts.Resolver = resolver
	}

	client := telegram.NewClient(m.apiID, m.apiHash, opts)

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()

	return client.Run(ctx, func(ctx context.Context) error {
		m.mu.Lock()
		m.api = tg.NewClient(client)
		m.mu.Unlock()

		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("check auth status: %w", err)
		}

		m.setAuthenticated(status.Authorized)

		if status.Authorized {
			m.logger.Info().Msg("Session authorized, receiving updates")
		} else {
			m.logger.Info().Msg("Session not authorized, waiting for login")
		}

		<-ctx.Done()

		m.setAuthenticated(false)

		return ctx.Err()
	})
}

func (m *Manager) setAuthenticated(v bool) {
	m.mu.Lock()
	m.authenticated = v
	m.mu.Unlock()
}

// Authenticated reports whether the session is authorized and connected.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.authenticated
}

// Subscribe registers the handler receiving inbound message events.
func (m *Manager) Subscribe(handler func(monitor.Event)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handler = handler

	return nil
}

func (m *Manager) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handler = nil
}

func (m *Manager) authClient() (*auth.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil || m.api == nil {
		return nil, coreerrors.ErrNotConnected
	}

	return m.client.Auth(), nil
}

// StartLogin requests a login code for the phone number.
func (m *Manager) StartLogin(ctx context.Context, phone string) error {
	authClient, err := m.authClient()
	if err != nil {
		return err
	}

	sent, err := authClient.SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return fmt.Errorf("send login code: %w", err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return fmt.Errorf("unexpected sent code type %T", sent)
	}

	m.mu.Lock()
	m.loginPhone = phone
	m.codeHash = code.PhoneCodeHash
	m.mu.Unlock()

	return nil
}

// SubmitCode completes the login with the received code. When the
// account has two-step verification it returns ErrPasswordRequired and
// the login continues with SubmitPassword.
func (m *Manager) SubmitCode(ctx context.Context, code string) error {
	authClient, err := m.authClient()
	if err != nil {
		return err
	}

	m.mu.Lock()
	phone, codeHash := m.loginPhone, m.codeHash
	m.mu.Unlock()

	if phone == "" || codeHash == "" {
		return coreerrors.ErrLoginNotStarted
	}

	_, err = authClient.SignIn(ctx, phone, code, codeHash)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			return coreerrors.ErrPasswordRequired
		}

		return fmt.Errorf("sign in: %w", err)
	}

	m.finishLogin()

	return nil
}

// SubmitPassword completes a two-step-verification login.
func (m *Manager) SubmitPassword(ctx context.Context, password string) error {
	authClient, err := m.authClient()
	if err != nil {
		return err
	}

	if _, err := authClient.Password(ctx, password); err != nil {
		return fmt.Errorf("check password: %w", err)
	}

	m.finishLogin()

	return nil
}

func (m *Manager) finishLogin() {
	m.mu.Lock()
	m.authenticated = true
	m.loginPhone = ""
	m.codeHash = ""
	m.mu.Unlock()

	m.logger.Info().Msg("Successfully authenticated as user")
}

// Logout terminates the authorization and invalidates the session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	api := m.api
	m.mu.Unlock()

	if api == nil {
		return coreerrors.ErrNotConnected
	}

	if _, err := api.AuthLogOut(ctx); err != nil {
		return fmt.Errorf("log out: %w", err)
	}

	m.setAuthenticated(false)

	return nil
}

// Self returns a display name for the logged-in account.
func (m *Manager) Self(ctx context.Context) (string, error) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return "", coreerrors.ErrNotConnected
	}

	user, err := client.Self(ctx)
	if err != nil {
		return "", fmt.Errorf("load self: %w", err)
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	return name, nil
}
