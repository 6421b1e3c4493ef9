// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package upstreamldap checks a username and password against an LDAP directory by searching for the
// user's entry under a service account bind and then binding as that entry.
package upstreamldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"go.pinniped.dev/passwordhook/internal/constable"
	"go.pinniped.dev/passwordhook/internal/crypto/ptls"
	"go.pinniped.dev/passwordhook/internal/plog"
)

const (
	ldapScheme  = "ldap"
	ldapsScheme = "ldaps"

	// distinguishedNameAttributeName is requested so that directories which do not return the entry DN
	// by default (some Active Directory proxies) still populate it.
	distinguishedNameAttributeName = "distinguishedName"

	// two is enough to tell "exactly one" from "more than one" without pulling large result sets.
	searchSizeLimit = 2

	defaultDialTimeout    = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second

	errEmptyDN        = constable.Error("search result entry has an empty DN")
	errUnknownScheme  = constable.Error("unsupported URL scheme, must be ldap or ldaps")
	errMissingHost    = constable.Error("URL has no host")
	errUnexpectedPath = constable.Error("URL must not have a path, query or fragment")
)

// Conn abstracts the upstream LDAP communication protocol (mostly for testing).
type Conn interface {
	Bind(username, password string) error

	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)

	StartTLS(config *tls.Config) error

	SetTimeout(timeout time.Duration)

	Close() error
}

// Our Conn type is subset of the ldap.Client interface, which is implemented by ldap.Conn.
var _ Conn = &ldap.Conn{}

// LDAPDialer is a factory of Conn, and the resulting Conn can then be used to interact with an upstream LDAP IDP.
type LDAPDialer interface {
	Dial(ctx context.Context, hostAndPort string) (Conn, error)
}

// LDAPDialerFunc makes it easy to use a func as an LDAPDialer.
type LDAPDialerFunc func(ctx context.Context, hostAndPort string) (Conn, error)

var _ LDAPDialer = LDAPDialerFunc(nil)

func (f LDAPDialerFunc) Dial(ctx context.Context, hostAndPort string) (Conn, error) {
	return f(ctx, hostAndPort)
}

type LDAPConnectionProtocol string

const (
	StartTLS = LDAPConnectionProtocol("StartTLS")
	TLS      = LDAPConnectionProtocol("TLS")
	// Plain sends the service and user passwords in clear text.  Only use it on trusted networks.
	Plain = LDAPConnectionProtocol("Plain")
)

// ProviderConfig includes all of the settings for connection and searching for users in the directory.
type ProviderConfig struct {
	// Host is the hostname or "hostname:port" of the LDAP server. When the port is not specified,
	// the default port for the ConnectionProtocol will be used.
	Host string

	// ConnectionProtocol determines how to establish the connection to the server.
	ConnectionProtocol LDAPConnectionProtocol

	// RootCAs to trust when connecting to the LDAP server. Nil means the host's roots.
	RootCAs *x509.CertPool

	// BindUsername is the DN of the service account used for the user search.
	BindUsername string

	// BindPassword is the password of the service account.
	BindPassword string

	// UserSearchBase is the base DN of the whole subtree user search.
	UserSearchBase string

	// DialTimeout bounds establishing each connection, including the TLS handshake.
	DialTimeout time.Duration

	// RequestTimeout bounds each LDAP operation and is also sent as the server side search time limit.
	RequestTimeout time.Duration

	// Dialer exists to enable testing. When nil, will use a default appropriate for production use.
	Dialer LDAPDialer

	// Logger defaults to a logger named "upstreamldap".
	Logger plog.Logger
}

// Provider validates credentials against one directory.  It holds no connection state and is safe for
// concurrent use, every call opens and closes its own connections.
type Provider struct {
	c ProviderConfig
}

// New creates a Provider. The config is not a pointer to ensure that a copy of the config is created,
// making the resulting Provider use an effectively read-only configuration.
func New(config ProviderConfig) *Provider {
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultDialTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.Logger == nil {
		config.Logger = plog.New().WithName("upstreamldap")
	}
	return &Provider{c: config}
}

// GetConfig returns a copy of the configuration. Used for testing.
func (p *Provider) GetConfig() ProviderConfig {
	return p.c
}

// ParseURL splits ldap://host[:port], ldaps://host[:port] or a bare host[:port] into a host and a connection
// protocol.  startTLS only applies to ldap:// (and bare host) URLs.
func ParseURL(rawURL string, startTLS bool) (string, LDAPConnectionProtocol, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = ldapScheme + "://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse LDAP URL: %w", err)
	}
	if len(u.Hostname()) == 0 {
		return "", "", errMissingHost
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return "", "", errUnexpectedPath
	}

	switch u.Scheme {
	case ldapsScheme:
		return u.Host, TLS, nil
	case ldapScheme:
		if startTLS {
			return u.Host, StartTLS, nil
		}
		return u.Host, Plain, nil
	default:
		return "", "", errUnknownScheme
	}
}

func (p *Provider) dial(ctx context.Context) (Conn, error) {
	hostAndPort, err := hostAndPortWithDefaultPort(p.c.Host, p.defaultPort())
	if err != nil {
		return nil, ldap.NewError(ldap.ErrorNetwork, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.c.DialTimeout)
	defer cancel()

	var conn Conn
	switch {
	case p.c.Dialer != nil:
		conn, err = p.c.Dialer.Dial(ctx, hostAndPort)
	case p.c.ConnectionProtocol == TLS:
		conn, err = p.dialTLS(ctx, hostAndPort)
	default:
		conn, err = p.dialPlain(ctx, hostAndPort)
	}
	if err != nil {
		return nil, err
	}

	conn.SetTimeout(p.c.RequestTimeout)

	if p.c.ConnectionProtocol == StartTLS {
		if err := conn.StartTLS(p.tlsConfig(hostAndPort)); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func (p *Provider) defaultPort() string {
	if p.c.ConnectionProtocol == TLS {
		return ldap.DefaultLdapsPort
	}
	return ldap.DefaultLdapPort
}

// dialTLS is the default implementation of the Dialer for ldaps, used when Dialer is nil.
// Unfortunately, the go-ldap library does not seem to support dialing with a context.Context,
// so we implement it ourselves, heavily inspired by ldap.DialURL.
func (p *Provider) dialTLS(ctx context.Context, hostAndPort string) (Conn, error) {
	dialer := &tls.Dialer{Config: p.tlsConfig(hostAndPort)}
	c, err := dialer.DialContext(ctx, "tcp", hostAndPort)
	if err != nil {
		return nil, ldap.NewError(ldap.ErrorNetwork, err)
	}

	conn := ldap.NewConn(c, true)
	conn.Start()
	return conn, nil
}

// dialPlain is the default implementation of the Dialer for ldap:// with or without StartTLS.
func (p *Provider) dialPlain(ctx context.Context, hostAndPort string) (Conn, error) {
	var dialer net.Dialer
	c, err := dialer.DialContext(ctx, "tcp", hostAndPort)
	if err != nil {
		return nil, ldap.NewError(ldap.ErrorNetwork, err)
	}

	conn := ldap.NewConn(c, false)
	conn.Start()
	return conn, nil
}

func (p *Provider) tlsConfig(hostAndPort string) *tls.Config {
	config := ptls.DefaultLDAP(p.c.RootCAs)
	if host, _, err := net.SplitHostPort(hostAndPort); err == nil {
		config.ServerName = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	return config
}

// Adds the default port if hostAndPort did not already include a port.
func hostAndPortWithDefaultPort(hostAndPort string, defaultPort string) (string, error) {
	host, port, err := net.SplitHostPort(hostAndPort)
	if err != nil {
		if strings.HasSuffix(err.Error(), ": missing port in address") { // sad to need to do this string compare
			host = hostAndPort
			port = defaultPort
		} else {
			return "", err // hostAndPort argument was not parsable
		}
	}
	switch {
	case port != "" && strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]"):
		// don't add extra square brackets to an IPv6 address that already has them
		return host + ":" + port, nil
	case port != "":
		return net.JoinHostPort(host, port), nil
	default:
		return host, nil
	}
}

// TestConnection provides a method for testing the connection and bind settings. It performs a dial and bind
// as the service account and returns any errors that we encountered.
func (p *Provider) TestConnection(ctx context.Context) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf(`error dialing host %q: %w`, p.c.Host, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Bind(p.c.BindUsername, p.c.BindPassword); err != nil {
		return fmt.Errorf(`error binding as %q: %w`, p.c.BindUsername, err)
	}

	return nil
}

// ValidateCredential reports whether password is the directory password of the entry that username resolves to.
// It never returns an error, all failures are folded into the Result so that callers fail closed.
func (p *Provider) ValidateCredential(ctx context.Context, username, password string) Result {
	result := p.validateCredential(ctx, username, password)
	p.logResult(username, result)
	return result
}

func (p *Provider) validateCredential(ctx context.Context, username, password string) Result {
	if len(username) == 0 {
		// nothing to search for
		return Result{Outcome: OutcomeUserNotFound}
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return Result{Outcome: OutcomeDirectoryUnreachable, Err: fmt.Errorf(`error dialing host %q: %w`, p.c.Host, err)}
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Bind(p.c.BindUsername, p.c.BindPassword); err != nil {
		return Result{Outcome: OutcomeServiceBindFailed, Err: fmt.Errorf(`error binding as %q before user search: %w`, p.c.BindUsername, err)}
	}

	dn, matches, err := p.searchForUser(conn, username)
	if err != nil {
		return Result{Outcome: OutcomeSearchFailed, Matches: matches, Err: err}
	}
	if matches == 0 {
		return Result{Outcome: OutcomeUserNotFound}
	}

	// the service connection never runs an operation as the end user
	if err := p.bindAsUser(ctx, dn, password); err != nil {
		return Result{Outcome: userBindFailureOutcome(err), DN: dn, Matches: matches, Err: err}
	}

	return Result{Outcome: OutcomeVerified, DN: dn, Matches: matches}
}

// searchForUser returns the DN of the first matching entry and how many entries were returned.
func (p *Provider) searchForUser(conn Conn, username string) (string, int, error) {
	searchResult, err := conn.Search(p.userSearchRequest(username))
	switch {
	case err == nil:
	case ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && searchResult != nil && len(searchResult.Entries) > 0:
		// the server stopped at our size limit, so there are at least as many matches as we were sent
		p.c.Logger.Debug("user search hit the size limit", "username", username, "entries", len(searchResult.Entries))
	default:
		return "", 0, fmt.Errorf(`error searching for user %q: %w`, username, err)
	}

	if len(searchResult.Entries) == 0 {
		return "", 0, nil
	}

	userEntry := searchResult.Entries[0]
	if len(userEntry.DN) == 0 {
		return "", len(searchResult.Entries), fmt.Errorf(`searching for user %q: %w`, username, errEmptyDN)
	}

	if len(searchResult.Entries) > 1 {
		p.c.Logger.Warning("user search matched more than one entry, using the first one",
			"username", username, "dn", userEntry.DN, "entries", len(searchResult.Entries))
	}

	return userEntry.DN, len(searchResult.Entries), nil
}

// bindAsUser binds on a fresh connection so that the outcome cannot be influenced by the service bind.
func (p *Provider) bindAsUser(ctx context.Context, dn, password string) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return &userDialError{err: fmt.Errorf(`error dialing host %q: %w`, p.c.Host, err)}
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Bind(dn, password); err != nil {
		return fmt.Errorf(`error binding as %q: %w`, dn, err)
	}

	return nil
}

type userDialError struct{ err error }

func (e *userDialError) Error() string { return e.err.Error() }
func (e *userDialError) Unwrap() error { return e.err }

func userBindFailureOutcome(err error) Outcome {
	var dialErr *userDialError
	if errors.As(err, &dialErr) {
		return OutcomeDirectoryUnreachable
	}
	return OutcomeUserBindFailed
}

func (p *Provider) userSearchRequest(username string) *ldap.SearchRequest {
	// See https://ldap.com/the-ldap-search-operation for general documentation of LDAP search options.
	return &ldap.SearchRequest{
		BaseDN:       p.c.UserSearchBase,
		Scope:        ldap.ScopeWholeSubtree,
		DerefAliases: ldap.NeverDerefAliases,
		SizeLimit:    searchSizeLimit,
		TimeLimit:    int(p.c.RequestTimeout.Seconds()),
		TypesOnly:    false,
		Filter:       userSearchFilter(username),
		Attributes:   []string{distinguishedNameAttributeName},
		Controls:     nil, // this could be used to enable paging, but we're already limiting the result max size
	}
}

// userSearchFilter matches the Active Directory logon names, the email address and the POSIX uid.
func userSearchFilter(username string) string {
	// The username is end-user input, so it should be escaped before being included in a search to prevent query injection.
	u := ldap.EscapeFilter(username)
	return fmt.Sprintf("(|(sAMAccountName=%s)(userPrincipalName=%s)(mail=%s)(uid=%s))", u, u, u, u)
}

func (p *Provider) logResult(username string, result Result) {
	keysAndValues := []any{"username", username, "outcome", result.Outcome}
	if len(result.DN) > 0 {
		keysAndValues = append(keysAndValues, "dn", result.DN)
	}

	switch result.Outcome {
	case OutcomeVerified:
		p.c.Logger.Info("directory authentication succeeded", keysAndValues...)
	case OutcomeUserNotFound:
		p.c.Logger.Info("user not found", keysAndValues...)
	case OutcomeUserBindFailed:
		p.c.Logger.InfoErr("directory authentication failed", result.Err, keysAndValues...)
	default:
		// these point at configuration or availability problems rather than at the end user
		p.c.Logger.WarningErr("directory authentication could not be completed", result.Err, keysAndValues...)
	}
}
