// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/gldap"
	"github.com/stretchr/testify/require"
)

const (
	FakeDirectoryBaseDN       = "dc=example,dc=org"
	FakeDirectoryBindDN       = "cn=svc,dc=example,dc=org"
	FakeDirectoryBindPassword = "svc-password"
)

// FakeDirectoryUser is an entry that can be found by any of its Names and bound to with Password.
type FakeDirectoryUser struct {
	DN       string
	Password string
	// Names are matched against the sAMAccountName, userPrincipalName, mail and uid terms of a filter.
	Names []string
}

// FakeDirectory is an in-process LDAP server that only understands simple binds and the user search
// used by the password hook.  Searches are only answered on connections bound as FakeDirectoryBindDN.
type FakeDirectory struct {
	// Host is the "127.0.0.1:port" the server listens on with plain LDAP.
	Host string

	users []FakeDirectoryUser

	mu            sync.Mutex
	serviceConns  map[int]bool
	binds         []string
	searchFilters []string
}

// NewFakeDirectory starts a FakeDirectory whose lifetime is bound to the provided *testing.T.
func NewFakeDirectory(t *testing.T, users ...FakeDirectoryUser) *FakeDirectory {
	t.Helper()

	d := &FakeDirectory{users: users, serviceConns: map[int]bool{}}

	s, err := gldap.NewServer(gldap.WithLogger(hclog.NewNullLogger()), gldap.WithDisablePanicRecovery())
	require.NoError(t, err)

	mux, err := gldap.NewMux()
	require.NoError(t, err)
	require.NoError(t, mux.Bind(d.handleBind))
	require.NoError(t, mux.Search(d.handleSearch))
	s.Router(mux)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	d.Host = l.Addr().String()
	require.NoError(t, l.Close())

	go s.Run(d.Host)
	require.Eventually(t, s.Ready, 10*time.Second, 10*time.Millisecond, "fake directory did not start")
	t.Cleanup(func() { s.Stop() })

	return d
}

// Binds returns the DNs of every bind attempt, successful or not, in order.
func (d *FakeDirectory) Binds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.binds...)
}

// SearchFilters returns the filter of every search request, in order.
func (d *FakeDirectory) SearchFilters() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.searchFilters...)
}

func (d *FakeDirectory) handleBind(w *gldap.ResponseWriter, r *gldap.Request) {
	resp := r.NewBindResponse(gldap.WithResponseCode(gldap.ResultInvalidCredentials))
	defer func() { _ = w.Write(resp) }()

	m, err := r.GetSimpleBindMessage()
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.binds = append(d.binds, m.UserName)
	delete(d.serviceConns, r.ConnectionID()) // a failed rebind leaves the connection anonymous

	if m.UserName == FakeDirectoryBindDN && string(m.Password) == FakeDirectoryBindPassword {
		d.serviceConns[r.ConnectionID()] = true
		resp.SetResultCode(gldap.ResultSuccess)
		return
	}

	for _, u := range d.users {
		if strings.EqualFold(u.DN, m.UserName) && string(m.Password) == u.Password {
			resp.SetResultCode(gldap.ResultSuccess)
			return
		}
	}
}

func (d *FakeDirectory) handleSearch(w *gldap.ResponseWriter, r *gldap.Request) {
	resp := r.NewSearchDoneResponse(gldap.WithResponseCode(gldap.ResultNoSuchObject))
	defer func() { _ = w.Write(resp) }()

	m, err := r.GetSearchMessage()
	if err != nil {
		return
	}

	d.mu.Lock()
	d.searchFilters = append(d.searchFilters, m.Filter)
	authorized := d.serviceConns[r.ConnectionID()]
	d.mu.Unlock()

	if !authorized {
		resp.SetResultCode(gldap.ResultAuthorizationDenied)
		return
	}
	if !strings.EqualFold(m.BaseDN, FakeDirectoryBaseDN) {
		return
	}

	for _, u := range d.users {
		if !matchesUserFilter(m.Filter, u.Names) {
			continue
		}
		_ = w.Write(r.NewSearchResponseEntry(u.DN, gldap.WithAttributes(map[string][]string{
			"distinguishedName": {u.DN},
		})))
	}
	resp.SetResultCode(gldap.ResultSuccess)
}

func matchesUserFilter(filter string, names []string) bool {
	for _, name := range names {
		for _, value := range []string{name, ldap.EscapeFilter(name)} {
			for _, attr := range []string{"sAMAccountName", "userPrincipalName", "mail", "uid"} {
				if strings.Contains(filter, "("+attr+"="+value+")") {
					return true
				}
			}
		}
	}
	return false
}
