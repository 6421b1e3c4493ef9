// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TLSEndpoint is a local port that completes TLS handshakes with a certificate from a throwaway CA.
// It is enough to exercise LDAPS dialing and CA bundle loading, but it does not speak LDAP.
type TLSEndpoint struct {
	HostPort     string
	CABundlePEM  []byte
	CABundlePath string
}

// NewTLSEndpoint starts the endpoint and writes its CA bundle to a temp file. Both go away when t ends.
func NewTLSEndpoint(t *testing.T) *TLSEndpoint {
	t.Helper()

	server := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	caBundle := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: server.Certificate().Raw,
	})
	caBundlePath := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caBundlePath, caBundle, 0o600))

	return &TLSEndpoint{
		HostPort:     server.Listener.Addr().String(),
		CABundlePEM:  caBundle,
		CABundlePath: caBundlePath,
	}
}
