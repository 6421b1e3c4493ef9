// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// LogLinesWithMessage decodes every JSON log line in the buffer whose message equals msg.
func LogLinesWithMessage(t *testing.T, log *bytes.Buffer, msg string) []map[string]any {
	t.Helper()

	var found []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(log.Bytes()))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(line, &decoded), "log line is not JSON: %s", line)
		if decoded["message"] == msg {
			found = append(found, decoded)
		}
	}
	require.NoError(t, scanner.Err())
	return found
}

// RequireNotLogged fails the test if any of the credentials appear anywhere in the log output.
func RequireNotLogged(t *testing.T, log *bytes.Buffer, credentials ...string) {
	t.Helper()

	for _, c := range credentials {
		require.NotEmpty(t, c, "an empty credential would match any log output")
		require.NotContains(t, log.String(), c, "credential leaked into the logs")
	}
}
