// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package constable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const errSentinel = Error("some sentinel")

func TestError(t *testing.T) {
	require.EqualError(t, errSentinel, "some sentinel")

	wrapped := fmt.Errorf("while doing a thing: %w", errSentinel)
	require.ErrorIs(t, wrapped, errSentinel)
	require.True(t, errors.Is(wrapped, Error("some sentinel")), "equal constants should compare equal")
	require.False(t, errors.Is(wrapped, Error("some other sentinel")))
}
