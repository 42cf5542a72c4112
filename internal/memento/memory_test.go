// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package memento_test

import (
	"testing"

	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/internal/memento/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) memento.Store {
		return memento.NewMemoryStore()
	})
}
