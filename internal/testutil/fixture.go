package testutil

import (
	"testing"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/scenario"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/provider"
	"github.com/stretchr/testify/require"
)

// Fixture bundles the mocks behind a Provider.
type Fixture = scenario.Mocks

// NewFixture builds an unscripted fixture.
func NewFixture(t testing.TB, optFns ...func(o *provider.Options)) *Fixture {
	t.Helper()
	f, err := scenario.New(optFns...)
	require.NoError(t, err)
	return f
}
