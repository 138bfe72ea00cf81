package sig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
)

func TestDefaultResolvesCanonicalAndAlias(t *testing.T) {
	t1 := sig.Default()

	e, ok := t1.Resolve("Viper.Math.Sqrt")
	require.True(t, ok)
	require.Equal(t, il.F64, e.Sig.Ret)
	require.True(t, e.Effect.Pure)

	alias, ok := t1.Resolve("rt_sqrt")
	require.True(t, ok)
	require.Equal(t, e.Name, alias.Name)
}

func TestResolveUnknownNameFails(t *testing.T) {
	t1 := sig.Default()
	_, ok := t1.Resolve("Viper.DoesNotExist")
	require.False(t, ok)
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	t1 := sig.New()
	err := t1.Register(sig.Entry{})
	require.Error(t, err)
}

func TestEachVisitsEveryEntry(t *testing.T) {
	t1 := sig.Default()
	count := 0
	t1.Each(func(sig.Entry) bool {
		count++
		return true
	})
	require.Equal(t, t1.Len(), count)
}
