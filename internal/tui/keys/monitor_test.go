package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorKeysDistinct(t *testing.T) {
	t.Parallel()

	seen := map[string]string{}
	for _, group := range NewMonitorKeys().FullHelp() {
		for _, b := range group {
			help := b.Help()
			assert.NotEmpty(t, help.Key)
			assert.NotEmpty(t, help.Desc)
			for _, k := range b.Keys() {
				if prev, dup := seen[k]; dup {
					t.Errorf("key %q bound to both %q and %q", k, prev, help.Desc)
				}
				seen[k] = help.Desc
			}
		}
	}
}

func TestMonitorShortHelpInFullHelp(t *testing.T) {
	t.Parallel()

	k := NewMonitorKeys()
	full := map[string]bool{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			full[b.Help().Desc] = true
		}
	}
	for _, b := range k.ShortHelp() {
		assert.True(t, full[b.Help().Desc], b.Help().Desc)
	}
}
