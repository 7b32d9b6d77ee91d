package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientKey(t *testing.T) {
	cases := []struct {
		name    string
		token   string
		address string
		want    string
	}{
		{"long token wins", "abcdefgh", "10.0.0.1", "t:abcdefgh"},
		{"token is trimmed", "  abcdefgh12  ", "10.0.0.1", "t:abcdefgh12"},
		{"short token falls back to address", "abc", "10.0.0.1", "ip:10.0.0.1"},
		{"no token", "", "192.168.1.7", "ip:192.168.1.7"},
		{"nothing at all", "", "", "ip:unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClientKey(tc.token, tc.address))
		})
	}
}
