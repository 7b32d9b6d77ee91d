// Package governance holds the per-client request governance state: client
// identity, rate limiting, spam cooldowns, the single-flight guard and the
// answer cache. All state is process memory and may be reset at any time.
package governance

import (
	"strings"

	"menu-qa/internal/shared"
)

// ClientKey derives the governance key for a requester. A client-supplied
// token wins when it is long enough to be meaningful, otherwise the network
// address is used.
func ClientKey(token, address string) string {
	token = strings.TrimSpace(token)
	if len(token) >= shared.MinClientTokenLength {
		return "t:" + token
	}
	address = strings.TrimSpace(address)
	if address == "" {
		address = shared.UnknownClientAddress
	}
	return "ip:" + address
}
