// Package relay provides the pieces of a WebRTC NAT-traversal fallback
// (spec §1 names the fallback orchestrator as an external collaborator):
// TURN credential minting, ICE server configuration, and a
// DataChannel-backed io.ReadWriteCloser that carries the same
// length-prefixed packet stream and can be handed to server.AddConn.
// The package does not itself detect a failed TCP dial, switch
// transports, or carry out the signaling exchange, and
// cmd/ascii-chat-server does not wire it in.
package relay

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"
)

// GenerateTURNCredentials mints a short-lived time-limited TURN username
// and password from a shared static-auth-secret, exactly as the
// teacher's main.go does for its own TURN server
// ("<expiry-unix>:<user>" HMAC-SHA1'd with the secret, base64-encoded).
func GenerateTURNCredentials(secret, user string, ttl time.Duration) (username, password string) {
	expires := time.Now().Add(ttl).Unix()
	username = fmt.Sprintf("%d:%s", expires, user)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	password = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return username, password
}
