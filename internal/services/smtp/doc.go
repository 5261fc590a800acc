// Package smtp delivers composed messages through an SMTP relay using
// go-mail. A Client opens one connection per message, so a slow or dead
// server never holds state between deliveries.
//
// Over TLS the mechanism is discovered by go-mail. Without TLS the client
// picks the first advertised mechanism from SCRAM, CRAM-MD5, PLAIN and LOGIN,
// which covers internal relays that offer only PLAIN or LOGIN.
package smtp
