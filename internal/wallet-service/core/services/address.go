package services

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	AddressPrefix  = "GR"
	addressRandLen = 10
	QRPrefix       = "gride:"
)

// NewWalletAddress returns a public wallet address such as "GR7ZK3M0QX2HD".
// The random tail comes from the entropy part of a ULID.
func NewWalletAddress() string {
	id := ulid.Make().String()
	return AddressPrefix + strings.ToUpper(id[len(id)-addressRandLen:])
}

// QRString is the scannable payload for a wallet address.
func QRString(address string) string {
	return QRPrefix + address
}
