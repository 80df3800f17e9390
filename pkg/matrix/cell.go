// Package matrix expands declarative compatibility rules against a
// catalog snapshot into the set of concrete test cells.
//
// A cell is one (client language, client version, server language,
// server version) combination. Cell identity is a deterministic hash of
// that 4-tuple, so the same inputs produce the same cell IDs run after
// run and reports stay comparable over time.
package matrix

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Cell is one concrete client/server pairing scheduled for execution.
type Cell struct {
	ID            string `json:"id"`
	ClientLang    string `json:"client_lang"`
	ClientVersion string `json:"client_version"`
	ServerLang    string `json:"server_lang"`
	ServerVersion string `json:"server_version"`
}

// NewCell builds a cell with its derived ID.
func NewCell(clientLang, clientVersion, serverLang, serverVersion string) Cell {
	return Cell{
		ID:            CellID(clientLang, clientVersion, serverLang, serverVersion),
		ClientLang:    clientLang,
		ClientVersion: clientVersion,
		ServerLang:    serverLang,
		ServerVersion: serverVersion,
	}
}

// CellID derives the stable identifier for a 4-tuple: the first 16 hex
// characters of the SHA-256 of "clientLang@clientVer->serverLang@serverVer".
func CellID(clientLang, clientVersion, serverLang, serverVersion string) string {
	key := fmt.Sprintf("%s@%s->%s@%s", clientLang, clientVersion, serverLang, serverVersion)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// Key returns the human-readable 4-tuple, used in logs and stores.
func (c Cell) Key() string {
	return fmt.Sprintf("%s@%s->%s@%s", c.ClientLang, c.ClientVersion, c.ServerLang, c.ServerVersion)
}

// String implements fmt.Stringer.
func (c Cell) String() string {
	return c.ID + " " + c.Key()
}
