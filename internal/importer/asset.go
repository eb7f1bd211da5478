package importer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Asset is one loaded registry entry. Data is kept as opaque JSON.
type Asset struct {
	Path string
	ID   string
	Data map[string]any

	// Signature is the hex-encoded detached signature, signed loader only.
	Signature string
}

// Ticker returns the asset's "ticker" field, or "" when absent.
func (a Asset) Ticker() string {
	if s, ok := a.Data["ticker"].(string); ok {
		return s
	}
	return ""
}

// Record returns the object written for the asset: its data plus an "id"
// field when missing and the "signature" when present.
func (a Asset) Record() map[string]any {
	rec := make(map[string]any, len(a.Data)+2)
	for k, v := range a.Data {
		rec[k] = v
	}
	if _, ok := rec["id"]; !ok {
		rec["id"] = a.ID
	}
	if a.Signature != "" {
		rec["signature"] = a.Signature
	}
	return rec
}

// ErrInvalidSignature is returned for a signature file holding text that is
// not valid hex.
var ErrInvalidSignature = errors.New("signature text is not valid hex")

// encodeSignature accepts either a hex text file or raw signature bytes.
// Content made only of printable ASCII is read as hex text.
func encodeSignature(raw []byte) (string, error) {
	if len(raw) == 0 || !isText(raw) {
		return hex.EncodeToString(raw), nil
	}
	text := strings.TrimSpace(string(raw))
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	if text == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSignature)
	}
	if _, err := hex.DecodeString(text); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return strings.ToLower(text), nil
}

func isText(raw []byte) bool {
	for _, b := range raw {
		switch {
		case b == '\t', b == '\n', b == '\r':
		case b < 0x20, b > 0x7e:
			return false
		}
	}
	return true
}
