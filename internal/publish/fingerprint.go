package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const fingerprintDomain = "timeattack/artifact/v1"

const markerPrefix = "-# ref:"

// Fingerprint hashes the raw artifact bytes of target. The target is part
// of the hash so two targets with identical bytes never share a fingerprint.
func Fingerprint(target string, raw []byte) string {
	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(target))
	h.Write([]byte{0x00})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}

// Marker is the line that ties a message to its target.
func Marker(target string) string {
	return markerPrefix + target
}

// HasMarker reports whether content carries the exact marker line of target.
func HasMarker(content, target string) bool {
	want := Marker(target)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimRight(line, "\r ") == want {
			return true
		}
	}
	return false
}

// Compose appends the marker to body and cuts whole lines from the end of
// body until the message fits in limit runes.
func Compose(body, target string, limit int) string {
	marker := Marker(target)
	body = strings.TrimRight(body, "\n")
	const ellipsis = "…"
	full := body + "\n" + marker
	if utf8.RuneCountInString(full) <= limit {
		return full
	}
	lines := strings.Split(body, "\n")
	for len(lines) > 1 {
		lines = lines[:len(lines)-1]
		candidate := strings.Join(lines, "\n") + "\n" + ellipsis + "\n" + marker
		if utf8.RuneCountInString(candidate) <= limit {
			return candidate
		}
	}
	// The first line alone is too long: cut runes.
	room := limit - utf8.RuneCountInString(marker) - 2
	if room <= 0 {
		return marker
	}
	r := []rune(lines[0])
	return string(r[:min(room, len(r))]) + ellipsis + "\n" + marker
}
