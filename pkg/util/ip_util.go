package util

import (
	"regexp"
	"strconv"
	"strings"
)

var cidrRe = regexp.MustCompile(`^([0-9]{1,3}\.){3}[0-9]{1,3}(/([8-9]|1[0-9]|2[0-9]|3[0-2]))?$`)

// ValidIPv4 reports whether ip is a well-formed IPv4 address, optionally
// with a /8../32 prefix.
func ValidIPv4(ip string) bool {
	if !cidrRe.MatchString(ip) {
		return false
	}

	ipAddress := strings.Split(ip, "/")[0]

	parts := strings.Split(ipAddress, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if val, err := strconv.Atoi(part); err != nil || val < 0 || val > 255 {
			return false
		}
	}

	return true
}

var (
	ipMatchRe  = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+`)
	macMatchRe = regexp.MustCompile(`[0-9a-fA-F]{2}(?::[0-9a-fA-F]{2}){5}`)
)

// FirstIPv4 extracts the first dotted-decimal address from device
// configuration text, or "" if none is present.
func FirstIPv4(text string) string {
	return ipMatchRe.FindString(text)
}

// FirstMAC extracts the first colon-hex hardware address from device
// configuration text, or "" if none is present.
func FirstMAC(text string) string {
	return macMatchRe.FindString(text)
}
