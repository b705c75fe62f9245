package service

import (
	"strconv"
	"strings"
)

const maxUsernameLen = 64

// ParseIdentifier splits a profile identifier into a FID or a username. A
// leading "@" is ignored. Exactly one of the results is set on success.
func ParseIdentifier(raw string) (fid uint64, username string, err error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if raw == "" || len(raw) > maxUsernameLen {
		return 0, "", ErrInvalidIdentifier
	}
	if isDigits(raw) {
		fid, err := ParseFID(raw)
		if err != nil {
			return 0, "", ErrInvalidIdentifier
		}
		return fid, "", nil
	}
	if strings.ContainsAny(raw, " \t/?#") {
		return 0, "", ErrInvalidIdentifier
	}
	return 0, strings.ToLower(raw), nil
}

// ParseFID parses a positive decimal FID.
func ParseFID(raw string) (uint64, error) {
	fid, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || fid == 0 {
		return 0, ErrInvalidFID
	}
	return fid, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
