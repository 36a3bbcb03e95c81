package runtime

import (
	"errors"
	"strings"
	"syscall"

	rberrors "github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/output"
)

// ErrDiskFull marks a store failure caused by a full disk.
var ErrDiskFull = errors.New("disk full: unable to write to database")

const diskFullSuggestion = "Free up disk space and try again."

// FormatError renders err for the terminal with a suggestion when one is
// known.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	if IsDiskFullError(err) {
		return err.Error() + "\n" + diskFullSuggestion
	}
	return rberrors.FormatByCategory(err)
}

// ErrorResponse builds the JSON form of err.
func ErrorResponse(err error) *output.ErrorResponse {
	resp := &output.ErrorResponse{
		Status:     "error",
		Category:   rberrors.Classify(err).String(),
		Error:      err.Error(),
		Suggestion: rberrors.GetSuggestion(err),
	}
	if IsDiskFullError(err) {
		resp.Suggestion = diskFullSuggestion
	}
	return resp
}

// IsDiskFullError checks if an error indicates a disk full condition.
// It checks for ENOSPC and common disk full messages, since SQLite and
// Badger report the condition as text.
func IsDiskFullError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDiskFull) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.ENOSPC {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"no space left on device",
		"disk full",
		"database or disk is full",
		"not enough space",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
