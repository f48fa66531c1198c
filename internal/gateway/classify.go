package gateway

import (
	"errors"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/go-telegram/bot"
)

// classifyError maps a transport error onto the delivery taxonomy. nil means
// delivered. Unrecognized bad requests count as transient: the policy for both
// is log-and-continue without an immediate retry, so the distinction only
// matters for the cases we can actually recognize.
func classifyError(err error) Result {
	if err == nil {
		return ResultDelivered
	}

	if errors.Is(err, bot.ErrorForbidden) {
		return ResultPermanentlyUnreachable
	}
	if bot.IsTooManyRequestsError(err) || errors.Is(err, bot.ErrorTooManyRequests) {
		return ResultTransientFailure
	}

	if errors.Is(err, bot.ErrorBadRequest) {
		desc := strings.ToLower(err.Error())
		switch {
		case strings.Contains(desc, "too large"), strings.Contains(desc, "too big"), strings.Contains(desc, "entity too large"):
			return ResultPayloadTooLarge
		case strings.Contains(desc, "wrong file identifier"),
			strings.Contains(desc, "wrong remote file"),
			strings.Contains(desc, "invalid file_id"),
			strings.Contains(desc, "failed to get http url content"),
			strings.Contains(desc, "wrong type of the web page content"):
			return ResultInvalidReference
		}
	}

	return ResultTransientFailure
}

// refClass is the shape of a media reference after resolution.
type refClass int

const (
	refLocalFile refClass = iota
	refURL
	refRemoteID
	refInvalid
)

// classifyRef resolves a media reference: an existing local file wins, then a
// direct URL, then a plausible Telegram file id. Path-shaped strings that do
// not resolve to a file, and strings that cannot be a file id, are invalid.
func classifyRef(ref string) refClass {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return refInvalid
	}

	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return refLocalFile
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return refURL
	}

	// Path-shaped but unresolvable: a configured file that is not there.
	if strings.ContainsAny(ref, "/\\") || path.Ext(ref) != "" {
		return refInvalid
	}

	if !plausibleFileID(ref) {
		return refInvalid
	}

	return refRemoteID
}

// plausibleFileID applies the structural rules Telegram file ids follow:
// base64-url alphabet, no whitespace, and a minimum length.
func plausibleFileID(ref string) bool {
	if len(ref) < 16 {
		return false
	}
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '=':
		default:
			return false
		}
	}
	return true
}

// videoNotePrefix is the observed file id prefix of round video notes. Used
// only as a last-resort hint for references declared KindAuto.
const videoNotePrefix = "DQAC"

func looksLikeVideoNote(fileID string) bool {
	return strings.HasPrefix(fileID, videoNotePrefix)
}

// directImageURL rewrites one known class of indirect image links (imgur page
// and album URLs) into direct i.imgur.com links. Any other URL is returned
// unchanged with ok=false.
func directImageURL(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw, false
	}

	host := strings.TrimPrefix(parsed.Host, "www.")
	if host != "imgur.com" {
		return raw, false
	}

	id := strings.TrimPrefix(parsed.Path, "/")
	id = strings.TrimPrefix(id, "a/")
	id = strings.TrimPrefix(id, "gallery/")
	if id == "" || strings.Contains(id, "/") {
		return raw, false
	}
	if path.Ext(id) != "" {
		// Already a direct file reference, only the host needs fixing.
		return "https://i.imgur.com/" + id, true
	}

	return "https://i.imgur.com/" + id + ".jpg", true
}
