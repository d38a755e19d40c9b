package fetcher

import (
	"bytes"
	"fmt"
	"net/http"
)

// BlockKind names the anti-bot wall a site put up.
type BlockKind string

const (
	BlockNone       BlockKind = ""
	BlockCloudflare BlockKind = "cloudflare"
	BlockCaptcha    BlockKind = "captcha"
	BlockJSShell    BlockKind = "js_shell"
)

// BlockedError reports a page that served a bot challenge instead of content.
// It is never retried.
type BlockedError struct {
	URL  string
	Kind BlockKind
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fetcher: %s block at %s", e.Kind, e.URL)
}

// Markers are only looked for near the top of the page; real wine pages are
// long and may mention these words in scripts further down.
const blockScanBytes = 16 << 10

var (
	cloudflareMarkers = [][]byte{[]byte("checking your browser"), []byte("cf-browser-verification"), []byte("cf-challenge")}
	captchaMarkers    = [][]byte{[]byte("g-recaptcha"), []byte("h-captcha"), []byte("captcha-container"), []byte("verify you are human")}
)

// detectBlock inspects a response for signs of anti-bot protection.
func detectBlock(status int, h http.Header, body []byte) BlockKind {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if h.Get("cf-ray") != "" || h.Get("cf-mitigated") != "" || h.Get("Server") == "cloudflare" {
			return BlockCloudflare
		}
	}

	head := body
	if len(head) > blockScanBytes {
		head = head[:blockScanBytes]
	}
	lower := bytes.ToLower(head)

	if containsAny(lower, cloudflareMarkers) {
		return BlockCloudflare
	}
	if containsAny(lower, captchaMarkers) {
		return BlockCaptcha
	}
	// A tiny page that only asks for JavaScript or redirects has no content.
	if len(body) < 2000 {
		if bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("javascript")) {
			return BlockJSShell
		}
		if bytes.Contains(lower, []byte(`http-equiv="refresh"`)) {
			return BlockJSShell
		}
	}
	return BlockNone
}

func containsAny(b []byte, markers [][]byte) bool {
	for _, m := range markers {
		if bytes.Contains(b, m) {
			return true
		}
	}
	return false
}
