package transport

import (
	"github.com/dunglas/httpsfv"
)

// Chrome version advertised in client hints. Keep loosely in sync with the
// HelloChrome_Auto fingerprint so the header surface and the TLS handshake
// tell the same story.
const chromeMajorVersion = "124"

// ClientHintHeaders returns the Sec-CH-UA family of headers Chrome sends on
// every request. Sec-CH-UA is an RFC 8941 structured field list, built with
// httpsfv rather than string concatenation.
func ClientHintHeaders() map[string]string {
	list := httpsfv.List{
		brandItem("Chromium", chromeMajorVersion),
		brandItem("Google Chrome", chromeMajorVersion),
		brandItem("Not-A.Brand", "99"),
	}

	ua, err := httpsfv.Marshal(list)
	if err != nil {
		// Marshal only fails on unsupported value types; the list above is
		// all strings.
		ua = ""
	}

	return map[string]string{
		"Sec-CH-UA":          ua,
		"Sec-CH-UA-Mobile":   "?0",
		"Sec-CH-UA-Platform": `"macOS"`,
	}
}

func brandItem(brand, version string) httpsfv.Item {
	item := httpsfv.NewItem(brand)
	item.Params.Add("v", version)
	return item
}
