package gstbackend

import (
	"strings"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// classifyMessage sorts a bus error or warning into a category for
// diagnostics, by keywords in its text and debug string. go-gst's GError does
// not expose the error domain.
func classifyMessage(text, debug string) videotexture.ErrorCategory {
	combined := strings.ToLower(text + " " + debug)

	// Most specific first: "could not open resource for reading" is a missing
	// file, not a network failure.
	switch {
	case containsAny(combined, resourceKeywords):
		return videotexture.CategoryResource
	case containsAny(combined, codecKeywords):
		return videotexture.CategoryCodec
	case containsAny(combined, networkKeywords):
		return videotexture.CategoryNetwork
	}
	return videotexture.CategoryUnknown
}

var resourceKeywords = []string{
	"resource not found",
	"no such file",
	"could not open",
	"permission denied",
	"busy",
	"out of memory",
	"no space",
	"could not allocate",
}

var codecKeywords = []string{
	"codec",
	"decode",
	"not negotiated",
	"not-negotiated",
	"negotiation",
	"caps",
	"missing plugin",
	"no decoder",
	"stream format",
	"h264",
	"h265",
	"demux",
}

var networkKeywords = []string{
	"connection",
	"timeout",
	"timed out",
	"unreachable",
	"network",
	"dns",
	"resolve",
	"socket",
	"http",
	"rtsp",
	"could not connect",
	"failed to connect",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
