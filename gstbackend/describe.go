package gstbackend

import (
	"fmt"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// testPatternURI plays videotestsrc through playbin, in BGRA so glupload
// needs no conversion.
const testPatternURI = "testbin://video,pattern=videotestsrc,caps=[video/x-raw,format=BGRA]"

// DefaultSinkName names the appsink inside the video-sink bin.
const DefaultSinkName = "videotexture-sink"

// playbinURI returns the uri property for src.
func playbinURI(src videotexture.Source) string {
	if src.IsTestPattern() {
		return testPatternURI
	}
	return src.URI
}

// sinkBinDescription describes playbin's video-sink: an optional converter,
// glupload, then the appsink. The first element's unlinked sink pad becomes
// the bin's ghost pad.
//
//	[converter !] glupload ! appsink name=<sinkName>
func sinkBinDescription(converter, sinkName string) string {
	desc := fmt.Sprintf("glupload ! appsink name=%s", sinkName)
	if converter != "" {
		desc = converter + " ! " + desc
	}
	return desc
}
