package gstbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

func TestPlaybinURI(t *testing.T) {
	assert.Equal(t, testPatternURI, playbinURI(videotexture.TestPattern))
	assert.Equal(t, testPatternURI, playbinURI(videotexture.Source{}))
	assert.Equal(t, "file:///media/clip.mp4", playbinURI(videotexture.Source{URI: "file:///media/clip.mp4"}))
}

func TestSinkBinDescription(t *testing.T) {
	tests := []struct {
		converter string
		want      string
	}{
		{"", "glupload ! appsink name=videotexture-sink"},
		{"imxvideoconvert_g2d", "imxvideoconvert_g2d ! glupload ! appsink name=videotexture-sink"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, sinkBinDescription(tt.converter, DefaultSinkName))
		})
	}
}
