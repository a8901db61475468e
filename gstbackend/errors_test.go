package gstbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		debug string
		want  videotexture.ErrorCategory
	}{
		{
			name:  "missing file",
			text:  "Resource not found.",
			debug: "gstfilesrc.c(532): No such file \"/media/clip.mp4\"",
			want:  videotexture.CategoryResource,
		},
		{
			name:  "missing decoder",
			text:  "Your GStreamer installation is missing a plug-in.",
			debug: "no decoder available for type 'video/x-h265'",
			want:  videotexture.CategoryCodec,
		},
		{
			name:  "not negotiated",
			text:  "Internal data stream error.",
			debug: "streaming stopped, reason not-negotiated (-4)",
			want:  videotexture.CategoryCodec,
		},
		{
			name:  "http timeout",
			text:  "Could not read from resource.",
			debug: "souphttpsrc: Connection timed out",
			want:  videotexture.CategoryNetwork,
		},
		{
			name: "unclassified",
			text: "Something odd happened",
			want: videotexture.CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyMessage(tt.text, tt.debug)
			assert.Equal(t, tt.want, got)
			t.Logf("✅ %q → %s", tt.text, got)
		})
	}
}
