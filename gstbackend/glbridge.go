package gstbackend

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-gl-1.0

#include <gst/gst.h>
#include <gst/gl/gl.h>
#include <gst/gl/egl/gstgldisplay_egl.h>

typedef struct {
	GstGLDisplay *display;
	GstGLContext *context;
} vtt_gl;

static vtt_gl *vtt_gl_new(guintptr egl_display, guintptr egl_context) {
	vtt_gl *g = g_new0(vtt_gl, 1);

	GstGLDisplayEGL *d = gst_gl_display_egl_new_with_egl_display((gpointer) egl_display);
	if (d == NULL) {
		g_free(g);
		return NULL;
	}
	g->display = GST_GL_DISPLAY(d);

	if (egl_context != 0) {
		g->context = gst_gl_context_new_wrapped(g->display, egl_context,
				GST_GL_PLATFORM_EGL, GST_GL_API_GLES2);
		if (g->context == NULL) {
			gst_object_unref(g->display);
			g_free(g);
			return NULL;
		}
	}
	return g;
}

static void vtt_gl_free(vtt_gl *g) {
	if (g == NULL) {
		return;
	}
	if (g->context != NULL) {
		gst_object_unref(g->context);
	}
	gst_object_unref(g->display);
	g_free(g);
}

typedef struct {
	GstElement   *pipeline;
	GstGLDisplay *display;
	GstGLContext *context;
} vtt_query_probe;

static void vtt_query_probe_free(gpointer data) {
	vtt_query_probe *p = data;
	if (p->context != NULL) {
		gst_object_unref(p->context);
	}
	gst_object_unref(p->display);
	g_free(p);
}

static GstPadProbeReturn vtt_on_query(GstPad *pad, GstPadProbeInfo *info, gpointer data) {
	vtt_query_probe *p = data;
	GstQuery *query = GST_PAD_PROBE_INFO_QUERY(info);

	if (GST_QUERY_TYPE(query) == GST_QUERY_CONTEXT &&
			gst_gl_handle_context_query(p->pipeline, query, p->display, NULL, p->context)) {
		return GST_PAD_PROBE_HANDLED;
	}
	return GST_PAD_PROBE_OK;
}

// The probe does not ref the pipeline: it is removed with the pad.
static gulong vtt_add_query_probe(GstPad *pad, GstElement *pipeline, vtt_gl *g) {
	vtt_query_probe *p = g_new0(vtt_query_probe, 1);
	p->pipeline = pipeline;
	p->display = gst_object_ref(g->display);
	if (g->context != NULL) {
		p->context = gst_object_ref(g->context);
	}
	return gst_pad_add_probe(pad, GST_PAD_PROBE_TYPE_QUERY_DOWNSTREAM,
			vtt_on_query, p, vtt_query_probe_free);
}

static void vtt_set_video_sink(GstElement *playbin, GstElement *sink) {
	g_object_set(G_OBJECT(playbin), "video-sink", sink, NULL);
}

static void vtt_buffer_ref(GstBuffer *buf) {
	gst_buffer_ref(buf);
}

static void vtt_buffer_unref(GstBuffer *buf) {
	gst_buffer_unref(buf);
}

static int vtt_buffer_texture(GstBuffer *buf, guint *id, guint *target) {
	if (gst_buffer_n_memory(buf) == 0) {
		return 0;
	}
	GstMemory *mem = gst_buffer_peek_memory(buf, 0);
	if (!gst_is_gl_memory(mem)) {
		return 0;
	}
	GstGLMemory *gl = (GstGLMemory *) mem;
	*id = gl->tex_id;
	*target = gst_gl_texture_target_to_gl(gl->tex_target);
	return 1;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/tinyzimmer/go-gst/gst"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// glContext wraps the host's EGL display and context for GStreamer.
type glContext struct {
	ptr *C.vtt_gl
}

func newGLContext(gfx GraphicsContext) (*glContext, error) {
	if gfx.Display == 0 {
		return nil, nil
	}

	ptr := C.vtt_gl_new(C.guintptr(gfx.Display), C.guintptr(gfx.Context))
	if ptr == nil {
		return nil, fmt.Errorf("%w: failed to wrap EGL display 0x%x / context 0x%x",
			videotexture.ErrPipelineConstruction, gfx.Display, gfx.Context)
	}
	return &glContext{ptr: ptr}, nil
}

func (g *glContext) free() {
	if g == nil || g.ptr == nil {
		return
	}
	C.vtt_gl_free(g.ptr)
	g.ptr = nil
}

// answerContextQueries makes pad answer GL context queries with the host
// context, so glupload allocates textures the host can sample.
func (g *glContext) answerContextQueries(pad *gst.Pad, pipeline *gst.Element) {
	if g == nil || g.ptr == nil {
		return
	}
	C.vtt_add_query_probe(
		(*C.GstPad)(unsafe.Pointer(pad.Instance())),
		(*C.GstElement)(unsafe.Pointer(pipeline.Instance())),
		g.ptr,
	)
}

func setVideoSink(playbin, sink *gst.Element) {
	C.vtt_set_video_sink(
		(*C.GstElement)(unsafe.Pointer(playbin.Instance())),
		(*C.GstElement)(unsafe.Pointer(sink.Instance())),
	)
}

// glBuffer is a referenced GstBuffer. Each delivery holds its own reference,
// dropped by Release.
type glBuffer struct {
	ptr *C.GstBuffer
}

func newGLBuffer(buf *gst.Buffer) *glBuffer {
	ptr := (*C.GstBuffer)(unsafe.Pointer(buf.Instance()))
	C.vtt_buffer_ref(ptr)
	return &glBuffer{ptr: ptr}
}

// Texture implements videotexture.Buffer
func (b *glBuffer) Texture() (videotexture.TextureHandle, error) {
	var id, target C.guint
	if C.vtt_buffer_texture(b.ptr, &id, &target) == 0 {
		return videotexture.InvalidTexture, fmt.Errorf(
			"%w: buffer is not GL memory, is glupload in the pipeline?",
			videotexture.ErrUnsupportedTextureFormat)
	}

	class, err := videotexture.StorageClassFromTarget(uint32(target))
	if err != nil {
		return videotexture.InvalidTexture, err
	}
	return videotexture.TextureHandle{ID: uint32(id), Class: class}, nil
}

// Release implements videotexture.Buffer
func (b *glBuffer) Release() {
	C.vtt_buffer_unref(b.ptr)
}
