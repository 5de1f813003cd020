package filetype

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_PDFMarker(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		pdf  bool
	}{
		{"full_marker", []byte("%PDF-1.7\n%stuff"), true},
		{"marker_only", []byte("%PDF-"), true},
		{"short_marker", []byte("%PDF"), false},
		{"empty", nil, false},
		{"one_byte", []byte("%"), false},
		{"wrong_case", []byte("%pdf-1.7"), false},
		{"leading_whitespace", []byte(" %PDF-1.7"), false},
		{"garbage", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.data)
			if tc.pdf {
				assert.Equal(t, FormatPDF, got.Format)
				assert.Equal(t, "application/pdf", got.MIMEType)
			} else {
				assert.NotEqual(t, FormatPDF, got.Format)
			}
			assert.Equal(t, tc.pdf, IsPDF(tc.data))
		})
	}
}

func TestDetect_Images(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	got := Detect(pngBuf.Bytes())
	assert.Equal(t, FormatImage, got.Format)
	assert.Equal(t, "image/png", got.MIMEType)

	var jpgBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpgBuf, img, nil))
	got = Detect(jpgBuf.Bytes())
	assert.Equal(t, FormatImage, got.Format)
	assert.Equal(t, "image/jpeg", got.MIMEType)
}

func TestDetect_Unknown(t *testing.T) {
	got := Detect([]byte("hello world, plainly not an invoice scan"))
	assert.Equal(t, FormatUnknown, got.Format)
}
