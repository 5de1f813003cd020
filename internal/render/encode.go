package render

import "encoding/base64"

// EncodedImage is the transport form of a rendered page: base64 payload plus
// the media type the provider needs. Passed by value, never mutated.
type EncodedImage struct {
	Base64    string
	MediaType string
	Width     int
	Height    int
}

// Encode serializes a page for transport. Deterministic and side-effect free;
// pixel data is never altered.
func Encode(p Page) EncodedImage {
	return EncodedImage{
		Base64:    base64.StdEncoding.EncodeToString(p.Data),
		MediaType: p.MediaType,
		Width:     p.Width,
		Height:    p.Height,
	}
}
