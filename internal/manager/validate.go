package manager

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"hpsgateway/pkg/types"
)

var pdfMagic = []byte("%PDF-")

// NewInferenceRequest validates an inbound layout-parsing body and builds the
// backend request. Every failure is a ValidationError.
func NewInferenceRequest(in types.LayoutParsingRequest, logID string) (*InferenceRequest, error) {
	encoded := strings.TrimSpace(in.File)
	if encoded == "" {
		return nil, ErrValidation("file: required")
	}
	// data URLs are accepted; only the payload is forwarded.
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, ErrValidation("file: not valid base64: " + err.Error())
	}
	if len(data) == 0 {
		return nil, ErrValidation("file: empty payload")
	}
	ft, err := resolveFileType(in.FileType, data)
	if err != nil {
		return nil, err
	}
	return &InferenceRequest{
		File:     encoded,
		Size:     len(data),
		FileType: ft,
		LogID:    logID,
		Options:  in.Options,
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// resolveFileType maps the inbound discriminator onto the backend's
// 0=pdf/1=image numbering and checks the payload matches it. A missing
// fileType is inferred from the payload.
func resolveFileType(declared *int, data []byte) (int, error) {
	isPDF := bytes.HasPrefix(data, pdfMagic)
	if declared == nil {
		if isPDF {
			return types.FileTypePDF, nil
		}
		if err := checkImage(data); err != nil {
			return 0, err
		}
		return types.FileTypeImage, nil
	}
	switch *declared {
	case types.FileTypePDF, types.FileTypePDFAlt:
		if !isPDF {
			return 0, ErrValidation("file: fileType is pdf but payload is not a PDF document")
		}
		return types.FileTypePDF, nil
	case types.FileTypeImage:
		if err := checkImage(data); err != nil {
			return 0, err
		}
		return types.FileTypeImage, nil
	default:
		return 0, ErrValidation(fmt.Sprintf("fileType: unsupported value %d (want 0 or 2 for pdf, 1 for image)", *declared))
	}
}

func checkImage(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return ErrValidation("file: payload is not a supported image: " + err.Error())
	}
	return nil
}
