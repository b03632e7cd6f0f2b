package utils

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCodePNG encodes content as a square PNG of the given pixel size.
func QRCodePNG(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// QRCodeBase64 returns the PNG as plain base64.
func QRCodeBase64(content string, size int) (string, error) {
	png, err := QRCodePNG(content, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// QRCodeDataURI returns the PNG as a data: URI usable in an <img> tag.
func QRCodeDataURI(content string, size int) (string, error) {
	b64, err := QRCodeBase64(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + b64, nil
}
