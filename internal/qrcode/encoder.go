package qrcode

import (
	"errors"
	"fmt"
	"image"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

// ErrEncode is returned when the payload cannot be represented as a QR code
var ErrEncode = errors.New("qr encode rejected payload")

// Encoder turns a text payload into a raster QR code
type Encoder interface {
	Encode(content string) (image.Image, error)
}

// SkipEncoder encodes with github.com/skip2/go-qrcode
type SkipEncoder struct {
	size     int
	recovery goqrcode.RecoveryLevel
}

// NewEncoder creates an encoder producing size x size images
func NewEncoder(size int, recovery string) (*SkipEncoder, error) {
	level, err := ParseRecoveryLevel(recovery)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid qr size %d", size)
	}
	return &SkipEncoder{size: size, recovery: level}, nil
}

// Encode generates the QR image for content
func (e *SkipEncoder) Encode(content string) (image.Image, error) {
	qr, err := goqrcode.New(content, e.recovery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return qr.Image(e.size), nil
}

// ParseRecoveryLevel maps a config value to a go-qrcode recovery level
func ParseRecoveryLevel(s string) (goqrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return goqrcode.Low, nil
	case "", "medium", "m":
		return goqrcode.Medium, nil
	case "high", "q":
		return goqrcode.High, nil
	case "highest", "h":
		return goqrcode.Highest, nil
	default:
		return goqrcode.Medium, fmt.Errorf("unknown qr recovery level %q", s)
	}
}
